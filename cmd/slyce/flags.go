package main

import (
	"github.com/spf13/cobra"

	"slyce/internal/config"
)

// samplingFlags override the [sampling] and [encoding] sections for one run.
type samplingFlags struct {
	crossSections  int
	crossType      string
	samplingMode   string
	outputMode     string
	tileMode       string
	proportion     string
	prioritize     string
	potResolution  int
	framesToSample int
	format         string
	workers        int
}

func (f *samplingFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVarP(&f.crossSections, "cross-sections", "n", 0, "Number of cross-sections per tile")
	flags.StringVar(&f.crossType, "distribution", "", "Cross-section distribution (planes or waves)")
	flags.StringVar(&f.samplingMode, "sampling", "", "Sampling axis (rows or columns)")
	flags.StringVar(&f.outputMode, "output", "", "Output axis (rows or columns)")
	flags.StringVar(&f.tileMode, "tile-mode", "", "Tile mode (tile or full)")
	flags.StringVar(&f.proportion, "proportion", "", "Tile proportion (square, landscape or portrait)")
	flags.StringVar(&f.prioritize, "prioritize", "", "Sizing priority (quality, quantity or powersOfTwo)")
	flags.IntVar(&f.potResolution, "pot", 0, "Power-of-two tile side for powersOfTwo priority")
	flags.IntVar(&f.framesToSample, "frames", -1, "Cap on frames to sample (0 = all)")
	flags.StringVarP(&f.format, "format", "f", "", "Output format (ktx2 or webm)")
	flags.IntVarP(&f.workers, "workers", "w", 0, "Encode workers")
}

// apply copies changed flags onto a copy of cfg and revalidates it.
func (f *samplingFlags) apply(cmd *cobra.Command, cfg *config.Config) (*config.Config, error) {
	out := *cfg
	changed := cmd.Flags().Changed
	if changed("cross-sections") {
		out.Sampling.CrossSectionCount = f.crossSections
	}
	if changed("distribution") {
		out.Sampling.CrossSectionType = f.crossType
	}
	if changed("sampling") {
		out.Sampling.SamplingMode = f.samplingMode
	}
	if changed("output") {
		out.Sampling.OutputMode = f.outputMode
	}
	if changed("tile-mode") {
		out.Sampling.TileMode = f.tileMode
	}
	if changed("proportion") {
		out.Sampling.TileProportion = f.proportion
	}
	if changed("prioritize") {
		out.Sampling.Prioritize = f.prioritize
	}
	if changed("pot") {
		out.Sampling.PotResolution = f.potResolution
	}
	if changed("frames") {
		out.Sampling.FramesToSample = f.framesToSample
	}
	if changed("format") {
		out.Encoding.OutputFormat = f.format
	}
	if changed("workers") {
		out.Encoding.Workers = f.workers
	}
	if err := out.Reapply(); err != nil {
		return nil, err
	}
	return &out, nil
}
