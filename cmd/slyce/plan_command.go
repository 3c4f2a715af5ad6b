package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"slyce/internal/config"
	"slyce/internal/processor"
	"slyce/internal/services"
	"slyce/internal/tile"
)

var prepareRun = processor.Prepare

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var flags samplingFlags
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "plan <video>",
		Short: "Show the tile plan for a video without processing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := flags.apply(cmd, base)
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			rc, err := prepareRun(cmd.Context(), cfg, path, cfg.Settings())
			if err != nil && !errors.Is(err, services.ErrValidation) {
				return err
			}
			if jsonOut {
				if werr := writeJSON(cmd, rc.Plan); werr != nil {
					return werr
				}
				return err
			}
			renderPlan(cmd.OutOrStdout(), rc)
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the plan as JSON")
	return cmd
}

func renderPlan(out io.Writer, rc processor.RunContext) {
	plan := rc.Plan
	video := rc.Video
	settings := rc.Settings
	pairs := [][2]string{
		{"Source", filepath.Base(rc.Source)},
		{"Video", fmt.Sprintf("%dx%d, %d frames", video.Width, video.Height, video.FrameCount)},
		{"Sampling", fmt.Sprintf("%s -> %s", titleLabel(string(settings.SamplingMode)), titleLabel(string(settings.OutputMode)))},
		{"Cross-sections", fmt.Sprintf("%d %s", settings.CrossSectionCount, titleLabel(string(settings.CrossSectionType)))},
		{"Priority", titleLabel(string(settings.Prioritize))},
		{"Output", string(rc.Kind)},
	}
	if plan.TileCount > 0 {
		pairs = append(pairs,
			[2]string{"Tiles", strconv.Itoa(plan.TileCount)},
			[2]string{"Tile size", fmt.Sprintf("%dx%d", plan.TileWidth, plan.TileHeight)},
			[2]string{"Frames per tile", strconv.Itoa(plan.FramesPerTile)},
			[2]string{"Skipped frames", strconv.Itoa(plan.Skipping)},
			[2]string{"Rotate", fmt.Sprintf("%d°", plan.Rotate)},
		)
		if plan.IsScaled {
			pairs = append(pairs, [2]string{"Scaled", fmt.Sprintf("%d -> %d px", plan.ScaleFrom, plan.ScaleTo)})
		}
		if rc.Kind == tile.KindTextureArray {
			pairs = append(pairs, [2]string{"Tile size (raw)", formatBytes(rawTileBytes(rc))})
		}
	}
	fmt.Fprintln(out, renderPairs(pairs))

	for _, notice := range plan.Notices {
		fmt.Fprintf(out, "\nNotice: %s\n", notice)
	}
	if plan.TileCount == 0 {
		return
	}

	rows := make([][]string, 0, len(plan.Ranges))
	for i, r := range plan.Ranges {
		rows = append(rows, []string{strconv.Itoa(i + 1), strconv.Itoa(r.Start), strconv.Itoa(r.End), strconv.Itoa(r.Len())})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]string{"Tile", "First frame", "Last frame", "Frames"}, rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight}))
}

// rawTileBytes estimates an uncompressed RGBA8 tile array including mips.
func rawTileBytes(rc processor.RunContext) int64 {
	layers := max(rc.Settings.CrossSectionCount, 2)
	w, h := rc.Plan.TileWidth, rc.Plan.TileHeight
	var total int64
	for {
		total += int64(w) * int64(h) * 4
		if !rc.Config.Encoding.Mipmaps || (w == 1 && h == 1) {
			break
		}
		w, h = max(w/2, 1), max(h/2, 1)
	}
	return total * int64(layers)
}
