package tileplan

import (
	"fmt"
	"strings"
)

// Axis names the direction a one-pixel line runs across a frame.
type Axis string

const (
	AxisRows    Axis = "rows"
	AxisColumns Axis = "columns"
)

// TileMode selects between a grid of uniform tiles and a single tile holding every frame.
type TileMode string

const (
	TileModeTile TileMode = "tile"
	TileModeFull TileMode = "full"
)

// Proportion is the requested tile aspect.
type Proportion string

const (
	ProportionSquare    Proportion = "square"
	ProportionLandscape Proportion = "landscape"
	ProportionPortrait  Proportion = "portrait"
)

// Priority decides which side of the tile is held fixed while the other is derived.
type Priority string

const (
	PriorityQuality     Priority = "quality"
	PriorityQuantity    Priority = "quantity"
	PriorityPowersOfTwo Priority = "powersOfTwo"
)

// Distribution selects how cross-section sample positions are spread along the sampling axis.
type Distribution string

const (
	DistributionPlanes Distribution = "planes"
	DistributionWaves  Distribution = "waves"
)

// Settings is the user-facing sampling configuration collapsed into planner inputs.
type Settings struct {
	SamplingMode      Axis         `json:"samplingMode"`
	OutputMode        Axis         `json:"outputMode"`
	TileMode          TileMode     `json:"tileMode"`
	TileProportion    Proportion   `json:"tileProportion"`
	Prioritize        Priority     `json:"prioritize"`
	PotResolution     int          `json:"potResolution"`
	CrossSectionCount int          `json:"crossSectionCount"`
	CrossSectionType  Distribution `json:"crossSectionType"`
	FramesToSample    int          `json:"framesToSample"`
}

// ParseAxis converts a user string into an Axis.
func ParseAxis(value string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "rows", "row":
		return AxisRows, nil
	case "columns", "column", "cols":
		return AxisColumns, nil
	default:
		return "", fmt.Errorf("unknown axis %q (want rows or columns)", value)
	}
}

// ParsePriority converts a user string into a Priority. Matching is case-insensitive.
func ParsePriority(value string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "quality":
		return PriorityQuality, nil
	case "quantity":
		return PriorityQuantity, nil
	case "powersoftwo", "pot", "powers-of-two", "powers_of_two":
		return PriorityPowersOfTwo, nil
	default:
		return "", fmt.Errorf("unknown priority %q (want quality, quantity, or powersOfTwo)", value)
	}
}

// ParseProportion converts a user string into a Proportion.
func ParseProportion(value string) (Proportion, error) {
	switch Proportion(strings.ToLower(strings.TrimSpace(value))) {
	case ProportionSquare:
		return ProportionSquare, nil
	case ProportionLandscape:
		return ProportionLandscape, nil
	case ProportionPortrait:
		return ProportionPortrait, nil
	default:
		return "", fmt.Errorf("unknown tile proportion %q (want square, landscape, or portrait)", value)
	}
}

// ParseTileMode converts a user string into a TileMode.
func ParseTileMode(value string) (TileMode, error) {
	switch TileMode(strings.ToLower(strings.TrimSpace(value))) {
	case TileModeTile:
		return TileModeTile, nil
	case TileModeFull:
		return TileModeFull, nil
	default:
		return "", fmt.Errorf("unknown tile mode %q (want tile or full)", value)
	}
}

// ParseDistribution converts a user string into a Distribution.
func ParseDistribution(value string) (Distribution, error) {
	switch Distribution(strings.ToLower(strings.TrimSpace(value))) {
	case DistributionPlanes:
		return DistributionPlanes, nil
	case DistributionWaves:
		return DistributionWaves, nil
	default:
		return "", fmt.Errorf("unknown cross-section type %q (want planes or waves)", value)
	}
}

// AspectRatio returns the width:height ratio for the proportion, or false when unknown.
func (p Proportion) AspectRatio() (float64, bool) {
	switch p {
	case ProportionSquare:
		return 1, true
	case ProportionLandscape:
		return 16.0 / 9.0, true
	case ProportionPortrait:
		return 9.0 / 16.0, true
	default:
		return 0, false
	}
}

// EffectiveFrameCount applies the FramesToSample cap to the source frame count.
func (s Settings) EffectiveFrameCount(frameCount int) int {
	if s.FramesToSample > 0 && s.FramesToSample < frameCount {
		return s.FramesToSample
	}
	return frameCount
}

// SampleExtent returns the source pixel length of one sampled line: the frame
// width when sampling rows, the frame height when sampling columns.
func (s Settings) SampleExtent(sourceWidth, sourceHeight int) int {
	if s.SamplingMode == AxisColumns {
		return sourceHeight
	}
	return sourceWidth
}

// DistributionExtent returns the source pixel length along which cross
// sections are distributed: the frame height for rows, the width for columns.
func (s Settings) DistributionExtent(sourceWidth, sourceHeight int) int {
	if s.SamplingMode == AxisColumns {
		return sourceWidth
	}
	return sourceHeight
}
