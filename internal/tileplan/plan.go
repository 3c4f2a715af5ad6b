package tileplan

import (
	"fmt"
	"math"
)

// Range is an inclusive, 1-based frame-number interval owned by one tile.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of frames covered by the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether frameNumber falls inside the range.
func (r Range) Contains(frameNumber int) bool {
	return frameNumber >= r.Start && frameNumber <= r.End
}

// Input bundles the planner's arguments.
type Input struct {
	SourceWidth  int
	SourceHeight int
	FrameCount   int
	Settings     Settings
}

// TilePlan is immutable once computed for a processing run.
type TilePlan struct {
	TileWidth     int      `json:"width"`
	TileHeight    int      `json:"height"`
	TileCount     int      `json:"length"`
	FramesPerTile int      `json:"framesPerTile"`
	Ranges        []Range  `json:"tiles"`
	Rotate        int      `json:"rotate"`
	IsScaled      bool     `json:"isScaled"`
	ScaleFrom     int      `json:"scaleFrom"`
	ScaleTo       int      `json:"scaleTo"`
	Skipping      int      `json:"skipping"`
	Notices       []string `json:"notices"`

	SamplingMode Axis `json:"samplingMode"`
	OutputMode   Axis `json:"outputMode"`
	SourceWidth  int  `json:"sourceWidth"`
	SourceHeight int  `json:"sourceHeight"`
	FrameCount   int  `json:"frameCount"`
}

const (
	noticeInsufficientData  = "Insufficient data to calculate tile plan."
	noticeInvalidProportion = "Invalid tile proportion."
	noticeInvalidTileMode   = "Invalid tile mode."
	noticeInvalidPriority   = "Invalid priority mode."
	noticeInvalidPot        = "Invalid power-of-two resolution."
	noticeInvalidAxis       = "Invalid sampling or output mode."
	noticeTooSmall          = "Tile dimensions are too small to encode."
)

// Plan computes the tile plan for the given input. It never returns an error;
// an unusable configuration yields a plan with TileCount == 0 and at least one notice.
func Plan(in Input) TilePlan {
	s := in.Settings
	plan := TilePlan{
		SamplingMode: s.SamplingMode,
		OutputMode:   s.OutputMode,
		SourceWidth:  in.SourceWidth,
		SourceHeight: in.SourceHeight,
		FrameCount:   in.FrameCount,
	}

	if in.SourceWidth <= 0 || in.SourceHeight <= 0 || in.FrameCount <= 0 || s.TileProportion == "" {
		return plan.withNotice(noticeInsufficientData)
	}
	if !validAxis(s.SamplingMode) || !validAxis(s.OutputMode) {
		return plan.withNotice(noticeInvalidAxis)
	}

	frames := s.EffectiveFrameCount(in.FrameCount)

	if s.SamplingMode != s.OutputMode {
		plan.Rotate = 90
	}

	aspect, ok := s.TileProportion.AspectRatio()
	if !ok {
		return plan.withNotice(noticeInvalidProportion)
	}

	spatial := s.SampleExtent(in.SourceWidth, in.SourceHeight)
	temporalIsHeight := s.OutputMode == AxisRows

	switch s.TileMode {
	case TileModeFull:
		plan.TileCount = 1
		plan.FramesPerTile = frames
		plan.ScaleFrom = spatial
		plan.ScaleTo = spatial
		plan.Ranges = []Range{{Start: 1, End: frames}}
		plan.setSides(spatial, frames, temporalIsHeight)
		return plan
	case TileModeTile:
	default:
		return plan.withNotice(noticeInvalidTileMode)
	}

	// naive is the temporal side obtained when the spatial side keeps the
	// source's natural extent.
	naive := temporalSide(spatial, aspect, temporalIsHeight)

	var framesPerTile, lineSide int
	switch s.Prioritize {
	case PriorityQuality:
		framesPerTile = naive
		lineSide = spatial
		if naive > 0 {
			plan.TileCount = frames / naive
		}
		plan.ScaleFrom = spatial
		plan.ScaleTo = spatial
	case PriorityQuantity:
		if naive > 0 {
			plan.TileCount = frames/naive + 1
			framesPerTile = frames / plan.TileCount
		}
		lineSide = spatialSide(framesPerTile, aspect, temporalIsHeight)
		plan.IsScaled = true
		plan.ScaleFrom = spatial
		plan.ScaleTo = lineSide
	case PriorityPowersOfTwo:
		if !isPowerOfTwo(s.PotResolution) {
			return plan.withNotice(noticeInvalidPot)
		}
		lineSide = s.PotResolution
		framesPerTile = temporalSide(lineSide, aspect, temporalIsHeight)
		if framesPerTile > 0 {
			plan.TileCount = frames / framesPerTile
		}
		plan.IsScaled = true
		plan.ScaleFrom = spatial
		plan.ScaleTo = s.PotResolution
	default:
		return plan.withNotice(noticeInvalidPriority)
	}

	plan.FramesPerTile = framesPerTile
	plan.setSides(lineSide, framesPerTile, temporalIsHeight)

	if framesPerTile < 1 || plan.TileCount < 1 {
		needed := framesPerTile
		if needed < 1 {
			needed = 1
		}
		short := needed - frames
		if plan.IsScaled {
			plan.Notices = append(plan.Notices, fmt.Sprintf(
				"Not enough frames to create tiles with the current settings. Each tile requires %d frames, but only %d frames are available. You are short by %d frames.",
				needed, frames, short))
		} else {
			plan.Notices = append(plan.Notices, fmt.Sprintf(
				"Not enough frames to create a single tile with the current settings. Each tile requires %d frames, but only %d frames are available. You are short by %d frames.",
				needed, frames, short))
		}
		plan.TileCount = 0
		plan.Ranges = nil
		plan.Skipping = frames
		return plan
	}

	plan.Ranges = buildRanges(plan.TileCount, framesPerTile)
	plan.Skipping = frames - plan.TileCount*framesPerTile
	return plan
}

// temporalSide derives the frame-indexed side from the spatial side. Row
// output stacks frames vertically so height = width / aspect; column output
// lays them out horizontally so width = height * aspect.
func temporalSide(spatial int, aspect float64, temporalIsHeight bool) int {
	if spatial <= 0 {
		return 0
	}
	if temporalIsHeight {
		return int(math.Floor(float64(spatial) / aspect))
	}
	return int(math.Floor(float64(spatial) * aspect))
}

// spatialSide is the inverse of temporalSide.
func spatialSide(temporal int, aspect float64, temporalIsHeight bool) int {
	if temporal <= 0 {
		return 0
	}
	if temporalIsHeight {
		return int(math.Floor(float64(temporal) * aspect))
	}
	return int(math.Floor(float64(temporal) / aspect))
}

func buildRanges(count, framesPerTile int) []Range {
	ranges := make([]Range, count)
	for i := range ranges {
		ranges[i] = Range{Start: i*framesPerTile + 1, End: (i + 1) * framesPerTile}
	}
	return ranges
}

func (p *TilePlan) setSides(spatial, temporal int, temporalIsHeight bool) {
	if temporalIsHeight {
		p.TileWidth = spatial
		p.TileHeight = temporal
	} else {
		p.TileWidth = temporal
		p.TileHeight = spatial
	}
}

func (p TilePlan) withNotice(notice string) TilePlan {
	p.TileCount = 0
	p.Ranges = nil
	p.Notices = append(p.Notices, notice)
	return p
}

func validAxis(a Axis) bool {
	return a == AxisRows || a == AxisColumns
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

// SpatialSide returns the tile side that holds one sampled line.
func (p TilePlan) SpatialSide() int {
	if p.OutputMode == AxisColumns {
		return p.TileHeight
	}
	return p.TileWidth
}

// TemporalSide returns the tile side indexed by frame position.
func (p TilePlan) TemporalSide() int {
	if p.OutputMode == AxisColumns {
		return p.TileWidth
	}
	return p.TileHeight
}

// UsedFrames returns the number of frames covered by the tile ranges.
func (p TilePlan) UsedFrames() int {
	total := 0
	for _, r := range p.Ranges {
		total += r.Len()
	}
	return total
}

// LastFrame returns the final frame number owned by any tile, or 0 for an empty plan.
func (p TilePlan) LastFrame() int {
	if len(p.Ranges) == 0 {
		return 0
	}
	return p.Ranges[len(p.Ranges)-1].End
}

// TileForFrame returns the zero-based tile index owning frameNumber.
func (p TilePlan) TileForFrame(frameNumber int) (int, bool) {
	if p.TileCount == 0 || frameNumber < 1 {
		return 0, false
	}
	if p.FramesPerTile > 0 && len(p.Ranges) == p.TileCount {
		idx := (frameNumber - 1) / p.FramesPerTile
		if idx < p.TileCount && p.Ranges[idx].Contains(frameNumber) {
			return idx, true
		}
	}
	for i, r := range p.Ranges {
		if r.Contains(frameNumber) {
			return i, true
		}
	}
	return 0, false
}

// EvenDimensions returns a copy of the plan whose tile width and height are
// both even. An odd temporal side shortens every tile by one frame and the
// ranges are regenerated; an odd spatial side is resampled one pixel shorter.
func (p TilePlan) EvenDimensions() TilePlan {
	if p.TileCount == 0 {
		return p
	}
	out := p
	out.Notices = append([]string(nil), p.Notices...)

	spatial := p.SpatialSide()
	temporal := p.TemporalSide()
	if spatial%2 != 0 {
		spatial--
		out.IsScaled = true
		out.ScaleTo = spatial
	}
	if temporal%2 != 0 {
		temporal--
	}
	if spatial < 2 || temporal < 2 {
		return out.withNotice(noticeTooSmall)
	}

	if temporal != p.TemporalSide() {
		frames := p.UsedFrames() + p.Skipping
		out.Ranges = buildRanges(p.TileCount, temporal)
		out.FramesPerTile = temporal
		out.Skipping = frames - out.UsedFrames()
	}
	out.setSides(spatial, temporal, p.OutputMode != AxisColumns)
	return out
}
