// Package sampler reads one-pixel lines out of decoded frames and writes them
// into per-cross-section tile surfaces.
package sampler

import (
	"errors"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"slyce/internal/canvas"
	"slyce/internal/tileplan"
)

// Params describes how one tile is sampled.
type Params struct {
	Count        int
	Distribution tileplan.Distribution
	Axis         tileplan.Axis
	// SourceWidth and SourceHeight are the decoded frame dimensions.
	SourceWidth  int
	SourceHeight int
	// LineLength is the destination pixel length of each line. Lines are
	// resampled when it differs from the source extent.
	LineLength   int
	FramesInTile int
}

// ParamsFor derives sampling parameters from a plan.
func ParamsFor(plan tileplan.TilePlan, settings tileplan.Settings) Params {
	return Params{
		Count:        settings.CrossSectionCount,
		Distribution: settings.CrossSectionType,
		Axis:         settings.SamplingMode,
		SourceWidth:  plan.SourceWidth,
		SourceHeight: plan.SourceHeight,
		LineLength:   plan.SpatialSide(),
		FramesInTile: plan.FramesPerTile,
	}
}

// Sampler draws cross-section lines for a single tile. It keeps scratch
// buffers and is not safe for concurrent use.
type Sampler struct {
	p       Params
	extent  int // distribution axis
	srcLen  int // sampling axis
	planes  []int
	line    *image.RGBA
	scratch *image.RGBA
}

// New validates params and precomputes plane positions.
func New(p Params) (*Sampler, error) {
	if p.Count < 1 {
		return nil, fmt.Errorf("cross-section count must be >= 1, got %d", p.Count)
	}
	if p.SourceWidth <= 0 || p.SourceHeight <= 0 {
		return nil, fmt.Errorf("invalid source dimensions %dx%d", p.SourceWidth, p.SourceHeight)
	}
	if p.LineLength <= 0 {
		return nil, errors.New("line length must be positive")
	}
	if p.Distribution != tileplan.DistributionPlanes && p.Distribution != tileplan.DistributionWaves {
		return nil, fmt.Errorf("unknown cross-section type %q", p.Distribution)
	}
	s := &Sampler{p: p}
	if p.Axis == tileplan.AxisColumns {
		s.srcLen, s.extent = p.SourceHeight, p.SourceWidth
		s.line = image.NewRGBA(image.Rect(0, 0, 1, p.LineLength))
		s.scratch = image.NewRGBA(image.Rect(0, 0, 1, s.srcLen))
	} else {
		s.srcLen, s.extent = p.SourceWidth, p.SourceHeight
		s.line = image.NewRGBA(image.Rect(0, 0, p.LineLength, 1))
		s.scratch = image.NewRGBA(image.Rect(0, 0, s.srcLen, 1))
	}
	if p.Distribution == tileplan.DistributionPlanes {
		s.planes = make([]int, p.Count)
		for k := range s.planes {
			s.planes[k] = PixelIndex(PlanePosition(k, p.Count, s.extent), s.extent)
		}
	}
	return s, nil
}

// Scaled reports whether lines are resampled.
func (s *Sampler) Scaled() bool { return s.p.LineLength != s.srcLen }

// Positions returns the source pixel offset of every cross-section for frameIndex.
func (s *Sampler) Positions(frameIndex int) []int {
	out := make([]int, s.p.Count)
	for k := range out {
		out[k] = s.position(k, frameIndex)
	}
	return out
}

func (s *Sampler) position(k, frameIndex int) int {
	if s.planes != nil {
		return s.planes[k]
	}
	pos := WavePosition(k, s.p.Count, frameIndex, s.p.FramesInTile, s.extent)
	return PixelIndex(pos, s.extent)
}

// Draw samples frame once per cross-section and writes each line at
// frameIndex (0-based within the tile) of the matching surface.
func (s *Sampler) Draw(frame image.Image, frameIndex int, surfaces []*canvas.Surface) error {
	if len(surfaces) != s.p.Count {
		return fmt.Errorf("expected %d surfaces, got %d", s.p.Count, len(surfaces))
	}
	b := frame.Bounds()
	if b.Dx() != s.p.SourceWidth || b.Dy() != s.p.SourceHeight {
		return fmt.Errorf("frame is %dx%d, expected %dx%d", b.Dx(), b.Dy(), s.p.SourceWidth, s.p.SourceHeight)
	}
	for k, surface := range surfaces {
		pix := s.readLine(frame, s.position(k, frameIndex))
		if s.p.Axis == tileplan.AxisColumns {
			surface.WriteColumn(frameIndex, pix)
		} else {
			surface.WriteRow(frameIndex, pix)
		}
	}
	return nil
}

// readLine returns the tightly packed RGBA pixels of one source line at pos,
// resampled to LineLength. The slice is reused by the next call.
func (s *Sampler) readLine(frame image.Image, pos int) []byte {
	b := frame.Bounds()
	var src image.Rectangle
	if s.p.Axis == tileplan.AxisColumns {
		src = image.Rect(b.Min.X+pos, b.Min.Y, b.Min.X+pos+1, b.Max.Y)
	} else {
		src = image.Rect(b.Min.X, b.Min.Y+pos, b.Max.X, b.Min.Y+pos+1)
	}

	if !s.Scaled() {
		if rgba, ok := frame.(*image.RGBA); ok && s.p.Axis != tileplan.AxisColumns {
			start := rgba.PixOffset(src.Min.X, src.Min.Y)
			return rgba.Pix[start : start+s.srcLen*4]
		}
		xdraw.Draw(s.line, s.line.Bounds(), frame, src.Min, xdraw.Src)
		return s.line.Pix
	}

	xdraw.Draw(s.scratch, s.scratch.Bounds(), frame, src.Min, xdraw.Src)
	xdraw.BiLinear.Scale(s.line, s.line.Bounds(), s.scratch, s.scratch.Bounds(), xdraw.Src, nil)
	return s.line.Pix
}
