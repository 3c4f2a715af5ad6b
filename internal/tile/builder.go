// Package tile accumulates sampled frames for one tile and hands the finished
// cross-section images to the encoder.
package tile

import (
	"errors"
	"fmt"
	"image"

	"slyce/internal/canvas"
	"slyce/internal/sampler"
	"slyce/internal/tileplan"
)

// State is the builder lifecycle position.
type State int

const (
	StateEmpty State = iota
	StateAccumulating
	StateComplete
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateComplete:
		return "complete"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Kind discriminates the artifact produced from a completed tile.
type Kind string

const (
	KindTextureArray Kind = "ktx2"
	KindLoop         Kind = "webm"
)

// ParseKind accepts the configured output format name.
func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case KindTextureArray, KindLoop:
		return Kind(value), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want ktx2 or webm)", value)
	}
}

// ErrClosed is returned when a frame reaches a builder that already completed.
var ErrClosed = errors.New("tile builder already completed")

// Layer is one finished cross-section image. The pixels are owned by the
// consumer; they no longer alias pooled memory.
type Layer struct {
	Index int
	Image *image.RGBA
}

// Completion carries a finished tile.
type Completion struct {
	Tile   int
	Range  tileplan.Range
	Kind   Kind
	Frames int
	Layers []Layer
}

// Config wires a builder to its collaborators.
type Config struct {
	Index         int
	Range         tileplan.Range
	Kind          Kind
	CrossSections int
	Pool          *canvas.Pool
	Sampler       *sampler.Sampler
}

// Builder owns one tile's cross-section surfaces. Builders are single-use.
type Builder struct {
	cfg      Config
	state    State
	surfaces []*canvas.Surface
	written  int
}

// NewBuilder returns an empty builder. Surfaces are not allocated until the first frame.
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.Pool == nil || cfg.Sampler == nil {
		return nil, errors.New("tile builder requires a pool and a sampler")
	}
	if cfg.CrossSections < 1 {
		return nil, fmt.Errorf("cross-section count must be >= 1, got %d", cfg.CrossSections)
	}
	if cfg.Range.Len() < 1 {
		return nil, fmt.Errorf("tile %d has empty range %d-%d", cfg.Index, cfg.Range.Start, cfg.Range.End)
	}
	if cfg.Kind == "" {
		cfg.Kind = KindTextureArray
	}
	return &Builder{cfg: cfg}, nil
}

// State reports the lifecycle position.
func (b *Builder) State() State { return b.state }

// Index returns the zero-based tile index.
func (b *Builder) Index() int { return b.cfg.Index }

// FramesWritten returns how many frames have been drawn.
func (b *Builder) FramesWritten() int { return b.written }

// ProcessFrame draws frameNumber into every cross-section. When frameNumber is
// the range end the builder completes, copies the pixels out, returns its
// surfaces to the pool and yields a Completion. Otherwise the completion is nil.
func (b *Builder) ProcessFrame(frame image.Image, frameNumber int) (*Completion, error) {
	switch b.state {
	case StateComplete, StateReleased:
		return nil, fmt.Errorf("tile %d frame %d: %w", b.cfg.Index, frameNumber, ErrClosed)
	}
	if !b.cfg.Range.Contains(frameNumber) {
		return nil, fmt.Errorf("tile %d: frame %d outside range %d-%d", b.cfg.Index, frameNumber, b.cfg.Range.Start, b.cfg.Range.End)
	}
	if b.state == StateEmpty {
		b.surfaces = make([]*canvas.Surface, b.cfg.CrossSections)
		for i := range b.surfaces {
			b.surfaces[i] = b.cfg.Pool.Get()
		}
		b.state = StateAccumulating
	}

	if err := b.cfg.Sampler.Draw(frame, frameNumber-b.cfg.Range.Start, b.surfaces); err != nil {
		return nil, fmt.Errorf("tile %d frame %d: %w", b.cfg.Index, frameNumber, err)
	}
	b.written++

	if frameNumber != b.cfg.Range.End {
		return nil, nil
	}

	b.state = StateComplete
	completion := &Completion{
		Tile:   b.cfg.Index,
		Range:  b.cfg.Range,
		Kind:   b.cfg.Kind,
		Frames: b.written,
		Layers: make([]Layer, len(b.surfaces)),
	}
	for i, s := range b.surfaces {
		completion.Layers[i] = Layer{Index: i, Image: s.SnapshotImage()}
	}
	b.Release()
	return completion, nil
}

// Release returns any held surfaces to the pool. It is safe to call more
// than once and from any state; an unfinished builder is discarded.
func (b *Builder) Release() {
	if b.state == StateReleased {
		return
	}
	b.cfg.Pool.ReleaseAll(b.surfaces)
	b.surfaces = nil
	b.state = StateReleased
}
