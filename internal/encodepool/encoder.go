package encodepool

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/klauspost/compress/zstd"
	xdraw "golang.org/x/image/draw"

	"slyce/internal/ktx2"
)

// Encoder compresses one RGBA image into a single-layer container. An
// encoder is owned by exactly one worker.
type Encoder interface {
	Encode(ctx context.Context, img *image.RGBA) (*ktx2.Container, error)
}

// Factory builds a worker's encoder the first time that worker receives a job.
type Factory func() (Encoder, error)

// Options tunes the RGBA8 encoder.
type Options struct {
	Mipmaps bool
	// Supercompression is ktx2.SupercompressionNone or ktx2.SupercompressionZstd.
	Supercompression uint32
	ZstdLevel        int
}

// RGBA8Factory returns a Factory for sRGB RGBA8 containers.
func RGBA8Factory(opts Options) Factory {
	return func() (Encoder, error) {
		enc := &rgba8Encoder{opts: opts}
		switch opts.Supercompression {
		case ktx2.SupercompressionNone:
		case ktx2.SupercompressionZstd:
			level := opts.ZstdLevel
			if level <= 0 {
				level = 3
			}
			z, err := zstd.NewWriter(nil,
				zstd.WithEncoderConcurrency(1),
				zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
			)
			if err != nil {
				return nil, fmt.Errorf("create zstd encoder: %w", err)
			}
			enc.zstd = z
		default:
			return nil, fmt.Errorf("unsupported supercompression scheme %d", opts.Supercompression)
		}
		return enc, nil
	}
}

type rgba8Encoder struct {
	opts Options
	zstd *zstd.Encoder
}

func (e *rgba8Encoder) Encode(ctx context.Context, img *image.RGBA) (*ktx2.Container, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty image %dx%d", w, h)
	}
	count := 1
	if e.opts.Mipmaps {
		count = ktx2.MipLevelCount(w, h)
	}

	levels := make([]ktx2.Level, count)
	current := img
	for m := range count {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m > 0 {
			current = downsample(current)
		}
		raw := tightPixels(current)
		level := ktx2.Level{Data: raw, UncompressedByteLength: uint64(len(raw))}
		if e.zstd != nil {
			level.Data = e.zstd.EncodeAll(raw, make([]byte, 0, len(raw)/2))
		}
		levels[m] = level
	}
	return ktx2.NewRGBA8(w, h, levels, e.opts.Supercompression), nil
}

// Close releases the zstd encoder.
func (e *rgba8Encoder) Close() error {
	if e.zstd == nil {
		return nil
	}
	return e.zstd.Close()
}

func downsample(src *image.RGBA) *image.RGBA {
	w, h := max(src.Rect.Dx()/2, 1), max(src.Rect.Dy()/2, 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func tightPixels(img *image.RGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	row := w * 4
	if img.Stride == row && img.Rect.Min == (image.Point{}) {
		return append([]byte(nil), img.Pix[:row*h]...)
	}
	out := make([]byte, row*h)
	for y := range h {
		start := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(out[y*row:], img.Pix[start:start+row])
	}
	return out
}
