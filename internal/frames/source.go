// Package frames yields decoded video frames in strictly increasing order.
package frames

import (
	"context"
	"errors"
	"image"
	"io"
)

// Frame is one decoded picture. Number is 1-based.
type Frame struct {
	Image  *image.RGBA
	Number int
}

// Source yields frames one at a time. Next returns io.EOF after the last
// frame. The image of a returned frame is valid until the following Next call.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Info describes the stream a Source decodes.
type Info struct {
	Path       string  `json:"path"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FrameCount int     `json:"frameCount"`
	FrameRate  float64 `json:"frameRate"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
}

// ErrEmpty is returned when a source holds no frames.
var ErrEmpty = errors.New("source has no frames")

// Slice serves frames from memory. It is used for synthetic input and tests.
type Slice struct {
	frames []*image.RGBA
	pos    int
}

// NewSlice returns a source yielding imgs numbered from 1.
func NewSlice(imgs []*image.RGBA) *Slice {
	return &Slice{frames: imgs}
}

// Next returns the following frame.
func (s *Slice) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.pos >= len(s.frames) {
		return Frame{}, io.EOF
	}
	s.pos++
	return Frame{Image: s.frames[s.pos-1], Number: s.pos}, nil
}

// Close is a no-op.
func (s *Slice) Close() error { return nil }
