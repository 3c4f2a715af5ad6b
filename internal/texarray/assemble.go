// Package texarray merges independently encoded single-layer textures into
// one array texture.
package texarray

import (
	"errors"
	"fmt"

	"slyce/internal/ktx2"
)

// LayerAlignment is the byte boundary every layer starts on inside a level
// when the level stores fixed-size blocks.
const LayerAlignment = 8

var (
	// ErrFormatMismatch is matched by every MismatchError.
	ErrFormatMismatch = errors.New("texture layers disagree")
	// ErrUnsupported marks inputs whose layout cannot be merged.
	ErrUnsupported = errors.New("unsupported texture layout")
)

// MismatchError names the layer that disagrees with layer 0.
type MismatchError struct {
	Layer    int
	Field    string
	Expected any
	Actual   any
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("layer %d: %s mismatch: expected %v, got %v", e.Layer, e.Field, e.Expected, e.Actual)
}

func (e *MismatchError) Is(target error) bool { return target == ErrFormatMismatch }

// Assemble concatenates the levels of every layer in order. Layer 0 is the
// baseline; a lone layer is duplicated so the result is always a true array.
func Assemble(layers []*ktx2.Container) (*ktx2.Container, error) {
	if len(layers) == 0 {
		return nil, errors.New("no layers to assemble")
	}
	base := layers[0]
	if base == nil {
		return nil, errors.New("layer 0 is nil")
	}
	if base.SupercompressionScheme == ktx2.SupercompressionBasisLZ || len(base.GlobalData) > 0 {
		return nil, fmt.Errorf("%w: layers carry supercompression global data", ErrUnsupported)
	}
	if base.Layers() > 1 {
		return nil, fmt.Errorf("%w: layer 0 is already an array of %d", ErrUnsupported, base.LayerCount)
	}
	for i := 1; i < len(layers); i++ {
		if err := compatible(base, layers[i], i); err != nil {
			return nil, err
		}
	}
	if len(layers) == 1 {
		layers = []*ktx2.Container{base, base.Clone()}
	}

	info := base.Format()
	fixed := base.SupercompressionScheme == ktx2.SupercompressionNone && info.Computable()
	out := &ktx2.Container{
		VkFormat:               base.VkFormat,
		TypeSize:               base.TypeSize,
		PixelWidth:             base.PixelWidth,
		PixelHeight:            base.PixelHeight,
		PixelDepth:             base.PixelDepth,
		LayerCount:             uint32(len(layers)),
		FaceCount:              base.FaceCount,
		SupercompressionScheme: base.SupercompressionScheme,
		Levels:                 make([]ktx2.Level, len(base.Levels)),
		DFD:                    base.DFD,
		KeyValues:              base.KeyValues,
	}

	for m := range base.Levels {
		if fixed {
			w, h := base.LevelSize(m)
			size := info.ImageSize(w, h) * base.Faces() * max(int(base.PixelDepth), 1)
			if err := checkSizes(layers, m, size); err != nil {
				return nil, err
			}
			out.Levels[m] = padded(layers, m, size)
			continue
		}
		out.Levels[m] = concatenated(layers, m)
	}
	return out, nil
}

func compatible(base, layer *ktx2.Container, i int) error {
	if layer == nil {
		return fmt.Errorf("layer %d is nil", i)
	}
	if base.VkFormat != 0 && layer.VkFormat != 0 && base.VkFormat != layer.VkFormat {
		return &MismatchError{Layer: i, Field: "vkFormat", Expected: base.VkFormat, Actual: layer.VkFormat}
	}
	if base.VkFormat == 0 || layer.VkFormat == 0 {
		bm, lm := base.Format().ColorModel, layer.Format().ColorModel
		if bm != 0 && lm != 0 && bm != lm {
			return &MismatchError{Layer: i, Field: "color model", Expected: bm, Actual: lm}
		}
	}
	if base.PixelWidth != layer.PixelWidth {
		return &MismatchError{Layer: i, Field: "width", Expected: base.PixelWidth, Actual: layer.PixelWidth}
	}
	if base.PixelHeight != layer.PixelHeight {
		return &MismatchError{Layer: i, Field: "height", Expected: base.PixelHeight, Actual: layer.PixelHeight}
	}
	if len(base.Levels) != len(layer.Levels) {
		return &MismatchError{Layer: i, Field: "level count", Expected: len(base.Levels), Actual: len(layer.Levels)}
	}
	if base.SupercompressionScheme != layer.SupercompressionScheme {
		return &MismatchError{Layer: i, Field: "supercompression", Expected: base.SupercompressionScheme, Actual: layer.SupercompressionScheme}
	}
	return nil
}

func checkSizes(layers []*ktx2.Container, m, size int) error {
	for i, l := range layers {
		if got := len(l.Levels[m].Data); got < size {
			return &MismatchError{Layer: i, Field: fmt.Sprintf("level %d byte length", m), Expected: size, Actual: got}
		}
	}
	return nil
}

// padded trims each layer's level m to size bytes and pads it to LayerAlignment.
func padded(layers []*ktx2.Container, m, size int) ktx2.Level {
	stride := (size + LayerAlignment - 1) / LayerAlignment * LayerAlignment
	data := make([]byte, stride*len(layers))
	for i, l := range layers {
		src := l.Levels[m].Data
		copy(data[i*stride:], src[:min(size, len(src))])
	}
	return ktx2.Level{Data: data, UncompressedByteLength: uint64(len(data))}
}

func concatenated(layers []*ktx2.Container, m int) ktx2.Level {
	total := 0
	var uncompressed uint64
	for _, l := range layers {
		total += len(l.Levels[m].Data)
		uncompressed += l.Levels[m].UncompressedByteLength
	}
	data := make([]byte, 0, total)
	for _, l := range layers {
		data = append(data, l.Levels[m].Data...)
	}
	return ktx2.Level{Data: data, UncompressedByteLength: uncompressed}
}

// AssembleBuffers parses serialized single-layer containers, assembles them
// and serializes the result.
func AssembleBuffers(buffers [][]byte) ([]byte, error) {
	layers := make([]*ktx2.Container, len(buffers))
	for i, b := range buffers {
		c, err := ktx2.Read(b)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layers[i] = c
	}
	out, err := Assemble(layers)
	if err != nil {
		return nil, err
	}
	return ktx2.Write(out)
}
