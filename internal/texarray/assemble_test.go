package texarray_test

import (
	"bytes"
	"errors"
	"testing"

	"slyce/internal/ktx2"
	"slyce/internal/texarray"
)

func layer(w, h, levels int, fill byte) *ktx2.Container {
	ls := make([]ktx2.Level, levels)
	for m := range ls {
		lw, lh := max(w>>m, 1), max(h>>m, 1)
		data := bytes.Repeat([]byte{fill}, lw*lh*4)
		ls[m] = ktx2.Level{Data: data, UncompressedByteLength: uint64(len(data))}
	}
	return ktx2.NewRGBA8(w, h, ls, ktx2.SupercompressionNone)
}

func TestAssembleThreeLayers(t *testing.T) {
	layers := []*ktx2.Container{layer(64, 64, 2, 1), layer(64, 64, 2, 2), layer(64, 64, 2, 3)}
	out, err := texarray.Assemble(layers)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if out.LayerCount != 3 || len(out.Levels) != 2 {
		t.Fatalf("layers=%d levels=%d, want 3 and 2", out.LayerCount, len(out.Levels))
	}
	for m, want := range []int{64 * 64 * 4, 32 * 32 * 4} {
		if got := len(out.Levels[m].Data); got != 3*want {
			t.Fatalf("level %d bytes = %d, want %d", m, got, 3*want)
		}
		if out.Levels[m].UncompressedByteLength != uint64(3*want) {
			t.Fatalf("level %d uncompressed = %d", m, out.Levels[m].UncompressedByteLength)
		}
		for i := range 3 {
			if got := out.Levels[m].Data[i*want]; got != byte(i+1) {
				t.Fatalf("level %d layer %d starts with %d", m, i, got)
			}
		}
	}
	if !bytes.Equal(out.DFD, layers[0].DFD) {
		t.Fatal("dfd not carried through")
	}
	if _, ok := out.KeyValues["KTXwriter"]; !ok {
		t.Fatal("key/value data not carried through")
	}
}

func TestAssemblePadsOddImagesToEightBytes(t *testing.T) {
	// 3x1 RGBA is 12 bytes, padded to 16.
	layers := []*ktx2.Container{layer(3, 1, 1, 7), layer(3, 1, 1, 8)}
	layers[1].Levels[0].Data = append(layers[1].Levels[0].Data, 0xEE, 0xEE)
	out, err := texarray.Assemble(layers)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	data := out.Levels[0].Data
	if len(data) != 32 {
		t.Fatalf("level bytes = %d, want 32", len(data))
	}
	if data[16] != 8 || data[12] != 0 || data[28] != 0 {
		t.Fatalf("unexpected layout: %v", data)
	}
}

func TestAssembleRejectsHeightMismatch(t *testing.T) {
	layers := []*ktx2.Container{layer(64, 64, 2, 1), layer(64, 64, 2, 2), layer(64, 32, 2, 3)}
	_, err := texarray.Assemble(layers)
	var mismatch *texarray.MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MismatchError, got %v", err)
	}
	if mismatch.Layer != 2 || mismatch.Field != "height" {
		t.Fatalf("unexpected mismatch %+v", mismatch)
	}
	if !errors.Is(err, texarray.ErrFormatMismatch) {
		t.Fatal("mismatch should match ErrFormatMismatch")
	}
}

func TestAssembleRejectsLevelCountAndFormat(t *testing.T) {
	_, err := texarray.Assemble([]*ktx2.Container{layer(8, 8, 2, 1), layer(8, 8, 3, 1)})
	var mismatch *texarray.MismatchError
	if !errors.As(err, &mismatch) || mismatch.Field != "level count" || mismatch.Layer != 1 {
		t.Fatalf("expected level count mismatch, got %v", err)
	}

	other := layer(8, 8, 2, 1)
	other.VkFormat = ktx2.VkFormatR8G8B8A8Unorm
	_, err = texarray.Assemble([]*ktx2.Container{layer(8, 8, 2, 1), other})
	if !errors.As(err, &mismatch) || mismatch.Field != "vkFormat" {
		t.Fatalf("expected format mismatch, got %v", err)
	}
}

func TestAssembleDuplicatesSingleLayer(t *testing.T) {
	single := layer(4, 4, 1, 5)
	out, err := texarray.Assemble([]*ktx2.Container{single})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if out.LayerCount != 2 {
		t.Fatalf("layer count = %d, want 2", out.LayerCount)
	}
	data := out.Levels[0].Data
	half := len(data) / 2
	if !bytes.Equal(data[:half], data[half:]) {
		t.Fatal("duplicated layers differ")
	}
}

func TestAssembleZstdConcatenatesAsIs(t *testing.T) {
	a := layer(4, 4, 1, 1)
	b := layer(4, 4, 1, 2)
	for i, c := range []*ktx2.Container{a, b} {
		c.SupercompressionScheme = ktx2.SupercompressionZstd
		c.Levels[0] = ktx2.Level{Data: bytes.Repeat([]byte{byte(i)}, 5+i), UncompressedByteLength: 64}
	}
	out, err := texarray.Assemble([]*ktx2.Container{a, b})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got := len(out.Levels[0].Data); got != 11 {
		t.Fatalf("level bytes = %d, want 11", got)
	}
	if out.Levels[0].UncompressedByteLength != 128 {
		t.Fatalf("uncompressed = %d, want 128", out.Levels[0].UncompressedByteLength)
	}
}

func TestAssembleRejectsGlobalData(t *testing.T) {
	a := layer(4, 4, 1, 1)
	a.GlobalData = []byte{1, 2, 3}
	if _, err := texarray.Assemble([]*ktx2.Container{a}); !errors.Is(err, texarray.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestAssembleBuffersRoundTrip(t *testing.T) {
	var bufs [][]byte
	for i := range 3 {
		b, err := ktx2.Write(layer(16, 8, 3, byte(i)))
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		bufs = append(bufs, b)
	}
	data, err := texarray.AssembleBuffers(bufs)
	if err != nil {
		t.Fatalf("AssembleBuffers: %v", err)
	}
	out, err := ktx2.Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if out.LayerCount != 3 || len(out.Levels) != 3 {
		t.Fatalf("layers=%d levels=%d", out.LayerCount, len(out.Levels))
	}
	if got := len(out.Levels[2].Data); got != 3*4*2*4 {
		t.Fatalf("level 2 bytes = %d", got)
	}
}
