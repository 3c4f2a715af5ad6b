package testsupport

import (
	"image"
	"image/color"
)

// FramePixel is the colour Frames paints at (x, y) of frame n. Red and green
// carry the coordinates and blue the frame number, each modulo 256.
func FramePixel(x, y, n int) color.RGBA {
	return color.RGBA{R: uint8(x), G: uint8(y), B: uint8(n), A: 0xff}
}

// Frames builds count synthetic frames of the given size. Frame n (1-based)
// is painted with FramePixel so tests can trace which source pixel landed
// where.
func Frames(width, height, count int) []*image.RGBA {
	out := make([]*image.RGBA, count)
	for i := range out {
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.SetRGBA(x, y, FramePixel(x, y, i+1))
			}
		}
		out[i] = img
	}
	return out
}
