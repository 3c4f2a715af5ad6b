package sampler

import "math"

// PlanePosition returns the cosine-eased position of cross-section k of n
// along an axis of extent pixels. The first and last sections sit at the far
// edge and the middle section at zero.
func PlanePosition(k, n, extent int) float64 {
	if extent <= 1 {
		return 0
	}
	t := 0.0
	if n > 1 {
		t = float64(k) / float64(n-1)
	}
	return (math.Cos(t*math.Pi) + 1) / 2 * float64(extent-1)
}

// WavePosition returns the sinusoidal position of cross-section k of n at
// frameIndex within a tile of framesInTile frames. Each section completes one
// full period across the tile, phase-shifted by 2πk/n. The result is clamped
// to [0, extent-1].
func WavePosition(k, n, frameIndex, framesInTile, extent int) float64 {
	if extent <= 1 {
		return 0
	}
	if n < 1 {
		n = 1
	}
	if framesInTile < 1 {
		framesInTile = 1
	}
	a := float64(extent) / 2
	b := 2 * math.Pi / float64(framesInTile)
	c := 2 * math.Pi * float64(k) / float64(n)
	return clampFloat(a*math.Sin(b*float64(frameIndex)+c)+a, 0, float64(extent-1))
}

// PixelIndex rounds a position to the nearest valid pixel in [0, extent-1].
func PixelIndex(pos float64, extent int) int {
	if extent <= 0 {
		return 0
	}
	idx := int(math.Round(pos))
	if idx < 0 {
		return 0
	}
	if idx > extent-1 {
		return extent - 1
	}
	return idx
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
