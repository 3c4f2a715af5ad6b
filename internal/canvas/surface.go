package canvas

import (
	"fmt"
	"image"

	"slyce/internal/tileplan"
)

// Orientation maps logical surface coordinates onto the physical pixel buffer.
type Orientation int

const (
	// Identity writes logical pixels straight through.
	Identity Orientation = iota
	// Rotate90 turns the logical canvas a quarter turn clockwise.
	Rotate90
	// Rotate270 turns the logical canvas a quarter turn counter-clockwise.
	Rotate270
)

func (o Orientation) String() string {
	switch o {
	case Identity:
		return "identity"
	case Rotate90:
		return "rotate90"
	case Rotate270:
		return "rotate270"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// OrientationFor returns the surface orientation for a sampling/output axis
// pair. Sampled rows written to column output rotate clockwise; sampled
// columns written to row output rotate counter-clockwise.
func OrientationFor(sampling, output tileplan.Axis) Orientation {
	switch {
	case sampling == output:
		return Identity
	case sampling == tileplan.AxisRows:
		return Rotate90
	default:
		return Rotate270
	}
}

// Surface is one tile-sized RGBA pixel buffer addressed in logical
// coordinates. Callers write along the sampling axis and the orientation
// decides where those pixels land in the physical tile.
type Surface struct {
	img    *image.RGBA
	orient Orientation
	lw, lh int
}

// NewSurface allocates a surface whose physical (output) size is width x height.
func NewSurface(width, height int, orient Orientation) *Surface {
	s := &Surface{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		orient: orient,
		lw:     width,
		lh:     height,
	}
	if orient != Identity {
		s.lw, s.lh = height, width
	}
	return s
}

// Width returns the physical width in pixels.
func (s *Surface) Width() int { return s.img.Rect.Dx() }

// Height returns the physical height in pixels.
func (s *Surface) Height() int { return s.img.Rect.Dy() }

// LogicalSize returns the dimensions callers address through WriteRow and WriteColumn.
func (s *Surface) LogicalSize() (int, int) { return s.lw, s.lh }

// Orientation reports how logical coordinates are mapped.
func (s *Surface) Orientation() Orientation { return s.orient }

// Image exposes the physical buffer. The returned image is owned by the surface.
func (s *Surface) Image() *image.RGBA { return s.img }

func (s *Surface) physical(x, y int) (int, int) {
	switch s.orient {
	case Rotate90:
		return s.img.Rect.Dx() - 1 - y, x
	case Rotate270:
		return y, s.img.Rect.Dy() - 1 - x
	default:
		return x, y
	}
}

func (s *Surface) offset(x, y int) int {
	px, py := s.physical(x, y)
	return py*s.img.Stride + px*4
}

// WriteRow copies RGBA pixels into logical row y starting at x = 0. Pixels
// beyond the logical width are ignored.
func (s *Surface) WriteRow(y int, rgba []byte) {
	if y < 0 || y >= s.lh {
		return
	}
	n := min(len(rgba)/4, s.lw)
	if s.orient == Identity {
		start := y * s.img.Stride
		copy(s.img.Pix[start:start+n*4], rgba[:n*4])
		return
	}
	for x := 0; x < n; x++ {
		off := s.offset(x, y)
		copy(s.img.Pix[off:off+4], rgba[x*4:x*4+4])
	}
}

// WriteColumn copies RGBA pixels into logical column x starting at y = 0.
func (s *Surface) WriteColumn(x int, rgba []byte) {
	if x < 0 || x >= s.lw {
		return
	}
	n := min(len(rgba)/4, s.lh)
	for y := 0; y < n; y++ {
		off := s.offset(x, y)
		copy(s.img.Pix[off:off+4], rgba[y*4:y*4+4])
	}
}

// PixelAt returns the RGBA bytes stored at logical (x, y).
func (s *Surface) PixelAt(x, y int) [4]byte {
	var out [4]byte
	if x < 0 || y < 0 || x >= s.lw || y >= s.lh {
		return out
	}
	off := s.offset(x, y)
	copy(out[:], s.img.Pix[off:off+4])
	return out
}

// Snapshot returns a copy of the physical pixel buffer, tightly packed.
func (s *Surface) Snapshot() []byte {
	w, h := s.Width(), s.Height()
	out := make([]byte, w*h*4)
	if s.img.Stride == w*4 {
		copy(out, s.img.Pix)
		return out
	}
	for y := 0; y < h; y++ {
		copy(out[y*w*4:(y+1)*w*4], s.img.Pix[y*s.img.Stride:y*s.img.Stride+w*4])
	}
	return out
}

// SnapshotImage returns a deep copy of the physical buffer as an image.
func (s *Surface) SnapshotImage() *image.RGBA {
	return &image.RGBA{
		Pix:    s.Snapshot(),
		Stride: s.Width() * 4,
		Rect:   image.Rect(0, 0, s.Width(), s.Height()),
	}
}

// Clear zeroes every pixel.
func (s *Surface) Clear() {
	clear(s.img.Pix)
}
