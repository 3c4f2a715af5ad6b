package canvas_test

import (
	"testing"

	"slyce/internal/canvas"
	"slyce/internal/logging"
	"slyce/internal/tileplan"
)

func px(v byte) []byte { return []byte{v, v, v, 255} }

func line(n int, base byte) []byte {
	out := make([]byte, 0, n*4)
	for i := range n {
		out = append(out, px(base+byte(i))...)
	}
	return out
}

func TestOrientationFor(t *testing.T) {
	cases := []struct {
		sampling, output tileplan.Axis
		want             canvas.Orientation
	}{
		{tileplan.AxisRows, tileplan.AxisRows, canvas.Identity},
		{tileplan.AxisColumns, tileplan.AxisColumns, canvas.Identity},
		{tileplan.AxisRows, tileplan.AxisColumns, canvas.Rotate90},
		{tileplan.AxisColumns, tileplan.AxisRows, canvas.Rotate270},
	}
	for _, tc := range cases {
		if got := canvas.OrientationFor(tc.sampling, tc.output); got != tc.want {
			t.Fatalf("%s->%s: got %s want %s", tc.sampling, tc.output, got, tc.want)
		}
	}
}

func TestIdentityRowWrite(t *testing.T) {
	s := canvas.NewSurface(4, 3, canvas.Identity)
	s.WriteRow(1, line(4, 10))
	img := s.Image()
	for x := range 4 {
		if got := img.Pix[img.PixOffset(x, 1)]; got != byte(10+x) {
			t.Fatalf("pixel (%d,1) = %d, want %d", x, got, 10+x)
		}
	}
}

func TestRotate90TurnsRowsIntoColumns(t *testing.T) {
	// Physical 3 wide (temporal) x 4 tall (spatial).
	s := canvas.NewSurface(3, 4, canvas.Rotate90)
	lw, lh := s.LogicalSize()
	if lw != 4 || lh != 3 {
		t.Fatalf("logical size = %dx%d, want 4x3", lw, lh)
	}
	s.WriteRow(0, line(4, 20))
	img := s.Image()
	for y := range 4 {
		if got := img.Pix[img.PixOffset(2, y)]; got != byte(20+y) {
			t.Fatalf("pixel (2,%d) = %d, want %d", y, got, 20+y)
		}
	}
}

func TestRotate270TurnsColumnsIntoRows(t *testing.T) {
	// Physical 4 wide (spatial) x 3 tall (temporal).
	s := canvas.NewSurface(4, 3, canvas.Rotate270)
	s.WriteColumn(0, line(4, 40))
	img := s.Image()
	for x := range 4 {
		if got := img.Pix[img.PixOffset(x, 2)]; got != byte(40+x) {
			t.Fatalf("pixel (%d,2) = %d, want %d", x, got, 40+x)
		}
	}
	if got := s.PixelAt(0, 3); got[0] != 43 {
		t.Fatalf("logical (0,3) = %v, want 43", got)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := canvas.NewSurface(2, 2, canvas.Identity)
	s.WriteRow(0, line(2, 1))
	snap := s.Snapshot()
	s.Clear()
	if snap[0] != 1 {
		t.Fatalf("snapshot mutated by clear: %v", snap[:4])
	}
	if len(snap) != 16 {
		t.Fatalf("snapshot length = %d, want 16", len(snap))
	}
}

func TestPoolReusesAndOverflows(t *testing.T) {
	pool := canvas.NewPool(2, 4, 4, canvas.Identity, logging.NewNop())
	a := pool.Get()
	b := pool.Get()
	c := pool.Get()
	st := pool.Stats()
	if st.InUse != 3 || st.Overflow != 1 || st.Allocated != 3 {
		t.Fatalf("unexpected stats after overflow: %+v", st)
	}

	a.WriteRow(0, line(4, 9))
	pool.Release(a)
	pool.Release(b)
	pool.Release(c)
	st = pool.Stats()
	if st.Idle != 2 || st.InUse != 0 {
		t.Fatalf("unexpected stats after release: %+v", st)
	}

	reused := pool.Get()
	if reused != a && reused != b {
		t.Fatal("expected a pooled surface to be reused")
	}
	if got := reused.PixelAt(0, 0); got != [4]byte{} {
		t.Fatalf("reused surface not cleared: %v", got)
	}
}

func TestPoolReleaseIgnoresForeignSurfaces(t *testing.T) {
	pool := canvas.NewPool(1, 2, 2, canvas.Identity, nil)
	pool.Release(canvas.NewSurface(2, 2, canvas.Identity))
	if st := pool.Stats(); st.Idle != 1 {
		t.Fatalf("idle = %d, want 1", st.Idle)
	}
}

func TestPoolSize(t *testing.T) {
	if got := canvas.PoolSize(4, 10, 3); got != 12 {
		t.Fatalf("PoolSize = %d, want 12", got)
	}
	if got := canvas.PoolSize(4, 2, 3); got != 8 {
		t.Fatalf("PoolSize capped = %d, want 8", got)
	}
	if got := canvas.PoolSize(4, 10, 0); got != 12 {
		t.Fatalf("PoolSize default tiles = %d, want 12", got)
	}
}
