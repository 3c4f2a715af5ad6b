package canvas

import (
	"log/slog"
	"sync"

	"slyce/internal/logging"
)

// Stats describes pool occupancy.
type Stats struct {
	Capacity  int `json:"capacity"`
	Idle      int `json:"idle"`
	InUse     int `json:"in_use"`
	Allocated int `json:"allocated"`
	Overflow  int `json:"overflow"`
}

// Pool hands out tile-sized surfaces and reclaims them for reuse. Get never
// blocks: when every pooled surface is checked out a fresh one is allocated
// and a warning is logged.
type Pool struct {
	mu       sync.Mutex
	width    int
	height   int
	orient   Orientation
	capacity int
	free     []*Surface
	inUse    map[*Surface]struct{}
	stats    Stats
	closed   bool
	logger   *slog.Logger
}

// PoolSize returns the default capacity for a run: enough surfaces for three
// tiles, never more than the run can use.
func PoolSize(crossSections, tileCount, tiles int) int {
	if tiles <= 0 {
		tiles = 3
	}
	size := crossSections * tiles
	if limit := crossSections * tileCount; limit < size {
		size = limit
	}
	if size < 1 {
		size = 1
	}
	return size
}

// NewPool preallocates capacity surfaces of width x height.
func NewPool(capacity, width, height int, orient Orientation, logger *slog.Logger) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	p := &Pool{
		width:    width,
		height:   height,
		orient:   orient,
		capacity: capacity,
		free:     make([]*Surface, 0, capacity),
		inUse:    make(map[*Surface]struct{}, capacity),
		logger:   logging.NewComponentLogger(logger, "canvas"),
	}
	for range capacity {
		p.free = append(p.free, NewSurface(width, height, orient))
	}
	p.stats.Capacity = capacity
	p.stats.Allocated = capacity
	return p
}

// Get returns a cleared surface.
func (p *Pool) Get() *Surface {
	p.mu.Lock()
	defer p.mu.Unlock()

	var s *Surface
	if n := len(p.free); n > 0 {
		s = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		s = NewSurface(p.width, p.height, p.orient)
		p.stats.Allocated++
		p.stats.Overflow++
		logging.WarnWithContext(p.logger, "canvas pool exhausted; allocating extra surface", "canvas_pool_exhausted",
			logging.Int("capacity", p.capacity),
			logging.Int("in_use", len(p.inUse)),
			logging.String(logging.FieldErrorHint, "raise encoding.pool_tiles if this repeats"),
			logging.String(logging.FieldImpact, "peak memory exceeds the configured bound"),
		)
	}
	p.inUse[s] = struct{}{}
	return s
}

// Release clears s and returns it to the pool. Surfaces beyond capacity, or
// released after Close, are dropped.
func (p *Pool) Release(s *Surface) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.inUse[s]; !ok {
		return
	}
	delete(p.inUse, s)
	if p.closed || len(p.free) >= p.capacity {
		return
	}
	s.Clear()
	p.free = append(p.free, s)
}

// ReleaseAll releases every surface in ss.
func (p *Pool) ReleaseAll(ss []*Surface) {
	for _, s := range ss {
		p.Release(s)
	}
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.stats
	st.Idle = len(p.free)
	st.InUse = len(p.inUse)
	return st
}

// Close drops every idle surface; later releases are discarded.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.free = nil
}
