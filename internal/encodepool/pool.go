// Package encodepool runs texture encodes on a fixed set of workers.
//
// Submissions beyond the worker count wait in a FIFO queue. Each worker
// builds its encoder lazily on its first job and reuses it until the pool is
// closed.
package encodepool

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"slyce/internal/ktx2"
	"slyce/internal/logging"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("encode pool closed")

// EncodeError identifies the tile and cross-section whose encode failed.
type EncodeError struct {
	Tile  int
	Layer int
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode tile %d cross-section %d: %v", e.Tile, e.Layer, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Request is one image to encode.
type Request struct {
	Tile  int
	Layer int
	Image *image.RGBA
}

type result struct {
	layer *ktx2.Container
	err   error
}

type task struct {
	ctx  context.Context
	req  Request
	done chan result
}

// Pending is the eventual result of one submission.
type Pending struct {
	req  Request
	done chan result
}

// Request returns the submitted request.
func (p *Pending) Request() Request { return p.req }

// Wait blocks until the encode finishes or ctx is done.
func (p *Pending) Wait(ctx context.Context) (*ktx2.Container, error) {
	select {
	case r := <-p.done:
		return r.layer, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pool is a fixed-size set of encode workers.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*task
	closed  bool
	wg      sync.WaitGroup
	factory Factory
	workers int
	logger  *slog.Logger
}

// New starts workers goroutines. A non-positive count uses runtime.NumCPU.
func New(workers int, factory Factory, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		factory: factory,
		workers: workers,
		logger:  logging.NewComponentLogger(logger, "encodepool"),
	}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

// Workers returns the worker count.
func (p *Pool) Workers() int { return p.workers }

// Submit queues req. The job is skipped if ctx is done before a worker claims it.
func (p *Pool) Submit(ctx context.Context, req Request) (*Pending, error) {
	t := &task{ctx: ctx, req: req, done: make(chan result, 1)}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.queue = append(p.queue, t)
	p.mu.Unlock()
	p.cond.Signal()
	return &Pending{req: req, done: t.done}, nil
}

func (p *Pool) next() (*task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return nil, false
	}
	t := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return t, true
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	var enc Encoder
	defer func() {
		if c, ok := enc.(io.Closer); ok {
			_ = c.Close()
		}
	}()
	for {
		t, ok := p.next()
		if !ok {
			return
		}
		if err := t.ctx.Err(); err != nil {
			t.done <- result{err: err}
			continue
		}
		if enc == nil {
			var err error
			if enc, err = p.factory(); err != nil {
				p.logger.Error("encoder init failed", logging.Int("worker", id), logging.Error(err))
				enc = nil
				t.done <- result{err: &EncodeError{Tile: t.req.Tile, Layer: t.req.Layer, Err: err}}
				continue
			}
			p.logger.Debug("encoder initialized", logging.Int("worker", id))
		}
		layer, err := enc.Encode(t.ctx, t.req.Image)
		if err != nil {
			err = &EncodeError{Tile: t.req.Tile, Layer: t.req.Layer, Err: err}
		}
		t.done <- result{layer: layer, err: err}
	}
}

// Progress is invoked as each layer of an EncodeAll call finishes.
type Progress func(completed, total int)

// EncodeAll encodes every image of one tile and returns the layers in input
// order. The first failure cancels the remaining jobs of this call and is returned.
func (p *Pool) EncodeAll(ctx context.Context, tile int, images []*image.RGBA, progress Progress) ([]*ktx2.Container, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pending := make([]*Pending, len(images))
	for i, img := range images {
		pend, err := p.Submit(ctx, Request{Tile: tile, Layer: i, Image: img})
		if err != nil {
			return nil, err
		}
		pending[i] = pend
	}

	type indexed struct {
		i int
		result
	}
	results := make(chan indexed, len(pending))
	for i, pend := range pending {
		go func() {
			results <- indexed{i: i, result: <-pend.done}
		}()
	}

	out := make([]*ktx2.Container, len(images))
	for completed := 0; completed < len(pending); {
		select {
		case r := <-results:
			if r.err != nil {
				cancel()
				return nil, r.err
			}
			out[r.i] = r.layer
			completed++
			if progress != nil {
				progress(completed, len(pending))
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}

// Close stops accepting work, lets the workers drain the queue and waits for
// them to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}
