package workpool

import (
	"context"
	"errors"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("worker pool closed")

// Pool bounds how many provider or data calls run at once. Hybrid routing
// fans out per request, so without a fixed ceiling a burst of hybrid
// decisions would multiply in-flight upstream calls unbounded.
type Pool struct {
	slots  chan struct{}
	closed chan struct{}
}

func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		slots:  make(chan struct{}, size),
		closed: make(chan struct{}),
	}
}

// Size reports the maximum number of concurrent tasks.
func (p *Pool) Size() int {
	return cap(p.slots)
}

// Do runs fn in the calling goroutine once a slot is free, blocking until
// then. It returns without running fn when ctx is done or the pool is closed.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return ErrClosed
	}
	defer func() { <-p.slots }()
	fn()
	return nil
}

// Close rejects all future Do calls. Tasks already running are unaffected.
func (p *Pool) Close() {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
}
