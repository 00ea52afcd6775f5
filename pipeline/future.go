package pipeline

import (
	"context"
	"sync"

	"github.com/ByLCY/quire/layout"
)

// Future resolves to the layout artifact of one render, or rejects with the render error.
type Future struct {
	once   sync.Once
	done   chan struct{}
	result *layout.Result
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Wait blocks until the render settles or ctx is done.
func (f *Future) Wait(ctx context.Context) (*layout.Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} { return f.done }

func (f *Future) resolve(res *layout.Result) {
	f.once.Do(func() {
		f.result = res
		close(f.done)
	})
}

func (f *Future) reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}
