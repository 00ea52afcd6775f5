package pipeline

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
)

// ErrHandleClosed is returned when writing to a handle that already reached a terminal state.
var ErrHandleClosed = errors.New("output handle closed")

// OutputHandle is the single-pass sequence of byte chunks produced by one render.
// The producer never blocks: chunks queue until the consumer pulls them.
// After the last chunk Next returns io.EOF, or the render error if the render failed.
type OutputHandle struct {
	mu     sync.Mutex
	chunks [][]byte
	done   bool
	err    error
	signal chan struct{} // closed and replaced on every state change
	closed chan struct{} // closed once on the terminal state
	total  int64
}

func newOutputHandle() *OutputHandle {
	return &OutputHandle{
		signal: make(chan struct{}),
		closed: make(chan struct{}),
	}
}

// Next returns the next chunk in emission order.
// It blocks until a chunk is available, the render ends, or ctx is done.
func (h *OutputHandle) Next(ctx context.Context) ([]byte, error) {
	for {
		h.mu.Lock()
		if len(h.chunks) > 0 {
			chunk := h.chunks[0]
			h.chunks[0] = nil
			h.chunks = h.chunks[1:]
			h.mu.Unlock()
			return chunk, nil
		}
		if h.done {
			err := h.err
			h.mu.Unlock()
			if err == nil {
				return nil, io.EOF
			}
			return nil, err
		}
		wait := h.signal
		h.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Chunks ranges over the remaining chunks. A failed render yields one final (nil, err) pair.
func (h *OutputHandle) Chunks(ctx context.Context) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			chunk, err := h.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Reader adapts the handle to io.Reader for piping into sinks.
func (h *OutputHandle) Reader(ctx context.Context) io.Reader {
	return &handleReader{ctx: ctx, h: h}
}

// Done is closed when the render reaches a terminal state. Queued chunks may still be unread.
func (h *OutputHandle) Done() <-chan struct{} { return h.closed }

// Err reports the terminal error, nil while running or after success.
func (h *OutputHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Written returns the number of bytes produced so far.
func (h *OutputHandle) Written() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

// Write queues a copy of p. It implements io.Writer for the encoder.
func (h *OutputHandle) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	chunk := make([]byte, len(p))
	copy(chunk, p)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return 0, ErrHandleClosed
	}
	h.chunks = append(h.chunks, chunk)
	h.total += int64(len(p))
	h.notifyLocked()
	return len(p), nil
}

func (h *OutputHandle) finish() { h.terminate(nil) }

func (h *OutputHandle) fail(err error) { h.terminate(err) }

func (h *OutputHandle) terminate(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return
	}
	h.done = true
	h.err = err
	close(h.closed)
	h.notifyLocked()
}

func (h *OutputHandle) notifyLocked() {
	close(h.signal)
	h.signal = make(chan struct{})
}

type handleReader struct {
	ctx  context.Context
	h    *OutputHandle
	rest []byte
}

func (r *handleReader) Read(p []byte) (int, error) {
	if len(r.rest) == 0 {
		chunk, err := r.h.Next(r.ctx)
		if err != nil {
			return 0, err
		}
		r.rest = chunk
	}
	n := copy(p, r.rest)
	r.rest = r.rest[n:]
	return n, nil
}
