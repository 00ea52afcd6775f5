// Package blob assembles a byte stream into a typed, immutable blob value.
package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// MediaTypePDF is the media type attached to rendered documents.
const MediaTypePDF = "application/pdf"

// ErrSinkClosed is returned when writing to a sink that already finished or aborted.
var ErrSinkClosed = errors.New("blob: sink closed")

// Blob is an immutable byte payload tagged with a media type.
// Location is set when the sink persisted the payload somewhere (eg. an object key).
type Blob struct {
	Type     string
	Location string
	data     []byte
}

// New copies data into a new blob.
func New(data []byte, mediaType string) *Blob {
	return &Blob{Type: mediaType, data: bytes.Clone(data)}
}

// Size returns the payload length in bytes.
func (b *Blob) Size() int { return len(b.data) }

// Bytes returns a copy of the payload.
func (b *Blob) Bytes() []byte { return bytes.Clone(b.data) }

// Reader returns a reader over the payload.
func (b *Blob) Reader() io.Reader { return bytes.NewReader(b.data) }

// Assembly is the raw result of a finished sink.
type Assembly struct {
	Data     []byte
	Location string
}

// ToBlob tags the assembled bytes with mediaType.
func (a Assembly) ToBlob(mediaType string) *Blob {
	b := New(a.Data, mediaType)
	b.Location = a.Location
	return b
}

// Sink consumes a byte-chunk stream.
// Finish is called once after the last Write and reports the assembled value;
// Abort is called instead when the producing stream failed.
type Sink interface {
	io.Writer
	Finish(ctx context.Context) (Assembly, error)
	Abort(err error)
}

// Buffer is the in-memory Sink.
type Buffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	err    error
}

var _ Sink = (*Buffer)(nil)

// NewBuffer returns an empty in-memory sink.
func NewBuffer() *Buffer { return &Buffer{} }

func (s *Buffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSinkClosed
	}
	return s.buf.Write(p)
}

// Finish closes the sink and returns everything written so far.
func (s *Buffer) Finish(ctx context.Context) (Assembly, error) {
	if err := ctx.Err(); err != nil {
		return Assembly{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Assembly{}, s.err
	}
	s.closed = true
	return Assembly{Data: bytes.Clone(s.buf.Bytes())}, nil
}

// Abort discards the buffered bytes; a later Finish reports err.
func (s *Buffer) Abort(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.err = err
	s.buf.Reset()
}
