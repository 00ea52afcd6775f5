// Package store persists rendered documents in an object store and exposes
// the upload as a blob.Sink for Container.ToBlob.
package store

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/ByLCY/quire/blob"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("store: object not found")

// ObjectStore saves and loads whole objects by key.
// Put returns the location the object can later be found at.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, mediaType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Sink buffers a render stream and uploads it to an ObjectStore on Finish.
type Sink struct {
	store     ObjectStore
	key       string
	mediaType string

	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	err    error
}

var _ blob.Sink = (*Sink)(nil)

// NewSink returns a sink that stores the finished stream under key as a PDF.
func NewSink(s ObjectStore, key string) *Sink {
	return &Sink{store: s, key: key, mediaType: blob.MediaTypePDF}
}

func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, blob.ErrSinkClosed
	}
	return s.buf.Write(p)
}

// Finish uploads the buffered bytes and reports their location.
func (s *Sink) Finish(ctx context.Context) (blob.Assembly, error) {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return blob.Assembly{}, err
	}
	if s.closed {
		s.mu.Unlock()
		return blob.Assembly{}, blob.ErrSinkClosed
	}
	s.closed = true
	data := bytes.Clone(s.buf.Bytes())
	s.buf.Reset()
	s.mu.Unlock()

	location, err := s.store.Put(ctx, s.key, data, s.mediaType)
	if err != nil {
		return blob.Assembly{}, fmt.Errorf("store %s: %w", s.key, err)
	}
	return blob.Assembly{Data: data, Location: location}, nil
}

// Abort drops the buffered bytes without uploading.
func (s *Sink) Abort(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.err = err
	s.buf.Reset()
}

// Factory opens a fresh Sink with a generated key for every call.
// The result is assignable to container.SinkFactory.
func Factory(s ObjectStore, prefix string) func(context.Context) (blob.Sink, error) {
	return func(ctx context.Context) (blob.Sink, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, err := NewKey(prefix)
		if err != nil {
			return nil, err
		}
		return NewSink(s, key), nil
	}
}

// NewKey returns prefix followed by 16 random bytes in hex and a .pdf suffix.
func NewKey(prefix string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate object key: %w", err)
	}
	return prefix + hex.EncodeToString(b) + ".pdf", nil
}

// Memory is an ObjectStore kept in process memory.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}}
}

func (m *Memory) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = bytes.Clone(data)
	return "memory://" + key, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return bytes.Clone(data), nil
}
