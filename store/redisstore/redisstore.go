// Package redisstore keeps rendered documents in Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/ByLCY/quire/store"
)

// Store implements store.ObjectStore on top of a Redis client.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ store.ObjectStore = (*Store)(nil)

type Option func(*Store)

// WithTTL sets the expiration for stored documents. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New connects to address and returns a store.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "quire:doc:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) typeKey(name string) string {
	return s.prefix + "type:" + name
}

// Put writes data and its media type in one transaction.
func (s *Store) Put(ctx context.Context, key string, data []byte, mediaType string) (string, error) {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(key), data, s.ttl)
	pipe.Set(ctx, s.typeKey(key), mediaType, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to save to redis: %w", err)
	}
	return "redis://" + s.key(key), nil
}

// Get loads the bytes stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to load from redis: %w", err)
	}
	return data, nil
}

// MediaType returns the media type recorded by Put.
func (s *Store) MediaType(ctx context.Context, key string) (string, error) {
	mt, err := s.client.Get(ctx, s.typeKey(key)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", fmt.Errorf("%w: %s", store.ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to load from redis: %w", err)
	}
	return mt, nil
}

// Delete removes a stored document.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key), s.typeKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}
