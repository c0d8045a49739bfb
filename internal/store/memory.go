package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v2"
)

// Memory is a single-process Store. It is meant for development and
// tests; records are lost on restart and not shared between instances.
type Memory struct {
	// serializes Take so a get and its delete can't interleave with another Take
	mu    sync.Mutex
	cache *ttlcache.Cache
}

func NewMemory() *Memory {
	c := ttlcache.NewCache()
	c.SkipTTLExtensionOnHit(true)

	return &Memory{cache: c}
}

func (s *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	if err := s.cache.SetWithTTL(key, value, ttl); err != nil {
		return fmt.Errorf("memory store: set failed: %w", err)
	}

	return nil
}

func (s *Memory) Get(_ context.Context, key string) (string, error) {
	v, err := s.cache.Get(key)
	if errors.Is(err, ttlcache.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("memory store: get failed: %w", err)
	}

	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("memory store: unexpected value type %T", v)
	}

	return str, nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	err := s.cache.Remove(key)
	if err != nil && !errors.Is(err, ttlcache.ErrNotFound) {
		return fmt.Errorf("memory store: delete failed: %w", err)
	}

	return nil
}

func (s *Memory) Take(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}

	if err := s.cache.Remove(key); err != nil {
		if errors.Is(err, ttlcache.ErrNotFound) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("memory store: take failed: %w", err)
	}

	return v, nil
}

// Close stops the cache's expiry goroutine.
func (s *Memory) Close() error {
	return s.cache.Close()
}
