// Package store contains the ephemeral key-value stores verification tokens
// are recorded in. A record lives until it is taken or its TTL runs out.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("key not found")
	ErrInvalidTTL = errors.New("ttl must be bigger than 0")
)

// Store is the capability set the verification flows need.
//
// Take must be atomic per key: when several callers take the same key at
// once, at most one of them gets the value and the rest get ErrNotFound.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Take(ctx context.Context, key string) (string, error)
}
