// Package store provides the storage backends behind the facade.
package store

import (
	"context"
	"fmt"

	"github.com/heysubinoy/kvgate/pkg/kv"
)

const (
	RedisBackend  = "redis"
	MemoryBackend = "memory"
)

// Backend is a kv.Store owning a connection that can be checked and released.
type Backend interface {
	kv.Store

	Ping(ctx context.Context) error
	Close() error
}

// Open constructs the named backend. The redis config is ignored for the
// memory backend.
func Open(backend string, cfg RedisConfig) (Backend, error) {
	switch backend {
	case RedisBackend, "":
		s, err := NewRedisStore(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case MemoryBackend:
		return NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}
