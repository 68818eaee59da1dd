package store

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/heysubinoy/kvgate/internal/truststore"
	"github.com/heysubinoy/kvgate/pkg/kv"
	"github.com/redis/go-redis/v9"
)

// RedisConfig describes how to reach the remote store.
type RedisConfig struct {
	Host string
	Port int
	TLS  TLSConfig
}

// TLSConfig enables encrypted transport validated against a trust store.
type TLSConfig struct {
	Enabled            bool
	TrustStore         string
	TrustStorePassword string
	TrustStoreType     truststore.Type
	// ServerName overrides the name verified against the server certificate.
	// Defaults to Host.
	ServerName string
}

// Addr returns the host:port address of the store.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RedisOption customises the underlying client options.
type RedisOption func(*redis.Options)

// RedisStore is a kv.Store backed by a remote Redis server. A single
// RedisStore is shared by all callers; the client pools connections
// internally.
type RedisStore struct {
	client *redis.Client
}

// Compile-time check to ensure RedisStore implements kv.Store.
var _ kv.Store = (*RedisStore)(nil)

// NewRedisStore provisions a client for the configured store. When TLS is
// enabled the trust store is loaded up front and any failure to read or
// decode it is returned without producing a client. Connections are opened
// lazily on first use.
func NewRedisStore(cfg RedisConfig, opts ...RedisOption) (*RedisStore, error) {
	options := &redis.Options{Addr: cfg.Addr()}

	if cfg.TLS.Enabled {
		tlsConfig, err := newTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		options.TLSConfig = tlsConfig
	}

	for _, fn := range opts {
		fn(options)
	}

	return &RedisStore{client: redis.NewClient(options)}, nil
}

func newTLSConfig(cfg RedisConfig) (*tls.Config, error) {
	if cfg.TLS.TrustStore == "" {
		return nil, errors.New("tls enabled but no trust store configured")
	}
	pool, err := truststore.Load(cfg.TLS.TrustStore, cfg.TLS.TrustStorePassword, cfg.TLS.TrustStoreType)
	if err != nil {
		return nil, err
	}
	serverName := cfg.TLS.ServerName
	if serverName == "" {
		serverName = cfg.Host
	}
	return &tls.Config{
		RootCAs:    pool,
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}, nil
}

// Get retrieves a value by key. A missing key returns "", false and no error.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set stores a key-value pair with no expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks the store is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the client's connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
