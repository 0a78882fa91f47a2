// Package redis implements the domain cache, bus, limiter and lock
// interfaces using go-redis/v9. Keys are namespaced under "polyscop:".
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "polyscop:"

// key builds a namespaced key such as "polyscop:price:<asset id>".
func key(kind, id string) string {
	return keyPrefix + kind + ":" + id
}

// ClientConfig holds connection parameters for the Redis client. Mode names
// the running polyscop mode and shows up in CLIENT LIST.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
	Mode       string
}

// ClientName is the connection name reported to Redis for cfg.
func (cfg ClientConfig) ClientName() string {
	if cfg.Mode == "" {
		return "polyscop"
	}
	return "polyscop-" + cfg.Mode
}

// Client holds the shared connection pool behind the caches, the signal bus
// and the ingest lock.
type Client struct {
	rdb *redis.Client
}

// New connects and pings the server.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
		ClientName: cfg.ClientName(),
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Ping backs the "redis" readiness check.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying returns the raw *redis.Client.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
