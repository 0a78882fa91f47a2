package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest traded price per asset.
type PriceCache interface {
	SetPrice(ctx context.Context, assetID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, assetID string) (float64, time.Time, error)
	GetPrices(ctx context.Context, assetIDs []string) (map[string]float64, error)
}

// TradeCache shares the most recent normalized batch between request
// handlers for a short TTL.
type TradeCache interface {
	SetBatch(ctx context.Context, key string, trades []Trade, ttl time.Duration) error
	GetBatch(ctx context.Context, key string) ([]Trade, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	// Acquire returns ErrLockHeld when another holder owns key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	// Refresh extends the lease to ttl from now. It returns ErrLockHeld once
	// the lease has expired and been taken by someone else.
	Refresh(ctx context.Context, ttl time.Duration) error
	// Release gives the lock up. It is safe to call more than once.
	Release()
}

// SignalBus publishes whale trades to external consumers, live and as a
// capped durable stream.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}
