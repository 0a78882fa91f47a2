// Package memory provides in-process implementations of the domain cache,
// limiter and lock interfaces. They back a single instance when Redis is
// not configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
)

type batchEntry struct {
	trades  []domain.Trade
	expires time.Time
}

// TradeCache is a TTL map of trade batches.
type TradeCache struct {
	mu      sync.RWMutex
	entries map[string]batchEntry
	now     func() time.Time
}

// NewTradeCache returns an empty TradeCache.
func NewTradeCache() *TradeCache {
	return &TradeCache{entries: make(map[string]batchEntry), now: time.Now}
}

// SetBatch stores a copy of trades under key.
func (c *TradeCache) SetBatch(_ context.Context, key string, trades []domain.Trade, ttl time.Duration) error {
	cp := make([]domain.Trade, len(trades))
	copy(cp, trades)
	e := batchEntry{trades: cp}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// GetBatch returns a copy of the batch under key or domain.ErrNotFound.
func (c *TradeCache) GetBatch(_ context.Context, key string) ([]domain.Trade, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || (!e.expires.IsZero() && !c.now().Before(e.expires)) {
		return nil, domain.ErrNotFound
	}
	cp := make([]domain.Trade, len(e.trades))
	copy(cp, e.trades)
	return cp, nil
}

type pricePoint struct {
	price float64
	ts    time.Time
}

// PriceCache keeps the last price per asset.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]pricePoint
}

// NewPriceCache returns an empty PriceCache.
func NewPriceCache() *PriceCache {
	return &PriceCache{prices: make(map[string]pricePoint)}
}

// SetPrice records price for assetID.
func (c *PriceCache) SetPrice(_ context.Context, assetID string, price float64, ts time.Time) error {
	c.mu.Lock()
	c.prices[assetID] = pricePoint{price: price, ts: ts}
	c.mu.Unlock()
	return nil
}

// GetPrice returns the last price for assetID or domain.ErrNotFound.
func (c *PriceCache) GetPrice(_ context.Context, assetID string) (float64, time.Time, error) {
	c.mu.RLock()
	p, ok := c.prices[assetID]
	c.mu.RUnlock()
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p.price, p.ts, nil
}

// GetPrices returns the known prices among assetIDs.
func (c *PriceCache) GetPrices(_ context.Context, assetIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(assetIDs))
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range assetIDs {
		if p, ok := c.prices[id]; ok {
			out[id] = p.price
		}
	}
	return out, nil
}

// RateLimiter is a sliding-window limiter over request timestamps per key.
type RateLimiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// NewRateLimiter returns an empty RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{hits: make(map[string][]time.Time), now: time.Now}
}

// Allow reports whether key has made fewer than limit requests in the last
// window, counting this one if so.
func (rl *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := rl.now()
	cutoff := now.Add(-window)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	kept := rl.hits[key][:0]
	for _, ts := range rl.hits[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= limit {
		rl.hits[key] = kept
		return false, nil
	}
	rl.hits[key] = append(kept, now)
	return true, nil
}

// LockManager is a process-local lock table with expiry.
type LockManager struct {
	mu    sync.Mutex
	held  map[string]uint64
	until map[string]time.Time
	seq   uint64
	now   func() time.Time
}

// NewLockManager returns an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{
		held:  make(map[string]uint64),
		until: make(map[string]time.Time),
		now:   time.Now,
	}
}

// Acquire takes key for ttl or returns domain.ErrLockHeld.
func (lm *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (domain.Lease, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if _, ok := lm.held[key]; ok && lm.now().Before(lm.until[key]) {
		return nil, domain.ErrLockHeld
	}
	lm.seq++
	lm.held[key] = lm.seq
	lm.until[key] = lm.now().Add(ttl)
	return &lease{lm: lm, key: key, token: lm.seq}, nil
}

type lease struct {
	lm    *LockManager
	key   string
	token uint64
	once  sync.Once
}

func (l *lease) Refresh(_ context.Context, ttl time.Duration) error {
	lm := l.lm
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.held[l.key] != l.token || !lm.now().Before(lm.until[l.key]) {
		return domain.ErrLockHeld
	}
	lm.until[l.key] = lm.now().Add(ttl)
	return nil
}

func (l *lease) Release() {
	l.once.Do(func() {
		lm := l.lm
		lm.mu.Lock()
		defer lm.mu.Unlock()
		if lm.held[l.key] == l.token {
			delete(lm.held, l.key)
			delete(lm.until, l.key)
		}
	})
}

var (
	_ domain.TradeCache  = (*TradeCache)(nil)
	_ domain.PriceCache  = (*PriceCache)(nil)
	_ domain.RateLimiter = (*RateLimiter)(nil)
	_ domain.LockManager = (*LockManager)(nil)
)
