package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
	"github.com/redis/go-redis/v9"
)

// TradeCache implements domain.TradeCache by storing a JSON-encoded trade
// batch under "polyscop:trades:{key}" with a TTL.
type TradeCache struct {
	rdb *redis.Client
}

// NewTradeCache creates a TradeCache backed by the given Client.
func NewTradeCache(c *Client) *TradeCache {
	return &TradeCache{rdb: c.Underlying()}
}

func tradeBatchKey(name string) string {
	return key("trades", name)
}

// SetBatch replaces the cached batch for key.
func (tc *TradeCache) SetBatch(ctx context.Context, key string, trades []domain.Trade, ttl time.Duration) error {
	data, err := encodeBatch(trades)
	if err != nil {
		return fmt.Errorf("redis: encode trade batch %s: %w", key, err)
	}
	if err := tc.rdb.Set(ctx, tradeBatchKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set trade batch %s: %w", key, err)
	}
	return nil
}

// GetBatch returns the cached batch for key, or domain.ErrNotFound once it
// has expired.
func (tc *TradeCache) GetBatch(ctx context.Context, key string) ([]domain.Trade, error) {
	data, err := tc.rdb.Get(ctx, tradeBatchKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get trade batch %s: %w", key, err)
	}
	trades, err := decodeBatch(data)
	if err != nil {
		return nil, fmt.Errorf("redis: decode trade batch %s: %w", key, err)
	}
	return trades, nil
}

func encodeBatch(trades []domain.Trade) ([]byte, error) {
	if trades == nil {
		trades = []domain.Trade{}
	}
	return json.Marshal(trades)
}

func decodeBatch(data []byte) ([]domain.Trade, error) {
	var trades []domain.Trade
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// Compile-time interface check.
var _ domain.TradeCache = (*TradeCache)(nil)
