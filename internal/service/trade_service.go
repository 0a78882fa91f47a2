// Package service composes the upstream client, caches and stores with the
// analytics core for the HTTP handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emmatheo/polyscop/internal/analytics"
	"github.com/emmatheo/polyscop/internal/domain"
)

// MaxListLimit bounds every list endpoint.
const MaxListLimit = 1000

// TradeSource fetches normalized trades from upstream. It is implemented by
// polymarket.DataClient.
type TradeSource interface {
	FetchNormalized(ctx context.Context, limit int, minAmount float64) ([]domain.Trade, int, error)
}

// TradeServiceConfig tunes upstream fetches.
type TradeServiceConfig struct {
	FetchLimit  int
	MinAmount   float64
	SnapshotTTL time.Duration
}

// TradeService fetches recent trades and shares them between handlers
// through a short-lived snapshot in the trade cache.
type TradeService struct {
	source TradeSource
	cache  domain.TradeCache
	cfg    TradeServiceConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewTradeService creates a TradeService. cache may be nil to disable
// snapshots.
func NewTradeService(source TradeSource, cache domain.TradeCache, cfg TradeServiceConfig, logger *slog.Logger) *TradeService {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 100
	}
	return &TradeService{
		source: source,
		cache:  cache,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "trade_service")),
		now:    time.Now,
	}
}

// Now returns the service clock.
func (s *TradeService) Now() time.Time { return s.now() }

// MinAmount returns the configured upstream cash filter.
func (s *TradeService) MinAmount() float64 { return s.cfg.MinAmount }

// Recent returns up to limit trades of at least minAmount, newest first as
// upstream delivers them. A cached snapshot is reused while fresh.
func (s *TradeService) Recent(ctx context.Context, limit int, minAmount float64) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = s.cfg.FetchLimit
	}
	key := fmt.Sprintf("latest:%d:%g", limit, minAmount)

	if s.cache != nil && s.cfg.SnapshotTTL > 0 {
		trades, err := s.cache.GetBatch(ctx, key)
		if err == nil {
			return trades, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "trade_service: snapshot read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	trades, dropped, err := s.source.FetchNormalized(ctx, limit, minAmount)
	if err != nil {
		return nil, fmt.Errorf("trade_service: fetch: %w", err)
	}
	if dropped > 0 {
		s.logger.DebugContext(ctx, "trade_service: dropped invalid records", slog.Int("dropped", dropped))
	}

	if s.cache != nil && s.cfg.SnapshotTTL > 0 {
		if err := s.cache.SetBatch(ctx, key, trades, s.cfg.SnapshotTTL); err != nil {
			s.logger.WarnContext(ctx, "trade_service: snapshot write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return trades, nil
}

// List fetches the recent batch and applies q. The cash filter is pushed
// upstream when it is stricter than the configured one.
func (s *TradeService) List(ctx context.Context, q analytics.TradeQuery) ([]domain.Trade, error) {
	q.Limit = ClampLimit(q.Limit, s.cfg.FetchLimit)
	minAmount := s.cfg.MinAmount
	if q.MinAmount > minAmount {
		minAmount = q.MinAmount
	}

	trades, err := s.Recent(ctx, s.cfg.FetchLimit, minAmount)
	if err != nil {
		return nil, err
	}

	out := q.Apply(trades)
	now := s.now()
	for i := range out {
		out[i].TimeAgo = analytics.FormatRelative(out[i].TimestampSec, now)
	}
	return out, nil
}

// ClampLimit maps a requested limit into [1, MaxListLimit], using def when
// the request is zero or negative.
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		limit = def
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit
}
