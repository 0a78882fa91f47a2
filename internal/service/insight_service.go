package service

import (
	"context"

	"github.com/emmatheo/polyscop/internal/analytics"
	"github.com/emmatheo/polyscop/internal/domain"
)

// InsightService derives whale-flow insights from the latest batch.
type InsightService struct {
	trades         *TradeService
	momentumWindow int
	hugeThreshold  float64
}

// NewInsightService creates an InsightService.
func NewInsightService(trades *TradeService, momentumWindow int, hugeThreshold float64) *InsightService {
	if momentumWindow <= 0 {
		momentumWindow = 20
	}
	return &InsightService{trades: trades, momentumWindow: momentumWindow, hugeThreshold: hugeThreshold}
}

func (s *InsightService) recent(ctx context.Context) ([]domain.Trade, error) {
	return s.trades.Recent(ctx, 0, s.trades.MinAmount())
}

// Momentum reports the YES/NO bias of the last n trades; n <= 0 uses the
// configured window.
func (s *InsightService) Momentum(ctx context.Context, n int) (domain.Momentum, error) {
	trades, err := s.recent(ctx)
	if err != nil {
		return domain.Momentum{}, err
	}
	if n <= 0 {
		n = s.momentumWindow
	}
	return analytics.Momentum(trades, n), nil
}

// Sentiment reports YES/NO counts per category.
func (s *InsightService) Sentiment(ctx context.Context) ([]domain.CategorySentiment, error) {
	trades, err := s.recent(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.Sentiment(trades), nil
}

// Volume reports hourly volume buckets over the last hours (default 24).
func (s *InsightService) Volume(ctx context.Context, hours int) ([]domain.VolumeBucket, error) {
	trades, err := s.recent(ctx)
	if err != nil {
		return nil, err
	}
	if hours <= 0 || hours > 168 {
		hours = 24
	}
	return analytics.HourlyVolume(trades, s.trades.Now(), hours), nil
}

// HugeWhales returns the trades at or above the huge-whale threshold, newest
// first, truncated to limit.
func (s *InsightService) HugeWhales(ctx context.Context, limit int) ([]domain.Trade, error) {
	trades, err := s.recent(ctx)
	if err != nil {
		return nil, err
	}
	out := analytics.HugeWhales(trades, s.hugeThreshold)
	if out == nil {
		out = []domain.Trade{}
	}
	if limit = ClampLimit(limit, 50); len(out) > limit {
		out = out[:limit]
	}
	now := s.trades.Now()
	for i := range out {
		out[i].TimeAgo = analytics.FormatRelative(out[i].TimestampSec, now)
	}
	return out, nil
}
