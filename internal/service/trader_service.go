package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emmatheo/polyscop/internal/analytics"
	"github.com/emmatheo/polyscop/internal/domain"
)

// TraderService ranks wallets over the trailing window.
type TraderService struct {
	trades    *TradeService
	store     domain.TradeStore
	prices    *PriceService
	agg       analytics.TraderAggregator
	scanLimit int
	logger    *slog.Logger
}

// NewTraderService creates a TraderService. When store is non-nil the window
// is read from persisted history instead of the latest upstream batch.
func NewTraderService(trades *TradeService, store domain.TradeStore, prices *PriceService, agg analytics.TraderAggregator, scanLimit int, logger *slog.Logger) *TraderService {
	if scanLimit <= 0 {
		scanLimit = MaxListLimit
	}
	if agg.Window <= 0 {
		agg.Window = 30 * 24 * time.Hour
	}
	return &TraderService{
		trades:    trades,
		store:     store,
		prices:    prices,
		agg:       agg,
		scanLimit: scanLimit,
		logger:    logger.With(slog.String("component", "trader_service")),
	}
}

// Top returns the limit best-ranked traders. search then narrows that
// leaderboard by case-insensitive wallet substring, so a wallet ranked below
// the cut is not found.
func (s *TraderService) Top(ctx context.Context, search string, limit int) ([]domain.TraderStats, error) {
	now := s.trades.Now()
	trades, err := s.window(ctx)
	if err != nil {
		return nil, err
	}

	agg := s.agg
	agg.Filter.Limit = ClampLimit(limit, s.agg.Filter.Limit)
	agg.Estimator = s.prices.Estimator(ctx, trades)
	ranked := agg.Aggregate(trades, now)

	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return ranked, nil
	}
	out := make([]domain.TraderStats, 0, len(ranked))
	for _, st := range ranked {
		if strings.Contains(strings.ToLower(st.Wallet), search) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *TraderService) window(ctx context.Context) ([]domain.Trade, error) {
	if s.store != nil {
		since := s.trades.Now().Add(-s.agg.Window).Unix()
		trades, err := s.store.ListSince(ctx, since, s.scanLimit)
		if err != nil {
			return nil, fmt.Errorf("trader_service: load window: %w", err)
		}
		return trades, nil
	}
	return s.trades.Recent(ctx, s.scanLimit, 0)
}
