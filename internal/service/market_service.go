package service

import (
	"context"

	"github.com/emmatheo/polyscop/internal/analytics"
	"github.com/emmatheo/polyscop/internal/domain"
)

// MarketService ranks markets by volume in the latest batch.
type MarketService struct {
	trades         *TradeService
	whaleThreshold float64
	defaultLimit   int
}

// NewMarketService creates a MarketService.
func NewMarketService(trades *TradeService, whaleThreshold float64, defaultLimit int) *MarketService {
	if defaultLimit <= 0 {
		defaultLimit = analytics.DefaultTopMarkets
	}
	return &MarketService{trades: trades, whaleThreshold: whaleThreshold, defaultLimit: defaultLimit}
}

// Top returns the busiest markets.
func (s *MarketService) Top(ctx context.Context, limit int) ([]domain.MarketStats, error) {
	trades, err := s.trades.Recent(ctx, 0, s.trades.MinAmount())
	if err != nil {
		return nil, err
	}
	return analytics.AggregateMarkets(trades, s.whaleThreshold, ClampLimit(limit, s.defaultLimit)), nil
}
