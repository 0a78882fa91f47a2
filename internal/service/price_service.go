package service

import (
	"context"
	"log/slog"

	"github.com/emmatheo/polyscop/internal/analytics"
	"github.com/emmatheo/polyscop/internal/domain"
)

// Estimator kinds accepted by engine.unrealized_estimator.
const (
	EstimatorFlat = "flat"
	EstimatorMark = "mark"
)

// PriceService records last traded prices and builds the unrealized P&L
// estimator used by the trader and wallet endpoints.
type PriceService struct {
	cache  domain.PriceCache
	kind   string
	markup float64
	logger *slog.Logger
}

// NewPriceService creates a PriceService. cache may be nil, in which case the
// mark-to-market estimator only sees prices from the batch at hand.
func NewPriceService(cache domain.PriceCache, kind string, markup float64, logger *slog.Logger) *PriceService {
	if markup <= 0 {
		markup = analytics.DefaultMarkup
	}
	return &PriceService{
		cache:  cache,
		kind:   kind,
		markup: markup,
		logger: logger.With(slog.String("component", "price_service")),
	}
}

// Record stores the newest price per asset in trades.
func (s *PriceService) Record(ctx context.Context, trades []domain.Trade) error {
	if s.cache == nil {
		return nil
	}
	for asset, price := range analytics.LastTradePrices(trades) {
		newest := newestTrade(trades, asset)
		if err := s.cache.SetPrice(ctx, asset, price, newest.Time()); err != nil {
			return err
		}
	}
	return nil
}

func newestTrade(trades []domain.Trade, asset string) domain.Trade {
	var newest domain.Trade
	for _, t := range trades {
		if t.AssetID == asset && t.TimestampSec >= newest.TimestampSec {
			newest = t
		}
	}
	return newest
}

// Estimator returns the configured estimator for a request over trades.
func (s *PriceService) Estimator(ctx context.Context, trades []domain.Trade) analytics.UnrealizedPnLEstimator {
	flat := analytics.NewFlatMarkupEstimator(s.markup)
	if s.kind != EstimatorMark {
		return flat
	}
	return analytics.MarkToMarketEstimator{
		Prices: &cachedPrices{
			ctx:      ctx,
			cache:    s.cache,
			fallback: analytics.LastTradePrices(trades),
			logger:   s.logger,
		},
		Fallback: flat,
	}
}

// cachedPrices reads the price cache first and fills gaps from the batch.
type cachedPrices struct {
	ctx      context.Context
	cache    domain.PriceCache
	fallback analytics.PriceMap
	logger   *slog.Logger
}

func (c *cachedPrices) Prices(assetIDs []string) map[string]float64 {
	out := c.fallback.Prices(assetIDs)
	if c.cache == nil {
		return out
	}
	cached, err := c.cache.GetPrices(c.ctx, assetIDs)
	if err != nil {
		c.logger.WarnContext(c.ctx, "price_service: cache lookup failed", slog.String("error", err.Error()))
		return out
	}
	for id, p := range cached {
		out[id] = p
	}
	return out
}
