package analytics

import "github.com/emmatheo/polyscop/internal/domain"

// UnrealizedPnLEstimator values the still-open lots of a wallet. It exists so
// the placeholder heuristic can be replaced by live pricing without touching
// the ledger.
type UnrealizedPnLEstimator interface {
	Name() string
	Estimate(positions []domain.Position) float64
}

// FlatMarkupEstimator is a heuristic: it books a fixed fraction of cost as
// unrealized profit regardless of where the market trades.
type FlatMarkupEstimator struct {
	Rate float64
}

// DefaultMarkup is the flat markup rate used when none is configured.
const DefaultMarkup = 0.10

// NewFlatMarkupEstimator returns the flat heuristic; a non-positive rate
// falls back to DefaultMarkup.
func NewFlatMarkupEstimator(rate float64) FlatMarkupEstimator {
	if rate <= 0 {
		rate = DefaultMarkup
	}
	return FlatMarkupEstimator{Rate: rate}
}

func (e FlatMarkupEstimator) Name() string {
	if e.Rate == DefaultMarkup {
		return "flat_markup_10pct"
	}
	return "flat_markup"
}

func (e FlatMarkupEstimator) Estimate(positions []domain.Position) float64 {
	var total float64
	for _, p := range positions {
		total += p.Cost * e.Rate
	}
	return total
}

// PriceLookup returns the latest known price per asset. Missing assets are
// simply absent from the result.
type PriceLookup interface {
	Prices(assetIDs []string) map[string]float64
}

// PriceMap is an in-memory PriceLookup.
type PriceMap map[string]float64

func (m PriceMap) Prices(assetIDs []string) map[string]float64 {
	out := make(map[string]float64, len(assetIDs))
	for _, id := range assetIDs {
		if p, ok := m[id]; ok {
			out[id] = p
		}
	}
	return out
}

// LastTradePrices builds a PriceMap from the most recent trade per asset.
func LastTradePrices(trades []domain.Trade) PriceMap {
	out := make(PriceMap)
	latest := make(map[string]int64)
	for _, t := range trades {
		if t.AssetID == "" {
			continue
		}
		if ts, ok := latest[t.AssetID]; ok && ts > t.TimestampSec {
			continue
		}
		latest[t.AssetID] = t.TimestampSec
		out[t.AssetID] = t.Price
	}
	return out
}

// MarkToMarketEstimator values each lot at the latest observed price for its
// asset. Lots without a known price fall back to Fallback.
type MarkToMarketEstimator struct {
	Prices   PriceLookup
	Fallback UnrealizedPnLEstimator
}

func (e MarkToMarketEstimator) Name() string { return "mark_to_market" }

func (e MarkToMarketEstimator) Estimate(positions []domain.Position) float64 {
	if len(positions) == 0 {
		return 0
	}
	ids := make([]string, 0, len(positions))
	for _, p := range positions {
		ids = append(ids, p.AssetID)
	}
	var marks map[string]float64
	if e.Prices != nil {
		marks = e.Prices.Prices(ids)
	}

	var total float64
	var unpriced []domain.Position
	for _, p := range positions {
		mark, ok := marks[p.AssetID]
		if !ok {
			unpriced = append(unpriced, p)
			continue
		}
		total += mark*p.Size - p.Cost
	}
	if len(unpriced) > 0 && e.Fallback != nil {
		total += e.Fallback.Estimate(unpriced)
	}
	return total
}
