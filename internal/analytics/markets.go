package analytics

import (
	"sort"

	"github.com/emmatheo/polyscop/internal/domain"
)

// DefaultTopMarkets is the number of markets kept by AggregateMarkets when no
// limit is given.
const DefaultTopMarkets = 10

// AggregateMarkets groups trades by exact market title and returns the top
// markets by volume. whaleWalletCount counts distinct wallets with at least
// one trade at or above whaleThreshold.
func AggregateMarkets(trades []domain.Trade, whaleThreshold float64, limit int) []domain.MarketStats {
	if limit <= 0 {
		limit = DefaultTopMarkets
	}

	type acc struct {
		stats  domain.MarketStats
		whales map[string]struct{}
	}
	byMarket := make(map[string]*acc)

	for _, t := range trades {
		a, ok := byMarket[t.Market]
		if !ok {
			a = &acc{
				stats:  domain.MarketStats{Market: t.Market},
				whales: make(map[string]struct{}),
			}
			byMarket[t.Market] = a
		}
		a.stats.Volume += t.Amount
		a.stats.TradeCount++
		if t.IsWhale(whaleThreshold) && t.Wallet != "" {
			a.whales[t.Wallet] = struct{}{}
		}
	}

	out := make([]domain.MarketStats, 0, len(byMarket))
	for _, a := range byMarket {
		a.stats.WhaleWalletCount = len(a.whales)
		out = append(out, a.stats)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Volume != out[j].Volume {
			return out[i].Volume > out[j].Volume
		}
		return out[i].Market < out[j].Market
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
