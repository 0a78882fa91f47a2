package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
)

// RankBy selects the ordering of trader results.
type RankBy string

const (
	RankByProfit RankBy = "profit"
	RankByVolume RankBy = "volume"
)

// TraderFilter holds the tunable inclusion thresholds. A wallet is kept when
// TotalProfit > MinProfit, it made at least MinWhaleTrades whale-sized trades
// and its windowed volume is at least MinVolume.
type TraderFilter struct {
	MinProfit      float64
	MinWhaleTrades int
	MinVolume      float64
	SortBy         RankBy
	Limit          int
}

// DefaultTraderFilter returns the thresholds used by the dashboard.
func DefaultTraderFilter() TraderFilter {
	return TraderFilter{
		MinProfit:      0,
		MinWhaleTrades: 3,
		MinVolume:      15000,
		SortBy:         RankByProfit,
		Limit:          20,
	}
}

// TraderAggregator builds ranked per-wallet statistics over a trailing
// window. Each call to Aggregate starts from a fresh ledger.
type TraderAggregator struct {
	Window         time.Duration
	WhaleThreshold float64
	Filter         TraderFilter
	Estimator      UnrealizedPnLEstimator
}

// NewTraderAggregator returns an aggregator with a 30 day window and the
// flat markup estimator.
func NewTraderAggregator(whaleThreshold float64, filter TraderFilter) *TraderAggregator {
	return &TraderAggregator{
		Window:         30 * 24 * time.Hour,
		WhaleThreshold: whaleThreshold,
		Filter:         filter,
		Estimator:      NewFlatMarkupEstimator(DefaultMarkup),
	}
}

// Aggregate computes, filters, ranks and truncates trader statistics. The
// input slice is not modified.
func (a *TraderAggregator) Aggregate(trades []domain.Trade, now time.Time) []domain.TraderStats {
	all := a.Compute(trades, now)

	out := make([]domain.TraderStats, 0, len(all))
	for _, s := range all {
		if s.TotalProfit <= a.Filter.MinProfit {
			continue
		}
		if s.WhaleTradeCount30d < a.Filter.MinWhaleTrades {
			continue
		}
		if s.TotalVolume30d < a.Filter.MinVolume {
			continue
		}
		out = append(out, s)
	}

	RankTraders(out, a.Filter.SortBy)
	if a.Filter.Limit > 0 && len(out) > a.Filter.Limit {
		out = out[:a.Filter.Limit]
	}
	return out
}

// Compute returns unfiltered, unsorted statistics for every wallet seen.
func (a *TraderAggregator) Compute(trades []domain.Trade, now time.Time) []domain.TraderStats {
	window := a.Window
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	windowStart := now.Add(-window).Unix()
	windowDays := window.Hours() / 24

	ordered := make([]domain.Trade, len(trades))
	copy(ordered, trades)
	SortByTime(ordered)

	ledger := NewLedger()
	byWallet := make(map[string]*domain.TraderStats)
	var order []string

	for _, t := range ordered {
		if t.Wallet == "" {
			continue
		}
		s, ok := byWallet[t.Wallet]
		if !ok {
			s = &domain.TraderStats{Wallet: t.Wallet, RecentActivity: t.TimestampSec}
			byWallet[t.Wallet] = s
			order = append(order, t.Wallet)
		}
		if t.TimestampSec > s.RecentActivity {
			s.RecentActivity = t.TimestampSec
		}

		if t.TimestampSec < windowStart {
			continue
		}
		s.TotalVolume30d += t.Amount
		s.TradeCount30d++
		if t.IsWhale(a.WhaleThreshold) {
			s.WhaleTradeCount30d++
		}
		if ev, ok := ledger.Apply(t); ok {
			s.RealizedPnL += ev.PnL
			s.TotalPositions++
			if ev.IsWin {
				s.WinningPositions++
			}
		}
	}

	open := make(map[string][]domain.Position)
	for _, p := range ledger.Positions() {
		open[p.Wallet] = append(open[p.Wallet], p)
	}

	estimator := a.Estimator
	if estimator == nil {
		estimator = NewFlatMarkupEstimator(DefaultMarkup)
	}

	out := make([]domain.TraderStats, 0, len(order))
	for _, w := range order {
		s := byWallet[w]
		s.UnrealizedPnL = estimator.Estimate(open[w])
		s.TotalProfit = s.RealizedPnL + s.UnrealizedPnL
		s.WinRate = WinRate(s.WinningPositions, s.TotalPositions)
		if windowDays > 0 {
			s.ProfitChange24h = math.Round(s.TotalProfit / windowDays)
		}
		s.Incomplete = ledger.Incomplete(w)
		s.UnrealizedEstimator = estimator.Name()
		s.RecentActivityLabel = FormatRelative(s.RecentActivity, now)
		out = append(out, *s)
	}
	return out
}

// RankTraders sorts in place, descending by the chosen key with the wallet
// address as a stable tie-break.
func RankTraders(stats []domain.TraderStats, by RankBy) {
	sort.SliceStable(stats, func(i, j int) bool {
		var a, b float64
		if by == RankByVolume {
			a, b = stats[i].TotalVolume30d, stats[j].TotalVolume30d
		} else {
			a, b = stats[i].TotalProfit, stats[j].TotalProfit
		}
		if a != b {
			return a > b
		}
		return stats[i].Wallet < stats[j].Wallet
	})
}

// WinRate returns wins/total as a percentage, or 0 when nothing closed.
func WinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}
