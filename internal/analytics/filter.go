package analytics

import (
	"strings"

	"github.com/emmatheo/polyscop/internal/domain"
)

// TradeQuery narrows a trade batch for the listing endpoints.
type TradeQuery struct {
	Search    string
	MinAmount float64
	Category  string
	Limit     int
}

// Match reports whether t passes the query. Search matches wallet, market or
// outcome case-insensitively. An empty or "all" category matches everything.
func (q TradeQuery) Match(t domain.Trade) bool {
	if t.Amount < q.MinAmount {
		return false
	}
	if c := strings.TrimSpace(q.Category); c != "" && !strings.EqualFold(c, "all") {
		if !strings.EqualFold(string(t.Category), c) {
			return false
		}
	}
	if s := strings.ToLower(strings.TrimSpace(q.Search)); s != "" {
		if !strings.Contains(strings.ToLower(t.Wallet), s) &&
			!strings.Contains(strings.ToLower(t.Market), s) &&
			!strings.Contains(strings.ToLower(string(t.Outcome)), s) {
			return false
		}
	}
	return true
}

// Apply returns the matching trades, truncated to Limit when positive.
func (q TradeQuery) Apply(trades []domain.Trade) []domain.Trade {
	out := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if !q.Match(t) {
			continue
		}
		out = append(out, t)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out
}
