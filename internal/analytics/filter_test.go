package analytics

import (
	"testing"

	"github.com/emmatheo/polyscop/internal/domain"
)

func TestTradeQueryMatch(t *testing.T) {
	tr := mkTrade("0xAbCdef", "t1", domain.SideBuy, 20000, 0.5, 100)
	tr.Market = "Will Bitcoin close above 100k?"
	tr.Category = domain.CategoryCrypto

	tests := []struct {
		name  string
		query TradeQuery
		want  bool
	}{
		{"empty", TradeQuery{}, true},
		{"wallet search", TradeQuery{Search: "abcd"}, true},
		{"market search", TradeQuery{Search: "BITCOIN"}, true},
		{"outcome search", TradeQuery{Search: "yes"}, true},
		{"search miss", TradeQuery{Search: "election"}, false},
		{"amount at minimum", TradeQuery{MinAmount: 10000}, true},
		{"amount below minimum", TradeQuery{MinAmount: 10001}, false},
		{"category", TradeQuery{Category: "crypto"}, true},
		{"category all", TradeQuery{Category: "All"}, true},
		{"category miss", TradeQuery{Category: "Sports"}, false},
	}
	for _, tc := range tests {
		if got := tc.query.Match(tr); got != tc.want {
			t.Errorf("%s: Match = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTradeQueryApplyLimit(t *testing.T) {
	trades := []domain.Trade{
		mkTrade("0xa", "t1", domain.SideBuy, 100, 0.5, 300),
		mkTrade("0xb", "t1", domain.SideBuy, 100, 0.5, 200),
		mkTrade("0xc", "t1", domain.SideBuy, 100, 0.5, 100),
	}
	got := TradeQuery{Limit: 2}.Apply(trades)
	if len(got) != 2 || got[0].Wallet != "0xa" || got[1].Wallet != "0xb" {
		t.Errorf("expected first two trades in input order, got %+v", got)
	}
	if got := (TradeQuery{Search: "nobody"}).Apply(trades); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", got)
	}
}
