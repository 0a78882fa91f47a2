package analytics

import (
	"fmt"
	"testing"

	"github.com/emmatheo/polyscop/internal/domain"
)

func marketTrade(market, wallet string, amount float64) domain.Trade {
	return domain.Trade{Market: market, Wallet: wallet, Amount: amount, Size: amount, Price: 1}
}

func TestAggregateMarketsRanking(t *testing.T) {
	trades := []domain.Trade{
		marketTrade("M1", "a", 100),
		marketTrade("M2", "b", 200),
		marketTrade("M2", "c", 100),
	}
	got := AggregateMarkets(trades, 5000, 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 markets, got %d", len(got))
	}
	if got[0].Market != "M2" || got[1].Market != "M1" {
		t.Errorf("expected M2 before M1, got %s, %s", got[0].Market, got[1].Market)
	}
	if got[0].Volume != 300 || got[0].TradeCount != 2 {
		t.Errorf("unexpected M2 stats %+v", got[0])
	}
}

func TestAggregateMarketsWhaleWallets(t *testing.T) {
	trades := []domain.Trade{
		marketTrade("M", "whale", 6000),
		marketTrade("M", "whale", 7000),
		marketTrade("M", "other", 5000),
		marketTrade("M", "small", 4999),
	}
	got := AggregateMarkets(trades, 5000, 10)
	if got[0].WhaleWalletCount != 2 {
		t.Errorf("expected 2 distinct whale wallets, got %d", got[0].WhaleWalletCount)
	}
}

func TestAggregateMarketsExactTitleAndLimit(t *testing.T) {
	var trades []domain.Trade
	for i := 0; i < 15; i++ {
		trades = append(trades, marketTrade(fmt.Sprintf("Market %02d", i), "w", float64(100+i)))
	}
	trades = append(trades, marketTrade("market 14", "w", 1))

	got := AggregateMarkets(trades, 5000, 0)
	if len(got) != DefaultTopMarkets {
		t.Fatalf("expected %d markets, got %d", DefaultTopMarkets, len(got))
	}
	if got[0].Market != "Market 14" || got[0].TradeCount != 1 {
		t.Errorf("titles differing in case must not merge, got %+v", got[0])
	}
}
