package analytics

import (
	"reflect"
	"testing"

	"github.com/emmatheo/polyscop/internal/domain"
)

func TestLedgerAverageCost(t *testing.T) {
	l := NewLedger()
	l.Apply(mkTrade("0xA", "tok", domain.SideBuy, 10, 0.4, 100))
	l.Apply(mkTrade("0xA", "tok", domain.SideBuy, 10, 0.6, 200))

	pos, ok := l.Position(domain.PositionKey{Wallet: "0xA", AssetID: "tok"})
	if !ok {
		t.Fatal("expected open position")
	}
	if !approx(pos.Size, 20) || !approx(pos.EntryPrice, 0.5) || !approx(pos.Cost, 10) {
		t.Errorf("expected size=20 entry=0.5 cost=10, got size=%v entry=%v cost=%v", pos.Size, pos.EntryPrice, pos.Cost)
	}
}

func TestLedgerPartialRealization(t *testing.T) {
	l := NewLedger()
	l.Apply(mkTrade("0xA", "tok", domain.SideBuy, 10, 0.4, 100))
	l.Apply(mkTrade("0xA", "tok", domain.SideBuy, 10, 0.6, 200))

	ev, ok := l.Apply(mkTrade("0xA", "tok", domain.SideSell, 15, 0.7, 300))
	if !ok {
		t.Fatal("expected realization event")
	}
	if !approx(ev.PnL, 3.0) {
		t.Errorf("expected pnl 3.0, got %v", ev.PnL)
	}
	if !ev.IsWin {
		t.Error("expected win")
	}
	if !approx(ev.ClosedSize, 15) {
		t.Errorf("expected closed size 15, got %v", ev.ClosedSize)
	}

	pos, ok := l.Position(domain.PositionKey{Wallet: "0xA", AssetID: "tok"})
	if !ok {
		t.Fatal("expected remaining position")
	}
	if !approx(pos.Size, 5) || !approx(pos.Cost, 2.5) {
		t.Errorf("expected size=5 cost=2.5, got size=%v cost=%v", pos.Size, pos.Cost)
	}
}

func TestLedgerFullCloseAndOversell(t *testing.T) {
	l := NewLedger()
	l.Apply(mkTrade("0xA", "tok", domain.SideBuy, 100, 0.5, 100))

	// Selling more than held closes the lot; cost basis covers only the
	// held size while the sell value uses the full trade size.
	ev, ok := l.Apply(mkTrade("0xA", "tok", domain.SideSell, 120, 0.4, 200))
	if !ok {
		t.Fatal("expected realization event")
	}
	if !approx(ev.PnL, 48-50) {
		t.Errorf("expected pnl -2, got %v", ev.PnL)
	}
	if ev.IsWin {
		t.Error("expected loss")
	}
	if l.Len() != 0 {
		t.Errorf("expected position removed, %d open", l.Len())
	}
}

func TestLedgerSellWithoutPosition(t *testing.T) {
	l := NewLedger()
	if _, ok := l.Apply(mkTrade("0xB", "tok", domain.SideSell, 10, 0.5, 100)); ok {
		t.Error("expected no event for sell without position")
	}
	if !l.Incomplete("0xB") {
		t.Error("expected wallet flagged incomplete")
	}
	if l.Incomplete("0xA") {
		t.Error("unrelated wallet must not be flagged")
	}
	if got := l.IncompleteWallets(); !reflect.DeepEqual(got, []string{"0xB"}) {
		t.Errorf("unexpected incomplete wallets %v", got)
	}
}

func TestLedgerSkipsTradesWithoutAsset(t *testing.T) {
	l := NewLedger()
	tr := mkTrade("0xA", "", domain.SideBuy, 10, 0.5, 100)
	l.Apply(tr)
	if l.Len() != 0 {
		t.Error("trade without asset id must not open a position")
	}
}

func TestLedgerReplayDeterminism(t *testing.T) {
	seq := []domain.Trade{
		mkTrade("0xA", "t1", domain.SideBuy, 10, 0.4, 100),
		mkTrade("0xB", "t1", domain.SideBuy, 50, 0.2, 110),
		mkTrade("0xA", "t1", domain.SideSell, 4, 0.5, 120),
		mkTrade("0xA", "t2", domain.SideBuy, 30, 0.9, 130),
		mkTrade("0xB", "t1", domain.SideSell, 50, 0.1, 140),
		mkTrade("0xC", "t3", domain.SideSell, 5, 0.5, 150),
		mkTrade("0xA", "t1", domain.SideBuy, 6, 0.3, 160),
	}

	l1, l2 := NewLedger(), NewLedger()
	ev1 := l1.ApplyAll(seq)
	ev2 := l2.ApplyAll(seq)

	if !reflect.DeepEqual(ev1, ev2) {
		t.Errorf("events differ:\n%v\n%v", ev1, ev2)
	}
	if !reflect.DeepEqual(l1.Positions(), l2.Positions()) {
		t.Errorf("positions differ:\n%v\n%v", l1.Positions(), l2.Positions())
	}
	if len(ev1) != 2 {
		t.Errorf("expected 2 realization events, got %d", len(ev1))
	}
}

func TestLedgerRestore(t *testing.T) {
	l := NewLedger()
	l.Restore([]domain.Position{
		{Wallet: "0xA", AssetID: "tok", EntryPrice: 0.5, Size: 10, Cost: 5},
		{Wallet: "0xA", AssetID: "dead", Size: 0},
	}, []string{"0xZ"})

	if l.Len() != 1 {
		t.Fatalf("expected 1 restored position, got %d", l.Len())
	}
	ev, ok := l.Apply(mkTrade("0xA", "tok", domain.SideSell, 10, 0.8, 100))
	if !ok || !approx(ev.PnL, 3) {
		t.Errorf("expected pnl 3 against restored lot, got %v (ok=%v)", ev.PnL, ok)
	}
	if !l.Incomplete("0xZ") {
		t.Error("expected restored incomplete wallet")
	}
}

func TestSortByTime(t *testing.T) {
	trades := []domain.Trade{
		{ID: "c", TimestampSec: 30},
		{ID: "a", TimestampSec: 10},
		{ID: "b1", TimestampSec: 20},
		{ID: "b2", TimestampSec: 20},
	}
	SortByTime(trades)
	var ids []string
	for _, tr := range trades {
		ids = append(ids, tr.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b1", "b2", "c"}) {
		t.Errorf("unexpected order %v", ids)
	}
}
