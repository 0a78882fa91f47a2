package analytics

import (
	"fmt"
	"testing"

	"github.com/emmatheo/polyscop/internal/domain"
)

func TestPriceHistoryRingCap(t *testing.T) {
	h := NewPriceHistory(3, 10)
	for i := 1; i <= 5; i++ {
		h.Record("M", domain.PriceHistoryPoint{TimestampMs: int64(i), PriceAsPercent: float64(i)})
	}
	pts := h.History("M")
	if len(pts) != 3 {
		t.Fatalf("expected 3 points, got %d", len(pts))
	}
	for i, want := range []int64{3, 4, 5} {
		if pts[i].TimestampMs != want {
			t.Errorf("point %d: expected ts %d, got %d", i, want, pts[i].TimestampMs)
		}
	}
}

func TestPriceHistoryEvictsLeastRecentlyUpdated(t *testing.T) {
	h := NewPriceHistory(5, 3)
	for i := 0; i < 3; i++ {
		h.Record(fmt.Sprintf("M%d", i), domain.PriceHistoryPoint{TimestampMs: int64(i)})
	}
	// Touch M0 so M1 becomes the oldest.
	h.Record("M0", domain.PriceHistoryPoint{TimestampMs: 10})
	h.Record("M3", domain.PriceHistoryPoint{TimestampMs: 11})

	if h.Len() != 3 {
		t.Fatalf("expected 3 tracked markets, got %d", h.Len())
	}
	if h.History("M1") != nil {
		t.Error("expected M1 evicted")
	}
	snap := h.Snapshot()
	if snap[0].Market != "M3" || snap[1].Market != "M0" {
		t.Errorf("expected most recent first, got %s, %s", snap[0].Market, snap[1].Market)
	}
}

func TestPriceHistoryRecordTrades(t *testing.T) {
	h := NewPriceHistory(10, 10)
	trades := []domain.Trade{
		{Market: "A", Price: 0.40, Outcome: domain.OutcomeYes, TimestampSec: 10},
		{Market: "A", Price: 0.45, Outcome: domain.OutcomeNo, TimestampSec: 20},
		{Market: "B", Price: 0.90, Outcome: domain.OutcomeYes, TimestampSec: 15},
	}
	h.RecordTrades(trades, 99_000)

	a := h.History("A")
	if len(a) != 1 || !approx(a[0].PriceAsPercent, 45) || a[0].Outcome != domain.OutcomeNo || a[0].TimestampMs != 99_000 {
		t.Errorf("unexpected A history %+v", a)
	}
	if b := h.History("B"); len(b) != 1 || !approx(b[0].PriceAsPercent, 90) {
		t.Errorf("unexpected B history %+v", b)
	}
}

func TestPriceHistoryWideBatchKeepsNewestMarkets(t *testing.T) {
	h := NewPriceHistory(50, 10)
	// 15 markets, newest first as upstream delivers them: M00 is the newest.
	var trades []domain.Trade
	for i := 0; i < 15; i++ {
		trades = append(trades, domain.Trade{
			Market:       fmt.Sprintf("M%02d", i),
			Price:        0.5,
			Outcome:      domain.OutcomeYes,
			TimestampSec: int64(1000 - i),
		})
	}
	for cycle := 1; cycle <= 5; cycle++ {
		h.RecordTrades(trades, int64(cycle)*1000)
	}

	if h.Len() != 10 {
		t.Fatalf("expected 10 tracked markets, got %d", h.Len())
	}
	for i := 0; i < 10; i++ {
		m := fmt.Sprintf("M%02d", i)
		if got := len(h.History(m)); got != 5 {
			t.Errorf("%s: expected 5 points after 5 cycles, got %d", m, got)
		}
	}
	for i := 10; i < 15; i++ {
		if h.History(fmt.Sprintf("M%02d", i)) != nil {
			t.Errorf("M%02d should not be tracked", i)
		}
	}
	if snap := h.Snapshot(); snap[0].Market != "M00" {
		t.Errorf("expected newest market first in snapshot, got %s", snap[0].Market)
	}
}
