package analytics

import (
	"sort"

	"github.com/emmatheo/polyscop/internal/domain"
)

// PriceHistory keeps a bounded ring of price points per market and caps the
// number of markets tracked, evicting the least recently updated one. It is
// owned by a single session and is not safe for concurrent use.
type PriceHistory struct {
	maxPoints  int
	maxMarkets int
	markets    map[string]*marketRing
	tick       uint64
}

type marketRing struct {
	points  []domain.PriceHistoryPoint
	start   int
	touched uint64
}

// NewPriceHistory creates a history capped at maxPoints per market and
// maxMarkets markets.
func NewPriceHistory(maxPoints, maxMarkets int) *PriceHistory {
	if maxPoints <= 0 {
		maxPoints = 50
	}
	if maxMarkets <= 0 {
		maxMarkets = 10
	}
	return &PriceHistory{
		maxPoints:  maxPoints,
		maxMarkets: maxMarkets,
		markets:    make(map[string]*marketRing),
	}
}

// Record appends a point for market.
func (h *PriceHistory) Record(market string, p domain.PriceHistoryPoint) {
	h.tick++
	r, ok := h.markets[market]
	if !ok {
		if len(h.markets) >= h.maxMarkets {
			h.evictOldest()
		}
		r = &marketRing{points: make([]domain.PriceHistoryPoint, 0, h.maxPoints)}
		h.markets[market] = r
	}
	r.touched = h.tick

	if len(r.points) < h.maxPoints {
		r.points = append(r.points, p)
		return
	}
	r.points[r.start] = p
	r.start = (r.start + 1) % h.maxPoints
}

// RecordTrades records the latest trade per market in the batch, using the
// trade price as a percentage. Only the maxMarkets most recently traded
// markets of the batch are recorded, oldest first, so the newest market ends
// up most recently touched and a wide batch cannot evict its own markets.
func (h *PriceHistory) RecordTrades(trades []domain.Trade, nowMs int64) {
	latest := make(map[string]domain.Trade)
	for _, t := range trades {
		if prev, ok := latest[t.Market]; !ok || t.TimestampSec >= prev.TimestampSec {
			latest[t.Market] = t
		}
	}

	markets := make([]string, 0, len(latest))
	for m := range latest {
		markets = append(markets, m)
	}
	sort.Slice(markets, func(i, j int) bool {
		ti, tj := latest[markets[i]].TimestampSec, latest[markets[j]].TimestampSec
		if ti != tj {
			return ti > tj
		}
		return markets[i] < markets[j]
	})
	if len(markets) > h.maxMarkets {
		markets = markets[:h.maxMarkets]
	}

	for i := len(markets) - 1; i >= 0; i-- {
		t := latest[markets[i]]
		h.Record(markets[i], domain.PriceHistoryPoint{
			TimestampMs:    nowMs,
			PriceAsPercent: t.Price * 100,
			Outcome:        t.Outcome,
		})
	}
}

// History returns the points of one market, oldest first.
func (h *PriceHistory) History(market string) []domain.PriceHistoryPoint {
	r, ok := h.markets[market]
	if !ok {
		return nil
	}
	out := make([]domain.PriceHistoryPoint, 0, len(r.points))
	out = append(out, r.points[r.start:]...)
	out = append(out, r.points[:r.start]...)
	return out
}

// Snapshot returns every tracked market, most recently updated first.
func (h *PriceHistory) Snapshot() []domain.MarketHistory {
	names := make([]string, 0, len(h.markets))
	for m := range h.markets {
		names = append(names, m)
	}
	sort.Slice(names, func(i, j int) bool {
		return h.markets[names[i]].touched > h.markets[names[j]].touched
	})
	out := make([]domain.MarketHistory, 0, len(names))
	for _, m := range names {
		out = append(out, domain.MarketHistory{Market: m, History: h.History(m)})
	}
	return out
}

// Len returns the number of tracked markets.
func (h *PriceHistory) Len() int {
	return len(h.markets)
}

func (h *PriceHistory) evictOldest() {
	var oldest string
	var oldestTick uint64
	first := true
	for m, r := range h.markets {
		if first || r.touched < oldestTick {
			oldest, oldestTick, first = m, r.touched, false
		}
	}
	if !first {
		delete(h.markets, oldest)
	}
}
