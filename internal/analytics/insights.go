package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
)

// Momentum thresholds on the YES share of recent whale trades.
const (
	BullishAbove = 60.0
	BearishBelow = 40.0
)

// Momentum measures the YES/NO bias over the n most recent trades.
func Momentum(trades []domain.Trade, n int) domain.Momentum {
	recent := newestFirst(trades)
	if n > 0 && len(recent) > n {
		recent = recent[:n]
	}

	m := domain.Momentum{Window: n, YesPercent: 50, Trend: domain.TrendNeutral}
	for _, t := range recent {
		if t.Outcome == domain.OutcomeYes {
			m.YesCount++
		} else {
			m.NoCount++
		}
	}
	total := m.YesCount + m.NoCount
	if total == 0 {
		return m
	}
	m.YesPercent = float64(m.YesCount) / float64(total) * 100
	switch {
	case m.YesPercent > BullishAbove:
		m.Trend = domain.TrendBullish
	case m.YesPercent < BearishBelow:
		m.Trend = domain.TrendBearish
	}
	m.Strength = math.Abs(m.YesPercent-50) * 2
	return m
}

// Sentiment splits trades by category into YES/NO counts, ordered by trade
// count then category priority.
func Sentiment(trades []domain.Trade) []domain.CategorySentiment {
	byCat := make(map[domain.Category]*domain.CategorySentiment)
	for _, t := range trades {
		cat := t.Category
		if cat == "" {
			cat = Classify(t.Tags, t.Market)
		}
		s, ok := byCat[cat]
		if !ok {
			s = &domain.CategorySentiment{Category: cat}
			byCat[cat] = s
		}
		if t.Outcome == domain.OutcomeYes {
			s.YesCount++
		} else {
			s.NoCount++
		}
		s.Volume += t.Amount
	}

	rank := make(map[domain.Category]int, len(domain.Categories))
	for i, c := range domain.Categories {
		rank[c] = i
	}

	out := make([]domain.CategorySentiment, 0, len(byCat))
	for _, s := range byCat {
		s.YesPercent = float64(s.YesCount) / float64(s.YesCount+s.NoCount) * 100
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].YesCount+out[i].NoCount, out[j].YesCount+out[j].NoCount
		if ci != cj {
			return ci > cj
		}
		return rank[out[i].Category] < rank[out[j].Category]
	})
	return out
}

// HourlyVolume buckets trades into the clock hours ending at now, oldest
// first. Trades outside the range are ignored.
func HourlyVolume(trades []domain.Trade, now time.Time, hours int) []domain.VolumeBucket {
	if hours <= 0 {
		hours = 24
	}
	current := now.Truncate(time.Hour).Unix()
	first := current - int64(hours-1)*3600

	buckets := make([]domain.VolumeBucket, hours)
	for i := range buckets {
		buckets[i].HourStartSec = first + int64(i)*3600
	}
	for _, t := range trades {
		if t.TimestampSec < first || t.TimestampSec >= current+3600 {
			continue
		}
		idx := (t.TimestampSec - first) / 3600
		buckets[idx].Volume += t.Amount
		buckets[idx].TradeCount++
	}
	return buckets
}

// HugeWhales returns trades at or above threshold, newest first.
func HugeWhales(trades []domain.Trade, threshold float64) []domain.Trade {
	var out []domain.Trade
	for _, t := range newestFirst(trades) {
		if t.Amount >= threshold {
			out = append(out, t)
		}
	}
	return out
}

func newestFirst(trades []domain.Trade) []domain.Trade {
	out := make([]domain.Trade, len(trades))
	copy(out, trades)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimestampSec > out[j].TimestampSec
	})
	return out
}
