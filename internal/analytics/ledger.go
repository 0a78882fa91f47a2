package analytics

import (
	"sort"

	"github.com/emmatheo/polyscop/internal/domain"
)

// Ledger is an average-cost position tracker keyed by (wallet, assetId).
//
// Trades must be applied in ascending timestamp order; SortByTime does that.
// Out-of-order input produces wrong cost averaging and is not detected. A
// Ledger is not safe for concurrent use.
type Ledger struct {
	positions  map[domain.PositionKey]*domain.Position
	incomplete map[string]bool
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		positions:  make(map[domain.PositionKey]*domain.Position),
		incomplete: make(map[string]bool),
	}
}

// Restore seeds the ledger with previously snapshotted positions and
// incomplete wallets.
func (l *Ledger) Restore(positions []domain.Position, incomplete []string) {
	for _, p := range positions {
		if p.Size <= 0 {
			continue
		}
		cp := p
		l.positions[p.Key()] = &cp
	}
	for _, w := range incomplete {
		l.incomplete[w] = true
	}
}

// Apply books one trade. It returns a realization event and true when a SELL
// reduced or closed an open position. Trades without an asset id, and SELLs
// with nothing open, realize nothing; the latter marks the wallet incomplete.
func (l *Ledger) Apply(t domain.Trade) (domain.RealizationEvent, bool) {
	if t.AssetID == "" || t.Wallet == "" || t.Size <= 0 {
		return domain.RealizationEvent{}, false
	}
	key := domain.PositionKey{Wallet: t.Wallet, AssetID: t.AssetID}
	pos, open := l.positions[key]

	switch t.Side {
	case domain.SideBuy:
		if !open {
			l.positions[key] = &domain.Position{
				Wallet:     t.Wallet,
				AssetID:    t.AssetID,
				Market:     t.Market,
				EntryPrice: t.Price,
				Size:       t.Size,
				Cost:       t.Amount,
				UpdatedAt:  t.TimestampSec,
			}
			return domain.RealizationEvent{}, false
		}
		pos.Size += t.Size
		pos.Cost += t.Amount
		pos.EntryPrice = pos.Cost / pos.Size
		pos.UpdatedAt = t.TimestampSec
		return domain.RealizationEvent{}, false

	case domain.SideSell:
		if !open {
			l.incomplete[t.Wallet] = true
			return domain.RealizationEvent{}, false
		}
		closed := min(t.Size, pos.Size)
		costBasis := (pos.Cost / pos.Size) * closed
		pnl := t.Size*t.Price - costBasis

		ev := domain.RealizationEvent{
			Wallet:       t.Wallet,
			AssetID:      t.AssetID,
			Market:       pos.Market,
			TradeID:      t.ID,
			PnL:          pnl,
			IsWin:        pnl > 0,
			ClosedSize:   closed,
			TimestampSec: t.TimestampSec,
		}

		if t.Size >= pos.Size {
			delete(l.positions, key)
		} else {
			pos.Size -= t.Size
			pos.Cost -= costBasis
			pos.UpdatedAt = t.TimestampSec
		}
		return ev, true
	}
	return domain.RealizationEvent{}, false
}

// ApplyAll books every trade in order and returns the emitted events.
func (l *Ledger) ApplyAll(trades []domain.Trade) []domain.RealizationEvent {
	var events []domain.RealizationEvent
	for _, t := range trades {
		if ev, ok := l.Apply(t); ok {
			events = append(events, ev)
		}
	}
	return events
}

// Position returns a copy of the open position for key.
func (l *Ledger) Position(key domain.PositionKey) (domain.Position, bool) {
	p, ok := l.positions[key]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// Positions returns copies of every open position, ordered by wallet then
// asset.
func (l *Ledger) Positions() []domain.Position {
	out := make([]domain.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wallet != out[j].Wallet {
			return out[i].Wallet < out[j].Wallet
		}
		return out[i].AssetID < out[j].AssetID
	})
	return out
}

// Incomplete reports whether the wallet sold a position the ledger never saw
// opened.
func (l *Ledger) Incomplete(wallet string) bool {
	return l.incomplete[wallet]
}

// IncompleteWallets returns every wallet flagged incomplete, sorted.
func (l *Ledger) IncompleteWallets() []string {
	out := make([]string, 0, len(l.incomplete))
	for w := range l.incomplete {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of open positions.
func (l *Ledger) Len() int {
	return len(l.positions)
}

// SortByTime sorts trades ascending by timestamp. Ties keep their input
// order.
func SortByTime(trades []domain.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].TimestampSec < trades[j].TimestampSec
	})
}
