package pipeline

import (
	"sync"

	"github.com/emmatheo/polyscop/internal/domain"
)

// Buffer collects ingested trades until the archiver flushes them.
type Buffer struct {
	mu     sync.Mutex
	trades []domain.Trade
	max    int
}

// NewBuffer creates a buffer holding at most max trades. Older trades are
// dropped first once full. max <= 0 means unbounded.
func NewBuffer(max int) *Buffer {
	return &Buffer{max: max}
}

// Add appends trades.
func (b *Buffer) Add(trades []domain.Trade) {
	if len(trades) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trades = append(b.trades, trades...)
	b.trim()
}

// Drain returns and clears the buffered trades.
func (b *Buffer) Drain() []domain.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.trades
	b.trades = nil
	return out
}

// Requeue puts trades back in front of anything added since they were
// drained.
func (b *Buffer) Requeue(trades []domain.Trade) {
	if len(trades) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trades = append(append([]domain.Trade(nil), trades...), b.trades...)
	b.trim()
}

// Len returns the number of buffered trades.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.trades)
}

func (b *Buffer) trim() {
	if b.max > 0 && len(b.trades) > b.max {
		b.trades = append([]domain.Trade(nil), b.trades[len(b.trades)-b.max:]...)
	}
}
