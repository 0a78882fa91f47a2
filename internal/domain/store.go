package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// TradeStore persists normalized trades. InsertBatch returns the trades that
// were actually new; fills already stored under the same natural key are
// left out.
type TradeStore interface {
	InsertBatch(ctx context.Context, trades []Trade) ([]Trade, error)
	GetLastTimestamp(ctx context.Context) (int64, error)
	ListSince(ctx context.Context, sinceSec int64, limit int) ([]Trade, error)
	ListByWallet(ctx context.Context, wallet string, opts ListOpts) ([]Trade, error)
}

// PositionStore snapshots the ingest pipeline's ledger so it survives
// restarts.
type PositionStore interface {
	Upsert(ctx context.Context, positions []Position) error
	Delete(ctx context.Context, keys []PositionKey) error
	LoadAll(ctx context.Context) ([]Position, error)
	MarkIncomplete(ctx context.Context, wallets []string) error
	LoadIncomplete(ctx context.Context) ([]string, error)
}
