package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emmatheo/polyscop/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL. It holds
// the ingest pipeline's open lots and the wallets flagged incomplete.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Upsert writes the given positions, replacing any existing row per
// (wallet, asset_id).
func (s *PositionStore) Upsert(ctx context.Context, positions []domain.Position) error {
	if len(positions) == 0 {
		return nil
	}
	const query = `
		INSERT INTO positions (wallet, asset_id, market, entry_price, size, cost, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (wallet, asset_id) DO UPDATE SET
			market      = EXCLUDED.market,
			entry_price = EXCLUDED.entry_price,
			size        = EXCLUDED.size,
			cost        = EXCLUDED.cost,
			updated_at  = EXCLUDED.updated_at`

	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(query, p.Wallet, p.AssetID, p.Market, p.EntryPrice, p.Size, p.Cost, p.UpdatedAt)
	}
	return s.execBatch(ctx, "upsert position", batch, len(positions))
}

// Delete removes closed positions.
func (s *PositionStore) Delete(ctx context.Context, keys []domain.PositionKey) error {
	if len(keys) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, k := range keys {
		batch.Queue("DELETE FROM positions WHERE wallet = $1 AND asset_id = $2", k.Wallet, k.AssetID)
	}
	return s.execBatch(ctx, "delete position", batch, len(keys))
}

// LoadAll returns every stored open position.
func (s *PositionStore) LoadAll(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT wallet, asset_id, market, entry_price, size, cost, updated_at
		FROM positions ORDER BY wallet, asset_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load positions: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.Wallet, &p.AssetID, &p.Market, &p.EntryPrice, &p.Size, &p.Cost, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate positions: %w", err)
	}
	return out, nil
}

// MarkIncomplete flags wallets that sold without a recorded buy.
func (s *PositionStore) MarkIncomplete(ctx context.Context, wallets []string) error {
	if len(wallets) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, w := range wallets {
		batch.Queue("INSERT INTO incomplete_wallets (wallet) VALUES ($1) ON CONFLICT DO NOTHING", w)
	}
	return s.execBatch(ctx, "mark incomplete", batch, len(wallets))
}

// LoadIncomplete returns every flagged wallet.
func (s *PositionStore) LoadIncomplete(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT wallet FROM incomplete_wallets ORDER BY wallet")
	if err != nil {
		return nil, fmt.Errorf("postgres: load incomplete wallets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("postgres: scan incomplete wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *PositionStore) execBatch(ctx context.Context, op string, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: %s item %d: %w", op, i, err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
