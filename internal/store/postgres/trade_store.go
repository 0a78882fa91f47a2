package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emmatheo/polyscop/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, wallet, market, asset_id, condition_id, side, outcome,
	outcome_inferred, size, price, amount, ts, tags, category, tx_hash`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var (
			t        domain.Trade
			side     string
			outcome  string
			category string
		)
		if err := rows.Scan(
			&t.ID, &t.Wallet, &t.Market, &t.AssetID, &t.ConditionID,
			&side, &outcome, &t.OutcomeInferred,
			&t.Size, &t.Price, &t.Amount, &t.TimestampSec,
			&t.Tags, &category, &t.TxHash,
		); err != nil {
			return nil, err
		}
		t.Side = domain.Side(side)
		t.Outcome = domain.Outcome(outcome)
		t.Category = domain.Category(category)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// InsertBatch inserts trades using a pgx Batch and returns the trades whose
// rows were new. Fills already stored under the same natural key are skipped.
// The batch runs as one implicit transaction, so an error leaves nothing
// inserted.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.Trade) ([]domain.Trade, error) {
	if len(trades) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO trades (
			id, wallet, market, asset_id, condition_id,
			side, outcome, outcome_inferred,
			size, price, amount, ts,
			tags, category, tx_hash
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15
		) ON CONFLICT DO NOTHING
		RETURNING id`

	for _, t := range trades {
		tags := t.Tags
		if tags == nil {
			tags = []string{}
		}
		batch.Queue(query,
			t.ID, t.Wallet, t.Market, t.AssetID, t.ConditionID,
			string(t.Side), string(t.Outcome), t.OutcomeInferred,
			t.Size, t.Price, t.Amount, t.TimestampSec,
			tags, string(t.Category), t.TxHash,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var inserted []domain.Trade
	for i, t := range trades {
		var id string
		err := br.QueryRow().Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
		inserted = append(inserted, t)
	}
	return inserted, nil
}

// GetLastTimestamp returns the newest stored trade time in Unix seconds, or
// zero when the table is empty.
func (s *TradeStore) GetLastTimestamp(ctx context.Context) (int64, error) {
	var ts *int64
	if err := s.pool.QueryRow(ctx, "SELECT MAX(ts) FROM trades").Scan(&ts); err != nil {
		return 0, fmt.Errorf("postgres: get last trade timestamp: %w", err)
	}
	if ts == nil {
		return 0, nil
	}
	return *ts, nil
}

// ListSince returns trades at or after sinceSec, newest first.
func (s *TradeStore) ListSince(ctx context.Context, sinceSec int64, limit int) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE ts >= $1 ORDER BY ts DESC, id`
	args := []any{sinceSec}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.list(ctx, "list trades since", query, args...)
}

// ListByWallet returns a wallet's trades, newest first, with optional time
// bounds and pagination.
func (s *TradeStore) ListByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.Trade, error) {
	query, args := walletQuery(wallet, opts)
	return s.list(ctx, "list trades by wallet", query, args...)
}

func walletQuery(wallet string, opts domain.ListOpts) (string, []any) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE wallet = $1`
	args := []any{strings.ToLower(wallet)}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND ts >= $%d", argIdx)
		args = append(args, opts.Since.Unix())
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND ts <= $%d", argIdx)
		args = append(args, opts.Until.Unix())
		argIdx++
	}

	query += " ORDER BY ts DESC, id"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}
	return query, args
}

func (s *TradeStore) list(ctx context.Context, op, query string, args ...any) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan %s: %w", op, err)
	}
	return trades, nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
