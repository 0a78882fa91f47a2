package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
)

// ArchiveReader lists and reads archived trade batches.
type ArchiveReader interface {
	List(ctx context.Context, day time.Time) ([]domain.BlobInfo, error)
	Read(ctx context.Context, path string) ([]domain.Trade, error)
}

// Backfill re-inserts every archived batch between from and to (inclusive,
// by UTC day) into store. Duplicates are ignored by the store, so a backfill
// can be rerun safely. It returns the number of rows inserted.
func Backfill(ctx context.Context, archive ArchiveReader, store domain.TradeStore, from, to time.Time, logger *slog.Logger) (int64, error) {
	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour)
	if to.Before(from) {
		return 0, domain.NewValidationError("to", "must not be before from")
	}

	var inserted int64
	for day := from; !day.After(to); day = day.Add(24 * time.Hour) {
		objects, err := archive.List(ctx, day)
		if err != nil {
			return inserted, fmt.Errorf("pipeline: list archives for %s: %w", day.Format("2006-01-02"), err)
		}
		for _, obj := range objects {
			trades, err := archive.Read(ctx, obj.Path)
			if err != nil {
				return inserted, fmt.Errorf("pipeline: read archive %s: %w", obj.Path, err)
			}
			added, err := store.InsertBatch(ctx, trades)
			if err != nil {
				return inserted, fmt.Errorf("pipeline: backfill %s: %w", obj.Path, err)
			}
			n := int64(len(added))
			inserted += n
			logger.Info("backfilled archive",
				slog.String("path", obj.Path),
				slog.Int("trades", len(trades)),
				slog.Int64("inserted", n),
			)
		}
	}
	return inserted, nil
}
