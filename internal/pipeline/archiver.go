package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
)

// TradeArchive writes a batch of trades as one object.
type TradeArchive interface {
	Write(ctx context.Context, trades []domain.Trade, at time.Time) (string, error)
}

// Archiver flushes the ingest buffer to object storage on a fixed interval.
type Archiver struct {
	archive  TradeArchive
	buffer   *Buffer
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewArchiver creates an Archiver.
func NewArchiver(archive TradeArchive, buffer *Buffer, interval time.Duration, logger *slog.Logger) *Archiver {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Archiver{
		archive:  archive,
		buffer:   buffer,
		interval: interval,
		logger:   logger.With(slog.String("component", "archiver")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Flush writes everything buffered so far. An empty buffer writes nothing and
// returns an empty path. On failure the trades go back into the buffer.
func (a *Archiver) Flush(ctx context.Context) (string, error) {
	trades := a.buffer.Drain()
	if len(trades) == 0 {
		return "", nil
	}
	path, err := a.archive.Write(ctx, trades, a.now())
	if err != nil {
		a.buffer.Requeue(trades)
		return "", fmt.Errorf("pipeline: archive %d trades: %w", len(trades), err)
	}
	a.logger.Info("archived trades",
		slog.String("path", path),
		slog.Int("count", len(trades)),
	)
	return path, nil
}

// Run flushes on every interval until ctx is cancelled, then makes a final
// flush with a short grace period.
func (a *Archiver) Run(ctx context.Context) error {
	a.logger.Info("archiver started", slog.Duration("interval", a.interval))

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := a.Flush(flushCtx); err != nil {
				a.logger.Error("final archive flush failed", slog.String("error", err.Error()))
			}
			cancel()
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.Flush(ctx); err != nil {
				a.logger.Error("archive flush failed", slog.String("error", err.Error()))
			}
		}
	}
}
