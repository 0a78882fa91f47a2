// Package pipeline runs the background ingest: it polls the trade feed,
// persists new trades, keeps a stateful position ledger, fans whale trades
// out to the signal bus and archives batches to object storage.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emmatheo/polyscop/internal/analytics"
	"github.com/emmatheo/polyscop/internal/domain"
)

// LockKey is the leadership lock held by the ingesting instance.
const LockKey = "ingest"

// TradeSource fetches normalized trades from upstream.
type TradeSource interface {
	FetchNormalized(ctx context.Context, limit int, minAmount float64) ([]domain.Trade, int, error)
}

// PriceRecorder stores the latest traded price per asset.
type PriceRecorder interface {
	Record(ctx context.Context, trades []domain.Trade) error
}

// TradeNotifier sends trade alerts.
type TradeNotifier interface {
	NotifyTrade(ctx context.Context, event string, t domain.Trade) error
}

// IngestorConfig holds the cycle parameters.
type IngestorConfig struct {
	FetchLimit         int
	MinAmount          float64
	WhaleThreshold     float64
	HugeWhaleThreshold float64
	Interval           time.Duration
}

// Deps are the collaborators of an Ingestor. Only Source is required; every
// other dependency is skipped when nil.
type Deps struct {
	Source    TradeSource
	Trades    domain.TradeStore
	Positions domain.PositionStore
	Prices    PriceRecorder
	Bus       domain.SignalBus
	Notifier  TradeNotifier
	Locks     domain.LockManager
	Buffer    *Buffer
}

// CycleResult summarizes one ingest cycle.
type CycleResult struct {
	Fetched      int
	Dropped      int
	New          int
	Inserted     int64
	Realizations int
	Whales       int
	HugeWhales   int
}

// Ingestor polls the trade feed and applies each new batch.
type Ingestor struct {
	deps   Deps
	cfg    IngestorConfig
	logger *slog.Logger

	mu       sync.Mutex
	ledger   *analytics.Ledger
	hwm      int64
	boundary map[string]struct{}

	// lease is only touched by the Run goroutine.
	lease domain.Lease
}

// NewIngestor creates an Ingestor with an empty ledger.
func NewIngestor(deps Deps, cfg IngestorConfig, logger *slog.Logger) *Ingestor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Ingestor{
		deps:     deps,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "ingestor")),
		ledger:   analytics.NewLedger(),
		boundary: make(map[string]struct{}),
	}
}

// Restore replaces the in-memory state with what the stores hold: the
// high-water mark with the natural keys stored at it, and the ledger snapshot.
// It runs at startup and again whenever this instance takes over the ingest
// lease.
func (i *Ingestor) Restore(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	hwm, boundary := i.hwm, i.boundary
	if i.deps.Trades != nil {
		ts, err := i.deps.Trades.GetLastTimestamp(ctx)
		if err != nil {
			return fmt.Errorf("pipeline: restore high-water mark: %w", err)
		}
		stored, err := i.deps.Trades.ListSince(ctx, ts, 0)
		if err != nil {
			return fmt.Errorf("pipeline: restore boundary trades: %w", err)
		}
		hwm, boundary = ts, make(map[string]struct{}, len(stored))
		for _, t := range stored {
			if t.TimestampSec == hwm {
				boundary[naturalKey(t)] = struct{}{}
			}
		}
	}
	ledger := i.ledger
	if i.deps.Positions != nil {
		positions, err := i.deps.Positions.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("pipeline: restore positions: %w", err)
		}
		incomplete, err := i.deps.Positions.LoadIncomplete(ctx)
		if err != nil {
			return fmt.Errorf("pipeline: restore incomplete wallets: %w", err)
		}
		ledger = analytics.NewLedger()
		ledger.Restore(positions, incomplete)
	}
	i.hwm, i.boundary, i.ledger = hwm, boundary, ledger

	i.logger.Info("ingestor restored",
		slog.Int64("high_water_mark", i.hwm),
		slog.Int("boundary_trades", len(i.boundary)),
		slog.Int("open_positions", i.ledger.Len()),
	)
	return nil
}

// HighWaterMark returns the newest trade timestamp ingested so far.
func (i *Ingestor) HighWaterMark() int64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.hwm
}

// Positions returns the ledger's open positions.
func (i *Ingestor) Positions() []domain.Position {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ledger.Positions()
}

// Run executes a cycle on every interval while this instance holds the
// ingest lease. Cycle errors are logged and never stop the loop.
func (i *Ingestor) Run(ctx context.Context) error {
	i.logger.Info("ingestor started", slog.Duration("interval", i.cfg.Interval))
	defer i.logger.Info("ingestor stopped")
	defer i.releaseLease()

	i.tick(ctx)
	ticker := time.NewTicker(i.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			i.tick(ctx)
		}
	}
}

func (i *Ingestor) tick(ctx context.Context) {
	if !i.lead(ctx) {
		return
	}

	res, err := i.RunCycle(ctx)
	if err != nil {
		if ctx.Err() == nil {
			i.logger.Error("ingest cycle failed", slog.String("error", err.Error()))
		}
		return
	}
	if res.New > 0 {
		i.logger.Info("ingest cycle complete",
			slog.Int("fetched", res.Fetched),
			slog.Int("new", res.New),
			slog.Int64("inserted", res.Inserted),
			slog.Int("realizations", res.Realizations),
			slog.Int("whales", res.Whales),
			slog.Int("huge_whales", res.HugeWhales),
		)
	}
}

// lead reports whether this instance holds the ingest lease for the coming
// cycle. A held lease is renewed. A newly acquired one triggers Restore so a
// takeover starts from what the previous holder persisted.
func (i *Ingestor) lead(ctx context.Context) bool {
	if i.deps.Locks == nil {
		return true
	}
	ttl := 2 * i.cfg.Interval
	if i.lease != nil {
		err := i.lease.Refresh(ctx, ttl)
		if err == nil {
			return true
		}
		i.logger.Warn("ingest lease lost", slog.String("error", err.Error()))
		i.lease = nil
	}

	lease, err := i.deps.Locks.Acquire(ctx, LockKey, ttl)
	if errors.Is(err, domain.ErrLockHeld) {
		i.logger.Debug("ingest lock held elsewhere, skipping cycle")
		return false
	}
	if err != nil {
		i.logger.Warn("acquire ingest lock failed", slog.String("error", err.Error()))
		return false
	}
	if err := i.Restore(ctx); err != nil {
		lease.Release()
		i.logger.Error("restore after acquiring ingest lease failed", slog.String("error", err.Error()))
		return false
	}
	i.lease = lease
	return true
}

func (i *Ingestor) releaseLease() {
	if i.lease != nil {
		i.lease.Release()
		i.lease = nil
	}
}

// RunCycle fetches one batch and persists the trades newer than the
// high-water mark. Only trades the store reports as newly inserted are booked
// into the ledger, fanned out and archived, so a fill persisted by an earlier
// run is never applied twice. A failed fetch or insert leaves the ingestor
// unchanged so the next cycle retries the same window.
func (i *Ingestor) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	trades, dropped, err := i.deps.Source.FetchNormalized(ctx, i.cfg.FetchLimit, i.cfg.MinAmount)
	if err != nil {
		return res, fmt.Errorf("pipeline: fetch: %w", err)
	}
	res.Fetched, res.Dropped = len(trades), dropped

	i.mu.Lock()
	defer i.mu.Unlock()

	fresh := i.selectNew(trades)
	res.New = len(fresh)
	if len(fresh) == 0 {
		return res, nil
	}
	analytics.SortByTime(fresh)

	added := fresh
	if i.deps.Trades != nil {
		added, err = i.deps.Trades.InsertBatch(ctx, fresh)
		if err != nil {
			return CycleResult{Fetched: res.Fetched, Dropped: dropped}, fmt.Errorf("pipeline: persist: %w", err)
		}
	}
	res.Inserted = int64(len(added))
	i.advance(fresh)

	if i.deps.Prices != nil {
		if err := i.deps.Prices.Record(ctx, fresh); err != nil {
			i.logger.Warn("record prices failed", slog.String("error", err.Error()))
		}
	}

	if len(added) == 0 {
		return res, nil
	}
	res.Realizations = i.applyLedger(ctx, added)
	res.Whales, res.HugeWhales = i.fanOut(ctx, added)

	if i.deps.Buffer != nil {
		i.deps.Buffer.Add(added)
	}
	return res, nil
}

// selectNew keeps trades past the high-water mark. Trades stamped exactly at
// the mark are kept unless they were already seen in that second.
func (i *Ingestor) selectNew(trades []domain.Trade) []domain.Trade {
	out := make([]domain.Trade, 0, len(trades))
	batch := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if t.TimestampSec < i.hwm {
			continue
		}
		key := naturalKey(t)
		if t.TimestampSec == i.hwm {
			if _, ok := i.boundary[key]; ok {
				continue
			}
		}
		if _, ok := batch[key]; ok {
			continue
		}
		batch[key] = struct{}{}
		if t.Category == "" {
			analytics.ClassifyTrade(&t)
		}
		out = append(out, t)
	}
	return out
}

// advance moves the high-water mark to the newest trade in sorted and
// remembers the trades stamped at it.
func (i *Ingestor) advance(sorted []domain.Trade) {
	newest := sorted[len(sorted)-1].TimestampSec
	if newest > i.hwm {
		i.hwm = newest
		i.boundary = make(map[string]struct{})
	}
	for _, t := range sorted {
		if t.TimestampSec == i.hwm {
			i.boundary[naturalKey(t)] = struct{}{}
		}
	}
}

// applyLedger books trades and snapshots every touched position.
func (i *Ingestor) applyLedger(ctx context.Context, trades []domain.Trade) int {
	touched := make(map[domain.PositionKey]struct{})
	wallets := make(map[string]struct{})
	realized := 0
	for _, t := range trades {
		if _, ok := i.ledger.Apply(t); ok {
			realized++
		}
		if t.AssetID != "" {
			touched[domain.PositionKey{Wallet: t.Wallet, AssetID: t.AssetID}] = struct{}{}
		}
		wallets[t.Wallet] = struct{}{}
	}

	if i.deps.Positions == nil {
		return realized
	}

	var upserts []domain.Position
	var deletes []domain.PositionKey
	for key := range touched {
		if p, ok := i.ledger.Position(key); ok {
			upserts = append(upserts, p)
		} else {
			deletes = append(deletes, key)
		}
	}
	var incomplete []string
	for w := range wallets {
		if i.ledger.Incomplete(w) {
			incomplete = append(incomplete, w)
		}
	}

	if err := i.deps.Positions.Upsert(ctx, upserts); err != nil {
		i.logger.Warn("snapshot positions failed", slog.String("error", err.Error()))
	}
	if err := i.deps.Positions.Delete(ctx, deletes); err != nil {
		i.logger.Warn("delete closed positions failed", slog.String("error", err.Error()))
	}
	if err := i.deps.Positions.MarkIncomplete(ctx, incomplete); err != nil {
		i.logger.Warn("mark incomplete wallets failed", slog.String("error", err.Error()))
	}
	return realized
}

// fanOut publishes whale trades and alerts on huge ones.
func (i *Ingestor) fanOut(ctx context.Context, trades []domain.Trade) (whales, huge int) {
	for _, t := range trades {
		if !t.IsWhale(i.cfg.WhaleThreshold) {
			continue
		}
		whales++
		isHuge := i.cfg.HugeWhaleThreshold > 0 && t.IsWhale(i.cfg.HugeWhaleThreshold)
		if isHuge {
			huge++
		}

		if i.deps.Bus != nil {
			payload, err := json.Marshal(t)
			if err != nil {
				i.logger.Error("encode trade", slog.String("trade", t.ID), slog.String("error", err.Error()))
				continue
			}
			if err := i.deps.Bus.Publish(ctx, domain.ChannelWhaleTrades, payload); err != nil {
				i.logger.Warn("publish whale trade failed", slog.String("error", err.Error()))
			}
			if err := i.deps.Bus.StreamAppend(ctx, domain.StreamWhaleTrades, payload); err != nil {
				i.logger.Warn("append whale stream failed", slog.String("error", err.Error()))
			}
			if isHuge {
				if err := i.deps.Bus.StreamAppend(ctx, domain.StreamHugeWhales, payload); err != nil {
					i.logger.Warn("append huge whale stream failed", slog.String("error", err.Error()))
				}
			}
		}

		if isHuge && i.deps.Notifier != nil {
			if err := i.deps.Notifier.NotifyTrade(ctx, domain.EventHugeWhale, t); err != nil {
				i.logger.Warn("huge whale alert failed", slog.String("error", err.Error()))
			}
		}
	}
	return whales, huge
}

// naturalKey identifies a trade independently of its generated id.
func naturalKey(t domain.Trade) string {
	return fmt.Sprintf("%s|%s|%s|%s|%g|%g|%d", t.Wallet, t.AssetID, t.TxHash, t.Side, t.Size, t.Price, t.TimestampSec)
}
