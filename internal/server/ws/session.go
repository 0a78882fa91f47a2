package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emmatheo/polyscop/internal/analytics"
	"github.com/emmatheo/polyscop/internal/domain"
	"github.com/google/uuid"
)

// ErrCycleSkipped is returned by RunCycle when a previous cycle is still in
// flight.
var ErrCycleSkipped = errors.New("ws: cycle already in flight")

// TradeFetcher returns the most recent normalized trades.
type TradeFetcher interface {
	Recent(ctx context.Context, limit int, minAmount float64) ([]domain.Trade, error)
}

// SessionState is the lifecycle stage of a session.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateOpen
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// SessionConfig holds the per-connection polling parameters.
type SessionConfig struct {
	Interval       time.Duration
	FetchLimit     int
	MinAmount      float64
	WhaleThreshold float64
	TopMarkets     int
	HistoryPoints  int
	TrackedMarkets int
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = 50
	}
	if c.WhaleThreshold <= 0 {
		c.WhaleThreshold = 5000
	}
	if c.TopMarkets <= 0 {
		c.TopMarkets = analytics.DefaultTopMarkets
	}
	return c
}

// Session is the polling state of one websocket connection. Each session keeps
// its own high-water mark and price history, so connections never share
// mutable state.
type Session struct {
	id     string
	cfg    SessionConfig
	source TradeFetcher
	logger *slog.Logger
	now    func() time.Time

	out chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	state    atomic.Int32
	inFlight atomic.Bool
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu      sync.Mutex
	hwm     int64
	history *analytics.PriceHistory
}

// NewSession creates a session in the connecting state.
func NewSession(source TradeFetcher, cfg SessionConfig, logger *slog.Logger) *Session {
	cfg = cfg.withDefaults()
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:      id,
		cfg:     cfg,
		source:  source,
		logger:  logger.With(slog.String("session", id)),
		now:     time.Now,
		out:     make(chan []byte, sendBufferSize),
		ctx:     ctx,
		cancel:  cancel,
		history: analytics.NewPriceHistory(cfg.HistoryPoints, cfg.TrackedMarkets),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle stage.
func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Messages returns the outbound message channel. It is never closed; use
// Done to detect the end of the session.
func (s *Session) Messages() <-chan []byte { return s.out }

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// HighWaterMark returns the newest trade timestamp delivered so far.
func (s *Session) HighWaterMark() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hwm
}

// Open runs one cycle immediately and then one per interval until Close.
func (s *Session) Open() {
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		return
	}
	s.wg.Add(1)
	go s.loop()
}

func (s *Session) loop() {
	defer s.wg.Done()

	s.tick()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Session) tick() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.RunCycle(s.ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrCycleSkipped):
			s.logger.Debug("ws: tick skipped, cycle in flight")
		case errors.Is(err, domain.ErrSessionClose), errors.Is(err, context.Canceled):
		default:
			s.logger.Warn("ws: cycle failed", slog.String("error", err.Error()))
		}
	}()
}

// RunCycle fetches, filters by the high-water mark, aggregates and publishes
// the update, market_stats and price_movements messages in that order. A
// fetch error leaves the session state untouched.
func (s *Session) RunCycle(ctx context.Context) error {
	if s.State() == StateClosed {
		return domain.ErrSessionClose
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrCycleSkipped
	}
	defer s.inFlight.Store(false)

	trades, err := s.source.Recent(ctx, s.cfg.FetchLimit, s.cfg.MinAmount)
	if err != nil {
		return err
	}
	if s.State() == StateClosed {
		return domain.ErrSessionClose
	}

	for i := range trades {
		if trades[i].Category == "" {
			analytics.ClassifyTrade(&trades[i])
		}
	}

	s.mu.Lock()
	now := s.now()
	fresh := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.TimestampSec > s.hwm {
			fresh = append(fresh, t)
		}
	}
	for i := range fresh {
		fresh[i].TimeAgo = analytics.FormatRelative(fresh[i].TimestampSec, now)
		if fresh[i].TimestampSec > s.hwm {
			s.hwm = fresh[i].TimestampSec
		}
	}
	stats := analytics.AggregateMarkets(trades, s.cfg.WhaleThreshold, s.cfg.TopMarkets)
	s.history.RecordTrades(trades, now.UnixMilli())
	movements := s.history.Snapshot()
	s.mu.Unlock()

	ts := now.UnixMilli()
	if len(fresh) > 0 {
		events := make([]domain.TradeEvent, 0, len(fresh))
		for _, t := range fresh {
			events = append(events, domain.TradeEvent{Type: domain.EventWhaleTrade, Data: t})
		}
		s.publish(domain.UpdateMessage{Type: domain.MessageUpdate, Trades: events, Timestamp: ts})
	}
	s.publish(domain.MarketStatsMessage{Type: domain.MessageMarketStats, Data: stats, Timestamp: ts})
	s.publish(domain.PriceMovementsMessage{Type: domain.MessagePriceMovements, Data: movements, Timestamp: ts})
	return nil
}

// publish queues msg unless the session is closed. A full buffer drops the
// message rather than stalling the cycle.
func (s *Session) publish(msg any) {
	if s.State() == StateClosed {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("ws: encode message", slog.String("error", err.Error()))
		return
	}
	select {
	case s.out <- data:
	default:
		s.logger.Warn("ws: dropping message for slow client")
	}
}

// Close stops the ticker and discards any cycle still in flight. It is safe
// to call more than once.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		s.cancel()
	})
}

// Wait blocks until every goroutine started by the session has returned.
func (s *Session) Wait() {
	s.wg.Wait()
}
