// Package feed is the consumer side of the realtime stream. A Subscriber
// dials /ws, keeps a filtered history of whale trades plus the latest market
// stats and price movements, and reconnects with backoff whenever the
// connection drops.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	// DefaultHistory is the number of accepted trades kept in memory.
	DefaultHistory = 100

	pongWait  = 90 * time.Second
	writeWait = 10 * time.Second
)

// Filter selects which incoming trades are kept.
type Filter struct {
	// Categories restricts trades to these categories. Empty keeps all.
	Categories []domain.Category
	MinAmount  float64
}

// Match reports whether t passes the filter.
func (f Filter) Match(t domain.Trade) bool {
	if t.Amount < f.MinAmount {
		return false
	}
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if strings.EqualFold(string(c), string(t.Category)) {
			return true
		}
	}
	return false
}

// SubscriberConfig configures a Subscriber.
type SubscriberConfig struct {
	URL     string
	Backoff Backoff
	History int
	Filter  Filter
}

// Subscriber consumes the realtime stream.
type Subscriber struct {
	cfg    SubscriberConfig
	dialer *websocket.Dialer
	logger *slog.Logger

	// sleep and random are replaced in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	random func() float64

	onTrade func(domain.Trade)

	attempts atomic.Int64

	mu        sync.RWMutex
	filter    Filter
	trades    []domain.Trade
	stats     []domain.MarketStats
	movements []domain.MarketHistory
}

// NewSubscriber creates a Subscriber for cfg.URL.
func NewSubscriber(cfg SubscriberConfig, logger *slog.Logger) *Subscriber {
	if cfg.History <= 0 {
		cfg.History = DefaultHistory
	}
	return &Subscriber{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
		logger: logger.With(slog.String("component", "feed_subscriber")),
		sleep:  sleepCtx,
		random: rand.Float64,
		filter: cfg.Filter,
	}
}

// OnTrade registers fn to be called for every accepted trade. It must be set
// before Run.
func (s *Subscriber) OnTrade(fn func(domain.Trade)) {
	s.onTrade = fn
}

// Run connects and consumes until ctx is cancelled or the retry budget is
// spent. Dropped connections are retried after the backoff delay; history is
// kept across reconnects.
func (s *Subscriber) Run(ctx context.Context) error {
	failures := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		received, err := s.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if received {
			failures = 0
		}

		var cerr *domain.ConnectionError
		if !errors.As(err, &cerr) {
			cerr = &domain.ConnectionError{Addr: s.cfg.URL, Err: err}
		}
		if s.cfg.Backoff.Exhausted(failures) {
			return fmt.Errorf("feed: giving up after %d attempts: %w", failures, cerr)
		}

		delay := s.cfg.Backoff.Delay(failures, s.random())
		failures++
		s.attempts.Add(1)
		s.logger.Warn("feed: disconnected, reconnecting",
			slog.String("error", cerr.Error()),
			slog.Duration("delay", delay),
			slog.Int("attempt", failures),
		)
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// runConnection holds one connection open until it fails. received reports
// whether the connection got far enough to deliver a message.
func (s *Subscriber) runConnection(ctx context.Context) (received bool, err error) {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return false, &domain.ConnectionError{Addr: s.cfg.URL, Err: err}
	}
	s.logger.Info("feed: connected", slog.String("url", s.cfg.URL))

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return received, &domain.ConnectionError{Addr: s.cfg.URL, Err: err}
		}
		received = true
		conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := s.handle(data); err != nil {
			s.logger.Debug("feed: skipping malformed message", slog.String("error", err.Error()))
		}
	}
}

// handle applies one stream message to the local state.
func (s *Subscriber) handle(data []byte) error {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("feed: decode envelope: %w", err)
	}

	switch env.Type {
	case domain.MessageUpdate:
		s.acceptTrades(env.Trades)
	case domain.MessageMarketStats:
		var stats []domain.MarketStats
		if err := json.Unmarshal(env.Data, &stats); err != nil {
			return fmt.Errorf("feed: decode market stats: %w", err)
		}
		s.mu.Lock()
		s.stats = stats
		s.mu.Unlock()
	case domain.MessagePriceMovements:
		var moves []domain.MarketHistory
		if err := json.Unmarshal(env.Data, &moves); err != nil {
			return fmt.Errorf("feed: decode price movements: %w", err)
		}
		s.mu.Lock()
		s.movements = moves
		s.mu.Unlock()
	}
	return nil
}

func (s *Subscriber) acceptTrades(events []domain.TradeEvent) {
	s.mu.Lock()
	accepted := make([]domain.Trade, 0, len(events))
	for _, ev := range events {
		if ev.Type != "" && ev.Type != domain.EventWhaleTrade {
			continue
		}
		if s.filter.Match(ev.Data) {
			accepted = append(accepted, ev.Data)
		}
	}
	merged := make([]domain.Trade, 0, len(accepted)+len(s.trades))
	merged = append(merged, accepted...)
	merged = append(merged, s.trades...)
	if len(merged) > s.cfg.History {
		merged = merged[:s.cfg.History]
	}
	s.trades = merged
	s.mu.Unlock()

	if s.onTrade != nil {
		for _, t := range accepted {
			s.onTrade(t)
		}
	}
}

// SetFilter replaces the filter and drops buffered trades that no longer
// match it.
func (s *Subscriber) SetFilter(f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	kept := s.trades[:0]
	for _, t := range s.trades {
		if f.Match(t) {
			kept = append(kept, t)
		}
	}
	s.trades = kept
}

// Trades returns the buffered trades, newest first.
func (s *Subscriber) Trades() []domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Trade(nil), s.trades...)
}

// MarketStats returns the latest market rollup received.
func (s *Subscriber) MarketStats() []domain.MarketStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.MarketStats(nil), s.stats...)
}

// PriceMovements returns the latest price history snapshot received.
func (s *Subscriber) PriceMovements() []domain.MarketHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.MarketHistory(nil), s.movements...)
}

// Reconnects returns how many reconnect attempts have been scheduled.
func (s *Subscriber) Reconnects() int { return int(s.attempts.Load()) }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
