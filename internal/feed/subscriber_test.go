package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
	"github.com/gorilla/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func feedTrade(id string, cat domain.Category, amount float64) domain.Trade {
	return domain.Trade{ID: id, Wallet: "0x" + id, Market: "M " + id, Amount: amount, Category: cat}
}

func update(trades ...domain.Trade) domain.UpdateMessage {
	msg := domain.UpdateMessage{Type: domain.MessageUpdate, Timestamp: time.Now().UnixMilli()}
	for _, t := range trades {
		msg.Trades = append(msg.Trades, domain.TradeEvent{Type: domain.EventWhaleTrade, Data: t})
	}
	return msg
}

// streamServer answers the n-th connection with scripts[n]. Connections past
// the last script stay open until the server closes.
func streamServer(t *testing.T, scripts [][]any) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := int(conns.Add(1)) - 1
		if n >= len(scripts) {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
		for _, msg := range scripts[n] {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
		if n < len(scripts)-1 {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	return srv, &conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) get() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscriberReconnectKeepsHistory(t *testing.T) {
	stats := domain.MarketStatsMessage{
		Type: domain.MessageMarketStats,
		Data: []domain.MarketStats{{Market: "M a", Volume: 6000, TradeCount: 1}},
	}
	srv, conns := streamServer(t, [][]any{
		{update(feedTrade("a", domain.CategorySports, 6000)), stats},
		{update(feedTrade("b", domain.CategoryCrypto, 9000))},
	})
	defer srv.Close()

	sub := NewSubscriber(SubscriberConfig{
		URL:     wsURL(srv),
		Backoff: Backoff{Base: 5 * time.Second, Max: time.Minute},
	}, testLogger())
	rec := &sleepRecorder{}
	sub.sleep = rec.sleep

	var seen atomic.Int32
	sub.OnTrade(func(domain.Trade) { seen.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	waitFor(t, func() bool { return len(sub.Trades()) == 2 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run err = %v, want context.Canceled", err)
	}

	trades := sub.Trades()
	if trades[0].ID != "b" || trades[1].ID != "a" {
		t.Errorf("history order = %s,%s, want b,a", trades[0].ID, trades[1].ID)
	}
	if got := conns.Load(); got != 2 {
		t.Errorf("connections = %d, want 2", got)
	}
	if sub.Reconnects() < 1 {
		t.Errorf("Reconnects = %d, want at least 1", sub.Reconnects())
	}
	delays := rec.get()
	if len(delays) == 0 || delays[0] != 5*time.Second {
		t.Errorf("reconnect delays = %v, want first 5s", delays)
	}
	if len(sub.MarketStats()) != 1 {
		t.Errorf("market stats not retained across reconnect")
	}
	if seen.Load() != 2 {
		t.Errorf("OnTrade calls = %d, want 2", seen.Load())
	}
}

func TestSubscriberGivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	sub := NewSubscriber(SubscriberConfig{
		URL:     url,
		Backoff: Backoff{Base: time.Second, Max: 4 * time.Second, MaxRetries: 2},
	}, testLogger())
	rec := &sleepRecorder{}
	sub.sleep = rec.sleep

	err := sub.Run(context.Background())
	if !errors.Is(err, domain.ErrConnection) {
		t.Fatalf("err = %v, want ErrConnection", err)
	}
	delays := rec.get()
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Errorf("delays = %v, want [1s 2s]", delays)
	}
}

func TestSubscriberFilter(t *testing.T) {
	sub := NewSubscriber(SubscriberConfig{Filter: Filter{MinAmount: 5000}, History: 3}, testLogger())

	sub.acceptTrades(update(
		feedTrade("small", domain.CategoryCrypto, 4000),
		feedTrade("s1", domain.CategorySports, 6000),
		feedTrade("c1", domain.CategoryCrypto, 7000),
	).Trades)
	if got := len(sub.Trades()); got != 2 {
		t.Fatalf("accepted = %d, want 2", got)
	}

	sub.acceptTrades(update(
		feedTrade("c2", domain.CategoryCrypto, 8000),
		feedTrade("p1", domain.CategoryPolitics, 9000),
	).Trades)
	trades := sub.Trades()
	if len(trades) != 3 || trades[0].ID != "c2" || trades[2].ID != "s1" {
		t.Fatalf("history = %+v", trades)
	}

	sub.SetFilter(Filter{Categories: []domain.Category{"crypto"}, MinAmount: 5000})
	trades = sub.Trades()
	if len(trades) != 1 || trades[0].ID != "c2" {
		t.Errorf("refiltered history = %+v", trades)
	}

	sub.acceptTrades(update(feedTrade("s2", domain.CategorySports, 10000)).Trades)
	if len(sub.Trades()) != 1 {
		t.Errorf("new filter not applied on receipt")
	}
}

func TestSubscriberHandleMessages(t *testing.T) {
	sub := NewSubscriber(SubscriberConfig{}, testLogger())

	if err := sub.handle([]byte(`{"type":"price_movements","data":[{"market":"M","history":[{"timestamp":1,"price":55,"outcome":"YES"}]}],"timestamp":1}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	moves := sub.PriceMovements()
	if len(moves) != 1 || moves[0].History[0].PriceAsPercent != 55 {
		t.Errorf("movements = %+v", moves)
	}

	if err := sub.handle([]byte(`not json`)); err == nil {
		t.Error("expected decode error")
	}
	if err := sub.handle([]byte(`{"type":"unknown"}`)); err != nil {
		t.Errorf("unknown type: %v", err)
	}
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Base: 5 * time.Second, Max: 60 * time.Second}
	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{3, 40 * time.Second},
		{4, 60 * time.Second},
		{30, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.n, 0.5); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}

	j := Backoff{Base: 10 * time.Second, Max: 60 * time.Second, Jitter: 0.5}
	if got := j.Delay(0, 0); got != 5*time.Second {
		t.Errorf("low jitter = %v, want 5s", got)
	}
	if got := j.Delay(3, 0.999); got != 60*time.Second {
		t.Errorf("jitter above cap = %v, want 60s", got)
	}

	if (Backoff{}).Exhausted(100) {
		t.Error("zero MaxRetries should retry forever")
	}
	if !(Backoff{MaxRetries: 3}).Exhausted(3) {
		t.Error("expected exhausted at 3")
	}
}
