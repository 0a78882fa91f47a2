package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestTradeCacheExpiry(t *testing.T) {
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	c := NewTradeCache()
	c.now = clk.now
	ctx := context.Background()

	if _, err := c.GetBatch(ctx, "latest"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := c.SetBatch(ctx, "latest", []domain.Trade{{ID: "a"}}, 10*time.Second); err != nil {
		t.Fatal(err)
	}
	got, err := c.GetBatch(ctx, "latest")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected hit, got %v %v", got, err)
	}
	clk.t = clk.t.Add(10 * time.Second)
	if _, err := c.GetBatch(ctx, "latest"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected expiry at ttl, got %v", err)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter()
	rl.now = clk.now
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow(ctx, "ip", 3, time.Minute); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	if ok, _ := rl.Allow(ctx, "ip", 3, time.Minute); ok {
		t.Error("fourth request should be limited")
	}
	if ok, _ := rl.Allow(ctx, "other", 3, time.Minute); !ok {
		t.Error("keys should be independent")
	}
	clk.t = clk.t.Add(time.Minute + time.Second)
	if ok, _ := rl.Allow(ctx, "ip", 3, time.Minute); !ok {
		t.Error("window should have slid")
	}
}

func TestLockManager(t *testing.T) {
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	lm := NewLockManager()
	lm.now = clk.now
	ctx := context.Background()

	first, err := lm.Acquire(ctx, "ingest", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lm.Acquire(ctx, "ingest", time.Minute); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	first.Release()
	first.Release()
	if _, err := lm.Acquire(ctx, "ingest", time.Minute); err != nil {
		t.Fatalf("expected reacquire after release, got %v", err)
	}

	clk.t = clk.t.Add(2 * time.Minute)
	if _, err := lm.Acquire(ctx, "ingest", time.Minute); err != nil {
		t.Errorf("expected reacquire after expiry, got %v", err)
	}
}

func TestLeaseRefresh(t *testing.T) {
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	lm := NewLockManager()
	lm.now = clk.now
	ctx := context.Background()

	l, err := lm.Acquire(ctx, "ingest", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	clk.t = clk.t.Add(50 * time.Second)
	if err := l.Refresh(ctx, time.Minute); err != nil {
		t.Fatalf("refresh of live lease: %v", err)
	}
	clk.t = clk.t.Add(50 * time.Second)
	if _, err := lm.Acquire(ctx, "ingest", time.Minute); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("refreshed lease should still be held, got %v", err)
	}

	clk.t = clk.t.Add(2 * time.Minute)
	other, err := lm.Acquire(ctx, "ingest", time.Minute)
	if err != nil {
		t.Fatalf("expected takeover after expiry, got %v", err)
	}
	if err := l.Refresh(ctx, time.Minute); !errors.Is(err, domain.ErrLockHeld) {
		t.Errorf("stale lease refresh: expected ErrLockHeld, got %v", err)
	}
	l.Release()
	if err := other.Refresh(ctx, time.Minute); err != nil {
		t.Errorf("stale release must not drop the new holder: %v", err)
	}
}

func TestPriceCache(t *testing.T) {
	c := NewPriceCache()
	ctx := context.Background()
	_ = c.SetPrice(ctx, "a", 0.4, time.Unix(1, 0))
	got, _ := c.GetPrices(ctx, []string{"a", "b"})
	if len(got) != 1 || got["a"] != 0.4 {
		t.Errorf("unexpected prices %v", got)
	}
	if _, _, err := c.GetPrice(ctx, "b"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
