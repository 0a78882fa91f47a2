package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emmatheo/polyscop/internal/analytics"
	"github.com/emmatheo/polyscop/internal/cache/memory"
	"github.com/emmatheo/polyscop/internal/domain"
	"github.com/emmatheo/polyscop/internal/server/handler"
)

type fakeServices struct {
	lastQuery  analytics.TradeQuery
	lastWallet string
	tradesErr  error
}

func (f *fakeServices) List(_ context.Context, q analytics.TradeQuery) ([]domain.Trade, error) {
	f.lastQuery = q
	if f.tradesErr != nil {
		return nil, f.tradesErr
	}
	return []domain.Trade{{ID: "t1", Wallet: "0xabc", Market: "M", Amount: 6000}}, nil
}

func (f *fakeServices) Detail(_ context.Context, wallet string) (domain.WalletDetail, error) {
	f.lastWallet = wallet
	if wallet == "" {
		return domain.WalletDetail{}, domain.NewValidationError("wallet", "wallet address is required")
	}
	return domain.WalletDetail{Wallet: wallet, Trades: []domain.TradeDetail{}}, nil
}

type fakeTraders struct{}

func (fakeTraders) Top(context.Context, string, int) ([]domain.TraderStats, error) {
	return []domain.TraderStats{}, nil
}

type fakeMarkets struct{}

func (fakeMarkets) Top(context.Context, int) ([]domain.MarketStats, error) {
	return []domain.MarketStats{{Market: "M", Volume: 6000, TradeCount: 1}}, nil
}

type fakeInsights struct{}

func (fakeInsights) Momentum(_ context.Context, n int) (domain.Momentum, error) {
	return domain.Momentum{Window: n, YesPercent: 50, Trend: domain.TrendNeutral}, nil
}
func (fakeInsights) Sentiment(context.Context) ([]domain.CategorySentiment, error) {
	return []domain.CategorySentiment{}, nil
}
func (fakeInsights) Volume(context.Context, int) ([]domain.VolumeBucket, error) {
	return []domain.VolumeBucket{}, nil
}
func (fakeInsights) HugeWhales(context.Context, int) ([]domain.Trade, error) {
	return []domain.Trade{}, nil
}

func newTestHandler(t *testing.T, svc *fakeServices, limiter domain.RateLimiter, rate int, checks map[string]handler.Checker) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handlers := Handlers{
		Health:   handler.NewHealthHandler(checks, logger),
		Trades:   handler.NewTradeHandler(svc, logger),
		Traders:  handler.NewTraderHandler(fakeTraders{}, logger),
		Wallets:  handler.NewWalletHandler(svc, logger),
		Markets:  handler.NewMarketHandler(fakeMarkets{}, logger),
		Insights: handler.NewInsightHandler(fakeInsights{}, logger),
	}
	cfg := Config{Port: 8000, RateLimit: rate, RateWindow: time.Minute}
	return NewHandler(cfg, handlers, nil, limiter, logger)
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestTradesPassesQuery(t *testing.T) {
	svc := &fakeServices{}
	h := newTestHandler(t, svc, nil, 0, nil)

	rec := do(h, http.MethodGet, "/api/trades?limit=25&search=btc&minAmount=7500&category=Crypto")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	want := analytics.TradeQuery{Search: "btc", MinAmount: 7500, Category: "Crypto", Limit: 25}
	if svc.lastQuery != want {
		t.Errorf("query = %+v, want %+v", svc.lastQuery, want)
	}
	var trades []domain.Trade
	if err := json.Unmarshal(rec.Body.Bytes(), &trades); err != nil || len(trades) != 1 {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestTradesBadQueryIs400(t *testing.T) {
	h := newTestHandler(t, &fakeServices{}, nil, 0, nil)
	rec := do(h, http.MethodGet, "/api/trades?limit=abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if msg := errorBody(t, rec); !strings.Contains(msg, "limit") {
		t.Errorf("error = %q", msg)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		msg  string
	}{
		{"upstream", &domain.UpstreamError{Op: "trades", StatusCode: 503, Err: errors.New("down")}, http.StatusBadGateway, "upstream trade feed unavailable"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
		{"validation", domain.NewValidationError("category", "unknown"), http.StatusBadRequest, "category: unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &fakeServices{tradesErr: tt.err}, nil, 0, nil)
			rec := do(h, http.MethodGet, "/api/trades")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if msg := errorBody(t, rec); msg != tt.msg {
				t.Errorf("error = %q, want %q", msg, tt.msg)
			}
		})
	}
}

func TestWalletRoutes(t *testing.T) {
	svc := &fakeServices{}
	h := newTestHandler(t, svc, nil, 0, nil)

	rec := do(h, http.MethodGet, "/api/wallets/0xABC/trades")
	if rec.Code != http.StatusOK || svc.lastWallet != "0xABC" {
		t.Errorf("path route: status %d wallet %q", rec.Code, svc.lastWallet)
	}

	rec = do(h, http.MethodGet, "/api/wallet-trades?wallet=0xdef")
	if rec.Code != http.StatusOK || svc.lastWallet != "0xdef" {
		t.Errorf("query route: status %d wallet %q", rec.Code, svc.lastWallet)
	}

	rec = do(h, http.MethodGet, "/api/wallet-trades")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing wallet status = %d, want 400", rec.Code)
	}
	if msg := errorBody(t, rec); msg == "" {
		t.Error("missing error message")
	}
}

func TestInsightRoutes(t *testing.T) {
	h := newTestHandler(t, &fakeServices{}, nil, 0, nil)
	for _, path := range []string{
		"/api/traders?limit=5",
		"/api/markets",
		"/api/insights/momentum?window=20",
		"/api/insights/sentiment",
		"/api/insights/volume?hours=24",
		"/api/alerts/huge",
	} {
		rec := do(h, http.MethodGet, path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("%s: content type %q", path, ct)
		}
	}

	rec := do(h, http.MethodGet, "/api/insights/volume?hours=-1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative hours status = %d", rec.Code)
	}
}

func TestReadyReportsFailingDependency(t *testing.T) {
	checks := map[string]handler.Checker{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
	}
	h := newTestHandler(t, &fakeServices{}, nil, 0, checks)

	if rec := do(h, http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}

	rec := do(h, http.MethodGet, "/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready status = %d, want 503", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "degraded" || body.Checks["postgres"] != "ok" || body.Checks["redis"] == "ok" {
		t.Errorf("body = %+v", body)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	h := newTestHandler(t, &fakeServices{}, memory.NewRateLimiter(), 2, nil)

	for i := 0; i < 2; i++ {
		if rec := do(h, http.MethodGet, "/api/markets"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := do(h, http.MethodGet, "/api/markets")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if msg := errorBody(t, rec); msg != "rate limit exceeded" {
		t.Errorf("error = %q", msg)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	other := httptest.NewRecorder()
	h.ServeHTTP(other, req)
	if other.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", other.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t, &fakeServices{}, nil, 0, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/trades", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q, want the served methods", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Expose-Headers") != "Retry-After" {
		t.Errorf("status %d expose %q", rec.Code, rec.Header().Get("Access-Control-Expose-Headers"))
	}
}

func TestRouteMethods(t *testing.T) {
	rs := []route{{pattern: "GET /a"}, {pattern: "POST /b"}, {pattern: "GET /c"}}
	if got := routeMethods(rs); len(got) != 2 || got[0] != "GET" || got[1] != "POST" {
		t.Errorf("routeMethods = %v", got)
	}
}
