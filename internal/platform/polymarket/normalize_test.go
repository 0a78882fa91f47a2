package polymarket

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/emmatheo/polyscop/internal/domain"
)

type stubResolver struct {
	outcome domain.Outcome
	ok      bool
	err     error
	calls   int
}

func (s *stubResolver) ResolveOutcome(context.Context, string) (domain.Outcome, bool, error) {
	s.calls++
	return s.outcome, s.ok, s.err
}

func intPtr(i int) *int { return &i }

func baseRaw() domain.RawTrade {
	return domain.RawTrade{
		ProxyWallet: "0xABCDEF",
		Title:       "Will the Lakers win the NBA Finals?",
		Outcome:     "Yes",
		Side:        "buy",
		Size:        1000,
		Price:       0.655,
		Timestamp:   1_700_000_000,
		Asset:       "tok-1",
	}
}

func TestNormalize(t *testing.T) {
	tr, err := Normalize(context.Background(), baseRaw(), nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if tr.Wallet != "0xabcdef" {
		t.Errorf("expected lower-cased wallet, got %q", tr.Wallet)
	}
	if tr.Side != domain.SideBuy || tr.Outcome != domain.OutcomeYes || tr.OutcomeInferred {
		t.Errorf("unexpected side/outcome: %s/%s inferred=%v", tr.Side, tr.Outcome, tr.OutcomeInferred)
	}
	if tr.Amount != 655 {
		t.Errorf("expected amount 655, got %v", tr.Amount)
	}
	if tr.AssetID != "tok-1" {
		t.Errorf("expected asset tok-1, got %q", tr.AssetID)
	}
	if tr.Category != domain.CategorySports {
		t.Errorf("expected sports, got %s", tr.Category)
	}
	if !strings.HasPrefix(tr.ID, "0xabcdef-1700000000-") {
		t.Errorf("unexpected id %q", tr.ID)
	}
}

func TestNormalizeFallbacks(t *testing.T) {
	raw := baseRaw()
	raw.ProxyWallet = ""
	raw.Taker = "0xTAKER"
	raw.Title = ""
	raw.Asset = ""
	raw.AssetID = "tok-2"
	raw.Timestamp = 1_700_000_000_123

	tr, err := Normalize(context.Background(), raw, nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if tr.Wallet != "0xtaker" {
		t.Errorf("expected taker wallet, got %q", tr.Wallet)
	}
	if tr.Market != domain.UnknownMarket {
		t.Errorf("expected unknown market, got %q", tr.Market)
	}
	if tr.AssetID != "tok-2" {
		t.Errorf("expected asset_id fallback, got %q", tr.AssetID)
	}
	if tr.TimestampSec != 1_700_000_000 {
		t.Errorf("expected millisecond timestamp to be scaled, got %d", tr.TimestampSec)
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]func(r *domain.RawTrade){
		"no wallet":     func(r *domain.RawTrade) { r.ProxyWallet = "" },
		"bad side":      func(r *domain.RawTrade) { r.Side = "HOLD" },
		"zero size":     func(r *domain.RawTrade) { r.Size = 0 },
		"price above 1": func(r *domain.RawTrade) { r.Price = 1.2 },
		"negative":      func(r *domain.RawTrade) { r.Price = -0.1 },
		"no timestamp":  func(r *domain.RawTrade) { r.Timestamp = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			raw := baseRaw()
			mutate(&raw)
			_, err := Normalize(context.Background(), raw, nil)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNormalizeOutcomeResolution(t *testing.T) {
	t.Run("index", func(t *testing.T) {
		raw := baseRaw()
		raw.Outcome = "Lakers"
		raw.OutcomeIndex = intPtr(1)
		res := &stubResolver{outcome: domain.OutcomeYes, ok: true}
		tr, err := Normalize(context.Background(), raw, res)
		if err != nil {
			t.Fatal(err)
		}
		if tr.Outcome != domain.OutcomeNo || tr.OutcomeInferred {
			t.Errorf("expected NO from index, got %s inferred=%v", tr.Outcome, tr.OutcomeInferred)
		}
		if res.calls != 0 {
			t.Errorf("resolver should not be consulted, got %d calls", res.calls)
		}
	})

	t.Run("resolver", func(t *testing.T) {
		raw := baseRaw()
		raw.Outcome = ""
		res := &stubResolver{outcome: domain.OutcomeNo, ok: true}
		tr, err := Normalize(context.Background(), raw, res)
		if err != nil {
			t.Fatal(err)
		}
		if tr.Outcome != domain.OutcomeNo || tr.OutcomeInferred {
			t.Errorf("expected NO from resolver, got %s inferred=%v", tr.Outcome, tr.OutcomeInferred)
		}
	})

	t.Run("side fallback", func(t *testing.T) {
		raw := baseRaw()
		raw.Outcome = ""
		raw.Side = "SELL"
		res := &stubResolver{err: errors.New("boom")}
		tr, err := Normalize(context.Background(), raw, res)
		if err != nil {
			t.Fatal(err)
		}
		if tr.Outcome != domain.OutcomeNo || !tr.OutcomeInferred {
			t.Errorf("expected inferred NO, got %s inferred=%v", tr.Outcome, tr.OutcomeInferred)
		}
	})
}

func TestNormalizeUniqueIDs(t *testing.T) {
	a, _ := Normalize(context.Background(), baseRaw(), nil)
	b, _ := Normalize(context.Background(), baseRaw(), nil)
	if a.ID == b.ID {
		t.Errorf("expected distinct ids for same wallet and second, got %q twice", a.ID)
	}
}
