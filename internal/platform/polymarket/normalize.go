package polymarket

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/emmatheo/polyscop/internal/analytics"
	"github.com/emmatheo/polyscop/internal/domain"
)

// OutcomeResolver maps an outcome token to the YES/NO side of its market.
// ok is false when the token is unknown.
type OutcomeResolver interface {
	ResolveOutcome(ctx context.Context, assetID string) (outcome domain.Outcome, ok bool, err error)
}

// tradeSeq disambiguates trades from one wallet within the same second.
var tradeSeq atomic.Uint64

// msThreshold separates second and millisecond epoch timestamps.
const msThreshold = 1_000_000_000_000

// Normalize validates a raw data-api record and maps it to a domain.Trade.
// resolver may be nil. A resolver error is not fatal: normalization falls back
// to the trade side and flags the outcome as inferred.
func Normalize(ctx context.Context, raw domain.RawTrade, resolver OutcomeResolver) (domain.Trade, error) {
	wallet := raw.ProxyWallet
	if wallet == "" {
		wallet = raw.Taker
	}
	wallet = strings.ToLower(strings.TrimSpace(wallet))
	if wallet == "" {
		return domain.Trade{}, domain.NewValidationError("wallet", "missing proxyWallet and taker")
	}

	side := domain.Side(strings.ToUpper(strings.TrimSpace(raw.Side)))
	if side != domain.SideBuy && side != domain.SideSell {
		return domain.Trade{}, domain.NewValidationError("side", fmt.Sprintf("unknown side %q", raw.Side))
	}
	if math.IsNaN(raw.Size) || raw.Size <= 0 {
		return domain.Trade{}, domain.NewValidationError("size", "must be positive")
	}
	if math.IsNaN(raw.Price) || raw.Price < 0 || raw.Price > 1 {
		return domain.Trade{}, domain.NewValidationError("price", fmt.Sprintf("%v outside [0,1]", raw.Price))
	}

	ts := raw.Timestamp
	if ts >= msThreshold {
		ts /= 1000
	}
	if ts <= 0 {
		return domain.Trade{}, domain.NewValidationError("timestamp", "missing")
	}

	market := strings.TrimSpace(raw.Title)
	if market == "" {
		market = domain.UnknownMarket
	}
	assetID := raw.Asset
	if assetID == "" {
		assetID = raw.AssetID
	}

	t := domain.Trade{
		ID:           tradeID(wallet, ts),
		Wallet:       wallet,
		Market:       market,
		AssetID:      assetID,
		ConditionID:  raw.ConditionID,
		Side:         side,
		Size:         raw.Size,
		Price:        raw.Price,
		Amount:       domain.TradeAmount(raw.Size, raw.Price),
		TimestampSec: ts,
		Tags:         raw.Tags,
		TxHash:       raw.TransactionHash,
	}
	t.Outcome, t.OutcomeInferred = resolveOutcome(ctx, raw, assetID, side, resolver)
	analytics.ClassifyTrade(&t)
	return t, nil
}

// resolveOutcome tries the explicit label, then the outcome index, then the
// resolver. The side is the last resort and is reported as inferred.
func resolveOutcome(ctx context.Context, raw domain.RawTrade, assetID string, side domain.Side, resolver OutcomeResolver) (domain.Outcome, bool) {
	if o, ok := ParseOutcome(raw.Outcome); ok {
		return o, false
	}
	if raw.OutcomeIndex != nil {
		if o, ok := outcomeFromIndex(*raw.OutcomeIndex); ok {
			return o, false
		}
	}
	if resolver != nil && assetID != "" {
		if o, ok, err := resolver.ResolveOutcome(ctx, assetID); err == nil && ok {
			return o, false
		}
	}
	if side == domain.SideSell {
		return domain.OutcomeNo, true
	}
	return domain.OutcomeYes, true
}

// ParseOutcome maps a Yes/No label, in any case, to an Outcome.
func ParseOutcome(label string) (domain.Outcome, bool) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "YES":
		return domain.OutcomeYes, true
	case "NO":
		return domain.OutcomeNo, true
	}
	return "", false
}

func outcomeFromIndex(idx int) (domain.Outcome, bool) {
	switch idx {
	case 0:
		return domain.OutcomeYes, true
	case 1:
		return domain.OutcomeNo, true
	}
	return "", false
}

func tradeID(wallet string, ts int64) string {
	seq := tradeSeq.Add(1)
	return fmt.Sprintf("%s-%d-%d-%s", wallet, ts, seq, uuid.NewString()[:8])
}
