package domain

import (
	"math"
	"time"
)

// UnknownMarket is the title used when the upstream record carries none.
const UnknownMarket = "Unknown Market"

// Side is the upstream direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Outcome is the side of a binary market that was traded.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// RawTrade is a trade record as returned by the Polymarket data-api. Field
// names vary between endpoints, so both wallet aliases are kept.
type RawTrade struct {
	ProxyWallet     string   `json:"proxyWallet"`
	Taker           string   `json:"taker"`
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Tags            []string `json:"tags"`
	Outcome         string   `json:"outcome"`
	OutcomeIndex    *int     `json:"outcomeIndex"`
	Side            string   `json:"side"`
	Size            float64  `json:"size"`
	Price           float64  `json:"price"`
	Timestamp       int64    `json:"timestamp"`
	Asset           string   `json:"asset"`
	AssetID         string   `json:"asset_id"`
	ConditionID     string   `json:"conditionId"`
	TransactionHash string   `json:"transactionHash"`
}

// Trade is the canonical, normalized trade record.
type Trade struct {
	ID              string   `json:"id"`
	Wallet          string   `json:"wallet"`
	Market          string   `json:"market"`
	AssetID         string   `json:"assetId,omitempty"`
	ConditionID     string   `json:"conditionId,omitempty"`
	Side            Side     `json:"side"`
	Outcome         Outcome  `json:"outcome"`
	OutcomeInferred bool     `json:"outcomeInferred,omitempty"`
	Size            float64  `json:"size"`
	Price           float64  `json:"price"`
	Amount          float64  `json:"amount"`
	TimestampSec    int64    `json:"timestamp"`
	Tags            []string `json:"tags,omitempty"`
	Category        Category `json:"category"`
	TxHash          string   `json:"txHash,omitempty"`
	TimeAgo         string   `json:"timeAgo,omitempty"`
}

// Time returns the trade timestamp as a time.Time.
func (t Trade) Time() time.Time {
	return time.Unix(t.TimestampSec, 0).UTC()
}

// IsWhale reports whether the trade amount meets the threshold.
func (t Trade) IsWhale(threshold float64) bool {
	return t.Amount >= threshold
}

// TradeAmount is the cash value of a trade, rounded to whole dollars.
func TradeAmount(size, price float64) float64 {
	return math.Round(size * price)
}
