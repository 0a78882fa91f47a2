package domain

import "encoding/json"

// Realtime message types pushed on the /ws stream.
const (
	MessageUpdate         = "update"
	MessageMarketStats    = "market_stats"
	MessagePriceMovements = "price_movements"
	EventWhaleTrade       = "whale_trade"
)

// TradeEvent wraps one trade inside an update message.
type TradeEvent struct {
	Type string `json:"type"`
	Data Trade  `json:"data"`
}

// UpdateMessage carries the trades that are new since the previous cycle.
type UpdateMessage struct {
	Type      string       `json:"type"`
	Trades    []TradeEvent `json:"trades"`
	Timestamp int64        `json:"timestamp"`
}

// MarketStatsMessage carries the full market rollup of one cycle.
type MarketStatsMessage struct {
	Type      string        `json:"type"`
	Data      []MarketStats `json:"data"`
	Timestamp int64         `json:"timestamp"`
}

// PriceMovementsMessage carries the retained price history of every tracked
// market.
type PriceMovementsMessage struct {
	Type      string          `json:"type"`
	Data      []MarketHistory `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Envelope is the decoding view of any realtime message. Data is decoded
// according to Type.
type Envelope struct {
	Type      string          `json:"type"`
	Trades    []TradeEvent    `json:"trades,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}
