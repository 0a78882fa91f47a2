package domain

// PositionKey identifies an open lot.
type PositionKey struct {
	Wallet  string
	AssetID string
}

// Position is an open, volume-weighted average-cost holding in one outcome
// token for one wallet. Size is never negative.
type Position struct {
	Wallet     string  `json:"wallet"`
	AssetID    string  `json:"assetId"`
	Market     string  `json:"market"`
	EntryPrice float64 `json:"entryPrice"`
	Size       float64 `json:"size"`
	Cost       float64 `json:"cost"`
	UpdatedAt  int64   `json:"updatedAt"`
}

// Key returns the ledger key of the position.
func (p Position) Key() PositionKey {
	return PositionKey{Wallet: p.Wallet, AssetID: p.AssetID}
}

// RealizationEvent is emitted when a SELL reduces or closes a position.
type RealizationEvent struct {
	Wallet       string  `json:"wallet"`
	AssetID      string  `json:"assetId"`
	Market       string  `json:"market"`
	TradeID      string  `json:"tradeId"`
	PnL          float64 `json:"pnl"`
	IsWin        bool    `json:"isWin"`
	ClosedSize   float64 `json:"closedSize"`
	TimestampSec int64   `json:"timestamp"`
}
