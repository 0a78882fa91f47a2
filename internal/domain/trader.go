package domain

// TraderStats is the per-wallet result of one aggregation pass over a
// trailing window.
type TraderStats struct {
	Wallet              string  `json:"wallet"`
	TotalVolume30d      float64 `json:"totalVolume30d"`
	TradeCount30d       int     `json:"tradeCount30d"`
	WhaleTradeCount30d  int     `json:"whaleTradeCount30d"`
	RealizedPnL         float64 `json:"realizedPnL"`
	UnrealizedPnL       float64 `json:"unrealizedPnL"`
	TotalProfit         float64 `json:"totalProfit"`
	WinningPositions    int     `json:"winningPositions"`
	TotalPositions      int     `json:"totalPositions"`
	WinRate             float64 `json:"winRate"`
	ProfitChange24h     float64 `json:"profitChange24h"`
	RecentActivity      int64   `json:"recentActivity"`
	RecentActivityLabel string  `json:"recentActivityLabel,omitempty"`
	// Incomplete is set when the wallet sold a position that was opened
	// outside the observed batch, so realized P&L is undercounted.
	Incomplete          bool   `json:"incomplete"`
	UnrealizedEstimator string `json:"unrealizedEstimator"`
}

// TradeDetail is one row of the wallet detail view.
type TradeDetail struct {
	Trade
	ProfitLoss *float64 `json:"profitLoss,omitempty"`
	IsWin      *bool    `json:"isWin,omitempty"`
}

// WalletDetail summarises a single wallet's trades.
type WalletDetail struct {
	Wallet      string        `json:"wallet"`
	TotalTrades int           `json:"totalTrades"`
	Wins        int           `json:"wins"`
	Losses      int           `json:"losses"`
	WinRate     float64       `json:"winRate"`
	TotalProfit float64       `json:"totalProfit"`
	Unrealized  float64       `json:"unrealizedPnL"`
	Incomplete  bool          `json:"incomplete"`
	Trades      []TradeDetail `json:"trades"`
}
