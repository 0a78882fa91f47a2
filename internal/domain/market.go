package domain

// MarketStats is the per-market rollup of one trade batch.
type MarketStats struct {
	Market           string  `json:"market"`
	Volume           float64 `json:"volume"`
	TradeCount       int     `json:"tradeCount"`
	WhaleWalletCount int     `json:"whaleWalletCount"`
}

// PriceHistoryPoint is one observation of a market's price.
type PriceHistoryPoint struct {
	TimestampMs    int64   `json:"timestamp"`
	PriceAsPercent float64 `json:"price"`
	Outcome        Outcome `json:"outcome"`
}

// MarketHistory is the retained price history of one market.
type MarketHistory struct {
	Market  string              `json:"market"`
	History []PriceHistoryPoint `json:"history"`
}

// MarketOutcomes describes the outcome tokens of one market as listed by
// Gamma. Outcomes and TokenIDs are index aligned.
type MarketOutcomes struct {
	ConditionID string
	Question    string
	Outcomes    []string
	TokenIDs    []string
	Tags        []string
}
