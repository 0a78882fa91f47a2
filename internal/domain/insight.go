package domain

// Trend is the direction of recent whale flow.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// Momentum is the YES/NO bias over the most recent whale trades.
type Momentum struct {
	Window     int     `json:"window"`
	YesCount   int     `json:"yesCount"`
	NoCount    int     `json:"noCount"`
	YesPercent float64 `json:"yesPercent"`
	Trend      Trend   `json:"trend"`
	Strength   float64 `json:"strength"`
}

// CategorySentiment is the YES/NO split of whale trades in one category.
type CategorySentiment struct {
	Category   Category `json:"category"`
	YesCount   int      `json:"yesCount"`
	NoCount    int      `json:"noCount"`
	YesPercent float64  `json:"yesPercent"`
	Volume     float64  `json:"volume"`
}

// VolumeBucket aggregates trades within one clock hour.
type VolumeBucket struct {
	HourStartSec int64   `json:"hour"`
	Volume       float64 `json:"volume"`
	TradeCount   int     `json:"tradeCount"`
}
