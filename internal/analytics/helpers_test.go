package analytics

import (
	"fmt"
	"math"

	"github.com/emmatheo/polyscop/internal/domain"
)

func mkTrade(wallet, asset string, side domain.Side, size, price float64, ts int64) domain.Trade {
	return domain.Trade{
		ID:           fmt.Sprintf("%s-%d-%s", wallet, ts, side),
		Wallet:       wallet,
		Market:       "Market " + asset,
		AssetID:      asset,
		Side:         side,
		Outcome:      domain.OutcomeYes,
		Size:         size,
		Price:        price,
		Amount:       domain.TradeAmount(size, price),
		TimestampSec: ts,
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
