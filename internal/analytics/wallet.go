package analytics

import (
	"strings"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
)

// WalletSummary scans trades for one wallet (case-insensitive), replays them
// through a fresh ledger and reports wins and losses from closed positions.
// Trades are returned newest first; SELLs that realized P&L carry it.
func WalletSummary(wallet string, trades []domain.Trade, estimator UnrealizedPnLEstimator, now time.Time) domain.WalletDetail {
	var own []domain.Trade
	for _, t := range trades {
		if strings.EqualFold(t.Wallet, wallet) {
			own = append(own, t)
		}
	}
	SortByTime(own)

	detail := domain.WalletDetail{
		Wallet:      wallet,
		TotalTrades: len(own),
		Trades:      make([]domain.TradeDetail, len(own)),
	}

	ledger := NewLedger()
	var realized float64
	for i, t := range own {
		t.TimeAgo = FormatRelative(t.TimestampSec, now)
		row := domain.TradeDetail{Trade: t}
		if ev, ok := ledger.Apply(t); ok {
			pnl, win := ev.PnL, ev.IsWin
			row.ProfitLoss = &pnl
			row.IsWin = &win
			realized += pnl
			if win {
				detail.Wins++
			} else {
				detail.Losses++
			}
		}
		// Reverse while filling so the newest trade comes first.
		detail.Trades[len(own)-1-i] = row
	}

	if estimator == nil {
		estimator = NewFlatMarkupEstimator(DefaultMarkup)
	}
	detail.Unrealized = estimator.Estimate(ledger.Positions())
	detail.TotalProfit = realized + detail.Unrealized
	detail.WinRate = WinRate(detail.Wins, detail.Wins+detail.Losses)
	for _, w := range ledger.IncompleteWallets() {
		if strings.EqualFold(w, wallet) {
			detail.Incomplete = true
		}
	}
	return detail
}
