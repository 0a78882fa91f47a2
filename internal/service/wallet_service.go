package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/emmatheo/polyscop/internal/analytics"
	"github.com/emmatheo/polyscop/internal/domain"
)

// WalletService reports one wallet's trade history with realized results.
type WalletService struct {
	trades    *TradeService
	store     domain.TradeStore
	prices    *PriceService
	scanLimit int
}

// NewWalletService creates a WalletService. store may be nil.
func NewWalletService(trades *TradeService, store domain.TradeStore, prices *PriceService, scanLimit int) *WalletService {
	if scanLimit <= 0 {
		scanLimit = MaxListLimit
	}
	return &WalletService{trades: trades, store: store, prices: prices, scanLimit: scanLimit}
}

// Detail returns the wallet summary. An empty wallet is a validation error.
func (s *WalletService) Detail(ctx context.Context, wallet string) (domain.WalletDetail, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return domain.WalletDetail{}, domain.NewValidationError("wallet", "wallet address required")
	}

	var (
		trades []domain.Trade
		err    error
	)
	if s.store != nil {
		trades, err = s.store.ListByWallet(ctx, wallet, domain.ListOpts{Limit: s.scanLimit})
		if err != nil {
			return domain.WalletDetail{}, fmt.Errorf("wallet_service: load %s: %w", wallet, err)
		}
	} else {
		trades, err = s.trades.Recent(ctx, s.scanLimit, 0)
		if err != nil {
			return domain.WalletDetail{}, err
		}
	}

	est := s.prices.Estimator(ctx, trades)
	return analytics.WalletSummary(wallet, trades, est, s.trades.Now()), nil
}
