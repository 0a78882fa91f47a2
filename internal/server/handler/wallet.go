package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/emmatheo/polyscop/internal/domain"
)

// WalletService is what WalletHandler needs from the service layer.
type WalletService interface {
	Detail(ctx context.Context, wallet string) (domain.WalletDetail, error)
}

// WalletHandler serves per-wallet trade history.
type WalletHandler struct {
	wallets WalletService
	logger  *slog.Logger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallets WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, logger: logger}
}

// Trades returns the wallet summary. The address comes from the path or,
// on the legacy route, from the wallet query parameter.
// GET /api/wallets/{wallet}/trades
// GET /api/wallet-trades?wallet=0x...
func (h *WalletHandler) Trades(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	if wallet == "" {
		wallet = r.URL.Query().Get("wallet")
	}
	detail, err := h.wallets.Detail(r.Context(), wallet)
	if err != nil {
		writeServiceError(w, r, h.logger, "wallet trades", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
