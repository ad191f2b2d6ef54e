package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledgergate/internal/wallet"
	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/httputil"
)

// WalletHandler wires wallet classification endpoints.
type WalletHandler struct {
	service *wallet.Service
	logger  *slog.Logger
}

func NewWalletHandler(service *wallet.Service, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{service: service, logger: logger}
}

func (h *WalletHandler) Register(r chi.Router) {
	r.Post("/wallets/issuer", h.handleClassifyIssuer)
	r.Post("/wallets/issuer/bulk", h.handleClassifyIssuers)
	r.Post("/wallets/platform", h.handleClassifyPlatform)
	r.Post("/wallets/exchange", h.handleClassifyExchange)
	r.Delete("/wallets/{wallet}", h.handleClear)
	r.Get("/wallets/{wallet}", h.handleGet)
}

type classifyRequest struct {
	Wallet string `json:"wallet"`
}

func (h *WalletHandler) handleClassifyIssuer(w http.ResponseWriter, r *http.Request) {
	h.classify(w, r, h.service.ClassifyIssuerWallet, wallet.ClassIssuer)
}

func (h *WalletHandler) handleClassifyPlatform(w http.ResponseWriter, r *http.Request) {
	h.classify(w, r, h.service.ClassifyPlatformWallet, wallet.ClassPlatform)
}

func (h *WalletHandler) classify(w http.ResponseWriter, r *http.Request, call func(ctx context.Context, wallet id.Address) error, class wallet.Classification) {
	req, ok := httputil.Decode[classifyRequest](w, r, h.logger)
	if !ok {
		return
	}
	addr, err := id.ParseAddress(req.Wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := call(r.Context(), addr); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"wallet": addr.String(), "classification": class.String()})
}

type classifyBulkRequest struct {
	Wallets []string `json:"wallets"`
}

func (h *WalletHandler) handleClassifyIssuers(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[classifyBulkRequest](w, r, h.logger)
	if !ok {
		return
	}
	wallets := make([]id.Address, 0, len(req.Wallets))
	for _, raw := range req.Wallets {
		addr, err := id.ParseAddress(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		wallets = append(wallets, addr)
	}
	if err := h.service.ClassifyIssuerWallets(r.Context(), wallets); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"classified": len(wallets)})
}

type classifyExchangeRequest struct {
	Wallet string `json:"wallet"`
	Owner  string `json:"owner"`
}

func (h *WalletHandler) handleClassifyExchange(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[classifyExchangeRequest](w, r, h.logger)
	if !ok {
		return
	}
	addr, err := id.ParseAddress(req.Wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	owner, err := id.ParseAddress(req.Owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.ClassifyExchangeWallet(r.Context(), addr, owner); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"wallet":         addr.String(),
		"classification": wallet.ClassExchange.String(),
		"owner":          owner.String(),
	})
}

func (h *WalletHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	addr, err := id.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Clear(r.Context(), addr); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"wallet": addr.String(), "classification": wallet.ClassNone.String()})
}

func (h *WalletHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	addr, err := id.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	class, err := h.service.ClassificationOf(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"wallet": addr.String(), "classification": class.String()})
}
