package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ledgergate/internal/investor"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/httputil"
)

// InvestorHandler wires investor registry endpoints to the investor
// service.
type InvestorHandler struct {
	service *investor.Service
	logger  *slog.Logger
}

func NewInvestorHandler(service *investor.Service, logger *slog.Logger) *InvestorHandler {
	return &InvestorHandler{service: service, logger: logger}
}

func (h *InvestorHandler) Register(r chi.Router) {
	r.Post("/investors", h.handleRegister)
	r.Put("/investors/{id}/country", h.handleSetCountry)
	r.Put("/investors/{id}/attributes", h.handleSetAttribute)
	r.Post("/investors/{id}/wallets", h.handleAddWallet)
	r.Post("/investors/wallets/bulk", h.handleAddWallets)
	r.Get("/investors/by-wallet/{wallet}", h.handleGetByWallet)
	r.Get("/investors/{id}/country", h.handleGetCountry)
	r.Get("/investors/{id}/attributes/{type}", h.handleGetAttribute)
}

type registerInvestorRequest struct {
	ID            string `json:"id"`
	CollisionHash string `json:"collision_hash"`
}

func (h *InvestorHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[registerInvestorRequest](w, r, h.logger)
	if !ok {
		return
	}
	investorID, err := id.ParseInvestorID(req.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Register(r.Context(), investorID, req.CollisionHash); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"id": investorID.String()})
}

type setCountryRequest struct {
	Country string `json:"country"`
}

func (h *InvestorHandler) handleSetCountry(w http.ResponseWriter, r *http.Request) {
	investorID, err := id.ParseInvestorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[setCountryRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.SetCountry(r.Context(), investorID, req.Country); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"id": investorID.String(), "country": req.Country})
}

type setAttributeRequest struct {
	Type      string `json:"type"`
	Value     uint8  `json:"value"`
	Expiry    int64  `json:"expiry,omitempty"`
	ProofHash string `json:"proof_hash,omitempty"`
}

func (h *InvestorHandler) handleSetAttribute(w http.ResponseWriter, r *http.Request) {
	investorID, err := id.ParseInvestorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[setAttributeRequest](w, r, h.logger)
	if !ok {
		return
	}
	typ, ok := investor.ParseAttributeType(req.Type)
	if !ok {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown attribute type %q", req.Type))
		return
	}
	if req.Value > uint8(investor.AttributeRejected) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown attribute value %d", req.Value))
		return
	}
	var expiry time.Time
	if req.Expiry > 0 {
		expiry = time.Unix(req.Expiry, 0).UTC()
	}
	err = h.service.SetAttribute(r.Context(), investorID, typ, investor.AttributeValue(req.Value), expiry, req.ProofHash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"id": investorID.String(), "type": string(typ)})
}

type addWalletRequest struct {
	Wallet string `json:"wallet"`
}

func (h *InvestorHandler) handleAddWallet(w http.ResponseWriter, r *http.Request) {
	investorID, err := id.ParseInvestorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[addWalletRequest](w, r, h.logger)
	if !ok {
		return
	}
	wallet, err := id.ParseAddress(req.Wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.AddWallet(r.Context(), wallet, investorID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"id": investorID.String(), "wallet": wallet.String()})
}

type addWalletsRequest struct {
	Wallets     []string `json:"wallets"`
	InvestorIDs []string `json:"investor_ids"`
}

func (h *InvestorHandler) handleAddWallets(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[addWalletsRequest](w, r, h.logger)
	if !ok {
		return
	}
	wallets := make([]id.Address, 0, len(req.Wallets))
	for _, raw := range req.Wallets {
		wallet, err := id.ParseAddress(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		wallets = append(wallets, wallet)
	}
	investorIDs := make([]id.InvestorID, 0, len(req.InvestorIDs))
	for _, raw := range req.InvestorIDs {
		investorID, err := id.ParseInvestorID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		investorIDs = append(investorIDs, investorID)
	}
	if err := h.service.AddWallets(r.Context(), wallets, investorIDs); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"bound": len(wallets)})
}

type investorResponse struct {
	ID      string   `json:"id"`
	Country string   `json:"country,omitempty"`
	Wallets []string `json:"wallets"`
}

func (h *InvestorHandler) handleGetByWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := id.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	inv, err := h.service.GetInvestor(r.Context(), wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := investorResponse{ID: inv.ID.String(), Country: inv.Country, Wallets: make([]string, 0, len(inv.Wallets))}
	for _, w := range inv.Wallets {
		resp.Wallets = append(resp.Wallets, w.String())
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *InvestorHandler) handleGetCountry(w http.ResponseWriter, r *http.Request) {
	investorID, err := id.ParseInvestorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	country, err := h.service.GetCountry(r.Context(), investorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"id": investorID.String(), "country": country})
}

func (h *InvestorHandler) handleGetAttribute(w http.ResponseWriter, r *http.Request) {
	investorID, err := id.ParseInvestorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	typ, ok := investor.ParseAttributeType(chi.URLParam(r, "type"))
	if !ok {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown attribute type %q", chi.URLParam(r, "type")))
		return
	}
	value, err := h.service.GetAttributeValue(r.Context(), investorID, typ)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": investorID.String(), "type": string(typ), "value": uint8(value)})
}
