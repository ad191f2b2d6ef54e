package http

import (
	"encoding/base64"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledgergate/internal/relay"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/httputil"
)

// RelayHandler wires meta-transaction endpoints.
type RelayHandler struct {
	service *relay.Service
	logger  *slog.Logger
}

func NewRelayHandler(service *relay.Service, logger *slog.Logger) *RelayHandler {
	return &RelayHandler{service: service, logger: logger}
}

func (h *RelayHandler) Register(r chi.Router) {
	r.Post("/relay/keys", h.handleRegisterKey)
	r.Get("/relay/nonce/{id}", h.handleNonce)
	r.Post("/relay/execute", h.handleExecute)
}

type registerKeyRequest struct {
	InvestorID string `json:"investor_id"`
	PublicKey  string `json:"public_key"`
}

func (h *RelayHandler) handleRegisterKey(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[registerKeyRequest](w, r, h.logger)
	if !ok {
		return
	}
	investorID, err := id.ParseInvestorID(req.InvestorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	key, err := hex.DecodeString(req.PublicKey)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "public key must be hex encoded"))
		return
	}
	if err := h.service.RegisterKey(r.Context(), investorID, key); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"investor_id": investorID.String()})
}

func (h *RelayHandler) handleNonce(w http.ResponseWriter, r *http.Request) {
	investorID, err := id.ParseInvestorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	nonce, err := h.service.Nonce(r.Context(), investorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"investor_id": investorID.String(), "nonce": nonce})
}

type executeRequest struct {
	Destination    string `json:"destination"`
	Data           string `json:"data"`
	Nonce          uint64 `json:"nonce"`
	SenderInvestor string `json:"sender_investor"`
	BlockLimit     uint64 `json:"block_limit"`
	Signature      string `json:"signature"`
}

func (h *RelayHandler) handleExecute(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[executeRequest](w, r, h.logger)
	if !ok {
		return
	}
	destination, err := id.ParseAddress(req.Destination)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	investorID, err := id.ParseInvestorID(req.SenderInvestor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "data must be base64 encoded"))
		return
	}
	signature, err := hex.DecodeString(req.Signature)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "signature must be hex encoded"))
		return
	}

	err = h.service.Execute(r.Context(), relay.Request{
		Destination:    destination,
		Data:           data,
		Nonce:          req.Nonce,
		SenderInvestor: investorID,
		BlockLimit:     req.BlockLimit,
		Signature:      signature,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "relayed operation executed",
		"investor_id", investorID, "nonce", req.Nonce)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"investor_id": investorID.String(), "nonce": req.Nonce})
}
