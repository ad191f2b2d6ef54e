package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ledgergate/internal/ledger"
	id "ledgergate/pkg/domain"
	"ledgergate/pkg/platform/httputil"
)

// LedgerHandler wires token ledger endpoints.
type LedgerHandler struct {
	service *ledger.Service
	logger  *slog.Logger
}

func NewLedgerHandler(service *ledger.Service, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{service: service, logger: logger}
}

func (h *LedgerHandler) Register(r chi.Router) {
	r.Post("/ledger/cap", h.handleSetCap)
	r.Post("/ledger/issue", h.handleIssue)
	r.Post("/ledger/issue/custom", h.handleIssueCustom)
	r.Post("/ledger/transfer", h.handleTransfer)
	r.Post("/ledger/burn", h.handleBurn)
	r.Post("/ledger/seize", h.handleSeize)
	r.Get("/ledger/balance/{wallet}", h.handleBalance)
	r.Get("/ledger/supply", h.handleSupply)
}

type setCapRequest struct {
	Value uint64 `json:"value"`
}

func (h *LedgerHandler) handleSetCap(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[setCapRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.SetCap(r.Context(), req.Value); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"cap": req.Value})
}

type issueRequest struct {
	Wallet string `json:"wallet"`
	Value  uint64 `json:"value"`
}

func (h *LedgerHandler) handleIssue(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[issueRequest](w, r, h.logger)
	if !ok {
		return
	}
	wallet, err := id.ParseAddress(req.Wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.IssueTokens(r.Context(), wallet, req.Value); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "tokens issued", "wallet", wallet, "value", req.Value)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"wallet": wallet.String(), "value": req.Value})
}

type issueCustomRequest struct {
	Wallet       string `json:"wallet"`
	Value        uint64 `json:"value"`
	IssuanceTime int64  `json:"issuance_time,omitempty"`
	LockedValue  uint64 `json:"locked_value,omitempty"`
	ReasonCode   uint64 `json:"reason_code,omitempty"`
	Reason       string `json:"reason,omitempty"`
	ReleaseTime  int64  `json:"release_time,omitempty"`
}

func (h *LedgerHandler) handleIssueCustom(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[issueCustomRequest](w, r, h.logger)
	if !ok {
		return
	}
	wallet, err := id.ParseAddress(req.Wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var issuanceTime, releaseTime time.Time
	if req.IssuanceTime > 0 {
		issuanceTime = time.Unix(req.IssuanceTime, 0).UTC()
	}
	if req.ReleaseTime > 0 {
		releaseTime = time.Unix(req.ReleaseTime, 0).UTC()
	}
	err = h.service.IssueTokensCustom(r.Context(), wallet, req.Value, issuanceTime,
		req.LockedValue, req.ReasonCode, req.Reason, releaseTime)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"wallet": wallet.String(), "value": req.Value})
}

type transferRequest struct {
	To    string `json:"to"`
	Value uint64 `json:"value"`
}

func (h *LedgerHandler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[transferRequest](w, r, h.logger)
	if !ok {
		return
	}
	to, err := id.ParseAddress(req.To)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Transfer(r.Context(), to, req.Value); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"to": to.String(), "value": req.Value})
}

type burnRequest struct {
	Wallet string `json:"wallet"`
	Value  uint64 `json:"value"`
	Reason string `json:"reason,omitempty"`
}

func (h *LedgerHandler) handleBurn(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[burnRequest](w, r, h.logger)
	if !ok {
		return
	}
	wallet, err := id.ParseAddress(req.Wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Burn(r.Context(), wallet, req.Value, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"wallet": wallet.String(), "value": req.Value})
}

type seizeRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Value  uint64 `json:"value"`
	Reason string `json:"reason,omitempty"`
}

func (h *LedgerHandler) handleSeize(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[seizeRequest](w, r, h.logger)
	if !ok {
		return
	}
	from, err := id.ParseAddress(req.From)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := id.ParseAddress(req.To)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Seize(r.Context(), from, to, req.Value, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"from": from.String(), "to": to.String(), "value": req.Value})
}

func (h *LedgerHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	wallet, err := id.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	balance, err := h.service.BalanceOf(r.Context(), wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"wallet": wallet.String(), "balance": balance})
}

func (h *LedgerHandler) handleSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.service.TotalSupply(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	issued, err := h.service.TotalIssued(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cap, capSet, err := h.service.Cap(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := map[string]any{"total_supply": supply, "total_issued": issued}
	if capSet {
		resp["cap"] = cap
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
