package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ledgergate/internal/locks"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/httputil"
	"ledgergate/pkg/requestcontext"
)

// LocksHandler wires lock manager endpoints.
type LocksHandler struct {
	service *locks.Service
	logger  *slog.Logger
}

func NewLocksHandler(service *locks.Service, logger *slog.Logger) *LocksHandler {
	return &LocksHandler{service: service, logger: logger}
}

func (h *LocksHandler) Register(r chi.Router) {
	r.Post("/locks/{wallet}", h.handleAdd)
	r.Delete("/locks/{wallet}/{index}", h.handleRemove)
	r.Get("/locks/{wallet}/count", h.handleCount)
	r.Get("/locks/{wallet}/{index}", h.handleInfo)
	r.Get("/locks/{wallet}/transferable", h.handleTransferable)
	r.Post("/locks/investors/{id}/lock", h.handleLockInvestor)
	r.Post("/locks/investors/{id}/unlock", h.handleUnlockInvestor)
	r.Get("/locks/investors/{id}", h.handleInvestorLocked)
}

type addLockRequest struct {
	Value       uint64 `json:"value"`
	ReasonCode  uint64 `json:"reason_code,omitempty"`
	Reason      string `json:"reason,omitempty"`
	ReleaseTime int64  `json:"release_time"`
}

func (h *LocksHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	wallet, err := id.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[addLockRequest](w, r, h.logger)
	if !ok {
		return
	}
	release := time.Unix(req.ReleaseTime, 0).UTC()
	err = h.service.AddManualLockRecord(r.Context(), wallet, req.Value, req.ReasonCode, req.Reason, release)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"wallet": wallet.String()})
}

func (h *LocksHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	wallet, err := id.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "lock record index must be an integer"))
		return
	}
	if err := h.service.RemoveLockRecord(r.Context(), wallet, index); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"wallet": wallet.String(), "removed": index})
}

func (h *LocksHandler) handleCount(w http.ResponseWriter, r *http.Request) {
	wallet, err := id.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	count, err := h.service.LockCount(r.Context(), wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"wallet": wallet.String(), "count": count})
}

func (h *LocksHandler) handleInfo(w http.ResponseWriter, r *http.Request) {
	wallet, err := id.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "lock record index must be an integer"))
		return
	}
	rec, err := h.service.LockInfo(r.Context(), wallet, index)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *LocksHandler) handleTransferable(w http.ResponseWriter, r *http.Request) {
	wallet, err := id.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	at := requestcontext.Now(r.Context())
	if raw := r.URL.Query().Get("at"); raw != "" {
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "at must be a unix timestamp"))
			return
		}
		at = time.Unix(unix, 0).UTC()
	}
	transferable, err := h.service.GetTransferableTokens(r.Context(), wallet, at)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"wallet": wallet.String(), "transferable": transferable})
}

func (h *LocksHandler) handleLockInvestor(w http.ResponseWriter, r *http.Request) {
	investorID, err := id.ParseInvestorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.LockInvestor(r.Context(), investorID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": investorID.String(), "locked": true})
}

func (h *LocksHandler) handleUnlockInvestor(w http.ResponseWriter, r *http.Request) {
	investorID, err := id.ParseInvestorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.UnlockInvestor(r.Context(), investorID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": investorID.String(), "locked": false})
}

func (h *LocksHandler) handleInvestorLocked(w http.ResponseWriter, r *http.Request) {
	investorID, err := id.ParseInvestorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	locked, err := h.service.IsInvestorLocked(r.Context(), investorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": investorID.String(), "locked": locked})
}
