package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledgergate/internal/trust"
	id "ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
	"ledgergate/pkg/platform/httputil"
)

// TrustHandler wires trust registry endpoints to the trust service.
type TrustHandler struct {
	service *trust.Service
	logger  *slog.Logger
}

func NewTrustHandler(service *trust.Service, logger *slog.Logger) *TrustHandler {
	return &TrustHandler{service: service, logger: logger}
}

func (h *TrustHandler) Register(r chi.Router) {
	r.Post("/trust/owner", h.handleSetOwner)
	r.Post("/trust/roles", h.handleSetRole)
	r.Post("/trust/roles/bulk", h.handleSetRoles)
	r.Delete("/trust/roles/{account}", h.handleRemoveRole)
	r.Get("/trust/roles/{account}", h.handleGetRole)
}

type setOwnerRequest struct {
	NewOwner string `json:"new_owner"`
}

func (h *TrustHandler) handleSetOwner(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[setOwnerRequest](w, r, h.logger)
	if !ok {
		return
	}
	newOwner, err := id.ParseAddress(req.NewOwner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.SetOwner(r.Context(), newOwner); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"owner": newOwner.String()})
}

type setRoleRequest struct {
	Account string `json:"account"`
	Role    string `json:"role"`
}

func (h *TrustHandler) handleSetRole(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[setRoleRequest](w, r, h.logger)
	if !ok {
		return
	}
	account, err := id.ParseAddress(req.Account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, ok := trust.ParseRole(req.Role)
	if !ok {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown role %q", req.Role))
		return
	}
	if err := h.service.SetRole(r.Context(), account, role); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"account": account.String(), "role": role.String()})
}

type setRolesRequest struct {
	Accounts []string `json:"accounts"`
	Roles    []string `json:"roles"`
}

func (h *TrustHandler) handleSetRoles(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[setRolesRequest](w, r, h.logger)
	if !ok {
		return
	}
	accounts := make([]id.Address, 0, len(req.Accounts))
	for _, raw := range req.Accounts {
		account, err := id.ParseAddress(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		accounts = append(accounts, account)
	}
	roles := make([]trust.Role, 0, len(req.Roles))
	for _, raw := range req.Roles {
		role, ok := trust.ParseRole(raw)
		if !ok {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "unknown role %q", raw))
			return
		}
		roles = append(roles, role)
	}
	if err := h.service.SetRoles(r.Context(), accounts, roles); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"applied": len(accounts)})
}

func (h *TrustHandler) handleRemoveRole(w http.ResponseWriter, r *http.Request) {
	account, err := id.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.RemoveRole(r.Context(), account); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"account": account.String(), "role": trust.RoleNone.String()})
}

func (h *TrustHandler) handleGetRole(w http.ResponseWriter, r *http.Request) {
	account, err := id.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"account": account.String(), "role": role.String()})
}
