package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledgergate/internal/storage"
	"ledgergate/internal/trust"
	"ledgergate/pkg/platform/httputil"
)

// AdminHandler exposes the flat state export consumed by upgrade and
// migration tooling.
type AdminHandler struct {
	exporter *storage.Exporter
	authz    interface {
		Require(ctx context.Context, allowed ...trust.Role) error
	}
	logger *slog.Logger
}

func NewAdminHandler(exporter *storage.Exporter, authz *trust.Service, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{exporter: exporter, authz: authz, logger: logger}
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Get("/admin/export", h.handleExport)
}

func (h *AdminHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	if err := h.authz.Require(r.Context(), trust.RoleMaster, trust.RoleIssuer); err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.exporter.Export(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "state exported", "entries", len(entries))
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
