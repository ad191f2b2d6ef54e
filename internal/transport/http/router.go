package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registrar mounts a component's routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports the readiness of one backing dependency.
type HealthCheck func(ctx context.Context) error

// NewRouter assembles the gateway's HTTP surface. Operation routes sit
// behind the request-scoped middleware; health and metrics do not.
func NewRouter(signingKey []byte, checks []HealthCheck, handlers ...Registrar) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestID)
	r.Use(RequestTime)
	r.Use(Auth(signingKey))

	for _, h := range handlers {
		h.Register(r)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		for _, check := range checks {
			if err := check(req.Context()); err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}
