package httpserver

import (
	"net/http"
	"time"
)

// New builds the gateway's HTTP server. Requests carry small JSON
// bodies and operations settle quickly, so the timeouts stay tight.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
