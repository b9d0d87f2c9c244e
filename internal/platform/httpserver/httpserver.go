package httpserver

import (
	"net/http"
	"time"
)

// New builds the operational HTTP server. The listener serves only
// health probes and metrics scrapes, so timeouts are tight: nothing on
// this surface streams or uploads.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
