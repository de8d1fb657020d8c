package httpserver

import (
	"net/http"
	"time"
)

// New returns an http.Server with sane production timeouts. Handlers stream
// nothing large, so the write timeout stays tight.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
