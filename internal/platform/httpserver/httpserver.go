// Package httpserver constructs the process HTTP listener.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server tuned for the audit API. Header reads are bounded so
// a stalled client cannot pin a connection; the write ceiling is generous
// because reconstructing a timeline over a long event history can take a
// moment.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
