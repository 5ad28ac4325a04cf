package server

import (
	"context"
	"net/http"
)

// Service is the HTTP front of the process.
type Service interface {
	// Start listens and blocks until a fatal error or ctx is canceled.
	Start(ctx context.Context) error

	// Stop drains active connections until ctx expires.
	Stop(ctx context.Context) error

	// Handle registers a handler. Must be called before Start.
	Handle(pattern string, handler http.Handler)

	// HTTPMux returns the underlying mux. Must be called before Start.
	HTTPMux() *http.ServeMux

	// AuthRateLimit wraps credential endpoints with the stricter limiter. It
	// returns next unchanged when rate limiting is disabled.
	AuthRateLimit(next http.Handler) http.Handler

	// Addr is the bound listen address once Start has begun listening.
	Addr() string
}
