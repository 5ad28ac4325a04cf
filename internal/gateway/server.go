package gateway

import (
	"net/http"

	gwconfig "github.com/alakara/harvest/internal/gateway/config"
	"github.com/alakara/harvest/internal/gateway/rest"
	"github.com/alakara/harvest/internal/metrics"
)

// Server is a route registrar for the API layer.
// It registers the REST API and the metrics endpoint to a given ServeMux.
type Server struct {
	rest    *rest.Handler
	metrics http.Handler
}

// ServerOption is a function that configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	defaultLimit int
	metrics      http.Handler
}

// WithDefaultPageLimit sets the page size used when a listing omits limit.
func WithDefaultPageLimit(limit int) ServerOption {
	return func(c *serverConfig) {
		c.defaultLimit = limit
	}
}

// WithMetricsHandler replaces the Prometheus handler served at /metrics.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(c *serverConfig) {
		c.metrics = h
	}
}

// NewServer creates a new API Server (route registrar).
func NewServer(deps rest.Deps, cfg gwconfig.GatewayConfig, opts ...ServerOption) (*Server, error) {
	sc := &serverConfig{metrics: metrics.Handler()}
	for _, opt := range opts {
		opt(sc)
	}

	restHandler, err := rest.NewHandler(deps, cfg, sc.defaultLimit)
	if err != nil {
		return nil, err
	}
	return &Server{
		rest:    restHandler,
		metrics: sc.metrics,
	}, nil
}

// RegisterRoutes registers all API routes to the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	s.rest.RegisterRoutes(mux)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
}
