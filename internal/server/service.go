package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/alakara/harvest/internal/server/ratelimit"
)

type serverImpl struct {
	cfg    Config
	logger *slog.Logger

	mux        *http.ServeMux
	httpServer *http.Server
	listener   net.Listener

	limiter     *ratelimit.Limiter
	authLimiter *ratelimit.Limiter

	mu      sync.Mutex
	started bool
}

// New creates a Service. Rate limiters are created only when enabled.
func New(cfg Config, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}

	s := &serverImpl{
		cfg:    cfg,
		logger: logger.With("component", "server"),
		mux:    http.NewServeMux(),
	}

	if cfg.RateLimit.Enabled {
		s.limiter = ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		authWindow := cfg.RateLimit.AuthWindow
		if authWindow == 0 {
			authWindow = cfg.RateLimit.Window
		}
		s.authLimiter = ratelimit.New(cfg.RateLimit.AuthRequests, authWindow)
	}
	return s
}

func (s *serverImpl) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	s.started = true

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("http listen: %w", err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.wrapMiddleware(s.mux),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return nil
	}
}

func (s *serverImpl) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.httpServer != nil {
		s.logger.Info("Stopping HTTP server")
		if serr := s.httpServer.Shutdown(ctx); serr != nil {
			err = fmt.Errorf("http shutdown error: %w", serr)
		}
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.authLimiter != nil {
		s.authLimiter.Stop()
	}
	return err
}

func (s *serverImpl) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

func (s *serverImpl) HTTPMux() *http.ServeMux {
	return s.mux
}

func (s *serverImpl) AuthRateLimit(next http.Handler) http.Handler {
	if s.authLimiter == nil {
		return next
	}
	return s.limit(s.authLimiter, s.cfg.RateLimit.AuthWindow)(next)
}

func (s *serverImpl) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
