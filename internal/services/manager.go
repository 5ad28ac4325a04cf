// Package services assembles the process: the store connection, the event
// publisher, the identity layer, the resource services and the HTTP server.
package services

import (
	"log/slog"
	"sync"

	"github.com/alakara/harvest/internal/config"
	"github.com/alakara/harvest/internal/core/storage"
	mongostore "github.com/alakara/harvest/internal/core/storage/mongo"
	"github.com/alakara/harvest/internal/dashboard"
	"github.com/alakara/harvest/internal/events"
	"github.com/alakara/harvest/internal/server"
)

type Options struct {
	// Collections replaces the Mongo store. No connection is made when set.
	Collections storage.Collections
	// StoreOptions are passed to the store connection manager.
	StoreOptions []mongostore.Option
	// Publisher replaces the publisher built from the events config.
	Publisher events.Publisher
	Logger    *slog.Logger
}

type Manager struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	store     *mongostore.Manager
	colls     storage.Collections
	publisher events.Publisher
	server    server.Service
	dashboard *dashboard.Service

	wg      sync.WaitGroup
	errOnce sync.Once
	errCh   chan error
}

func NewManager(cfg *config.Config, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:    cfg,
		opts:   opts,
		logger: logger.With("component", "services"),
		errCh:  make(chan error, 1),
	}
}

// Server returns the HTTP server, or nil before Init.
func (m *Manager) Server() server.Service {
	return m.server
}

// Dashboard returns the dashboard service, or nil before Init.
func (m *Manager) Dashboard() *dashboard.Service {
	return m.dashboard
}

// Errors delivers the first fatal error of a running server.
func (m *Manager) Errors() <-chan error {
	return m.errCh
}
