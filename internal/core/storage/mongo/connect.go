package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/alakara/harvest/internal/core/storage"
	"github.com/alakara/harvest/internal/core/storage/config"
	"github.com/alakara/harvest/internal/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	ErrMissingURI        = errors.New("mongo: connection URI is not set")
	ErrConnectInProgress = errors.New("mongo: connection attempt already in progress")
	ErrRetriesExhausted  = errors.New("mongo: connection retries exhausted")
	ErrNotConnected      = errors.New("mongo: not connected")
)

// State is the lifecycle of the process-wide store connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Client is the subset of *mongo.Client used by the Manager.
type Client interface {
	Database(name string, opts ...*options.DatabaseOptions) *mongo.Database
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
}

var _ Client = (*mongo.Client)(nil)

// DialFunc opens and verifies one connection. Each call is one attempt.
type DialFunc func(ctx context.Context, uri string, timeout time.Duration) (Client, error)

// Manager owns the single store connection of the process. It is built once
// by the entry point and handed to every service that needs the store.
type Manager struct {
	cfg    config.Config
	logger *slog.Logger
	dial   DialFunc
	sleep  func(ctx context.Context, d time.Duration) error
	exit   func(code int)

	mu     sync.Mutex
	state  State
	client Client
	db     *mongo.Database
}

type Option func(*Manager)

func WithDialer(d DialFunc) Option {
	return func(m *Manager) { m.dial = d }
}

// WithSleep replaces the backoff wait.
func WithSleep(s func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Manager) { m.sleep = s }
}

// WithExit replaces os.Exit on the fatal paths of MustConnect.
func WithExit(exit func(code int)) Option {
	return func(m *Manager) { m.exit = exit }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(cfg config.Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: slog.Default(),
		dial:   Dial,
		sleep:  sleepContext,
		exit:   os.Exit,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "store")
	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect dials the store, retrying up to Retry.MaxRetries attempts. After
// failed attempt k (1-based) it waits InitialDelay * 2^k before the next one.
// Connect on a connected Manager is a no-op.
func (m *Manager) Connect(ctx context.Context) error {
	uri := m.cfg.Mongo.URI
	if uri == "" {
		return ErrMissingURI
	}

	m.mu.Lock()
	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		return nil
	case StateConnecting:
		m.mu.Unlock()
		return ErrConnectInProgress
	}
	m.state = StateConnecting
	m.mu.Unlock()

	maxRetries := m.cfg.Retry.MaxRetries
	attempt := 0
	for {
		client, err := m.dial(ctx, uri, m.cfg.Mongo.ConnectTimeout)
		attempt++
		if err == nil {
			m.mu.Lock()
			m.client = client
			m.db = client.Database(m.cfg.Mongo.DatabaseName)
			m.state = StateConnected
			m.mu.Unlock()

			metrics.StoreConnectAttempts.WithLabelValues("ok").Inc()
			metrics.StoreConnected.Set(1)
			m.logger.Info("Connected to store", "attempt", attempt, "database", m.cfg.Mongo.DatabaseName)
			return nil
		}

		metrics.StoreConnectAttempts.WithLabelValues("error").Inc()
		m.logger.Warn("Store connection attempt failed", "attempt", attempt, "max_retries", maxRetries, "error", err)

		if attempt >= maxRetries {
			m.setState(StateFailed)
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}

		delay := m.cfg.Retry.InitialDelay * time.Duration(1<<attempt)
		m.logger.Info("Retrying store connection", "next_attempt", attempt+1, "delay", delay)
		if err := m.sleep(ctx, delay); err != nil {
			m.setState(StateFailed)
			return err
		}
	}
}

// MustConnect is Connect for process start-up: a missing URI or exhausted
// retries log the cause and exit with status 1.
func (m *Manager) MustConnect(ctx context.Context) {
	err := m.Connect(ctx)
	switch {
	case err == nil:
		return
	case errors.Is(err, ErrMissingURI):
		m.logger.Error("MONGODB_URI is not set; cannot start")
	default:
		m.logger.Error("Could not connect to store; giving up", "error", err)
	}
	m.exit(1)
}

// Database returns the connected database, or nil before Connect succeeds.
func (m *Manager) Database() *mongo.Database {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db
}

// Collection implements storage.Collections. It must not be called before
// Connect succeeds.
func (m *Manager) Collection(name string) storage.Collection {
	db := m.Database()
	if db == nil {
		panic(ErrNotConnected)
	}
	return db.Collection(name)
}

// Ping checks the live connection.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client == nil {
		return ErrNotConnected
	}
	return client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client. Only called at process exit.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.db = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	metrics.StoreConnected.Set(0)
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
