package services

import (
	"context"
	"fmt"

	"github.com/alakara/harvest/internal/chat"
	"github.com/alakara/harvest/internal/core/storage"
	mongostore "github.com/alakara/harvest/internal/core/storage/mongo"
	"github.com/alakara/harvest/internal/dashboard"
	"github.com/alakara/harvest/internal/events"
	"github.com/alakara/harvest/internal/gateway"
	"github.com/alakara/harvest/internal/gateway/rest"
	"github.com/alakara/harvest/internal/identity"
	"github.com/alakara/harvest/internal/integrations/ai"
	"github.com/alakara/harvest/internal/integrations/fao"
	"github.com/alakara/harvest/internal/integrations/geocode"
	"github.com/alakara/harvest/internal/integrations/weather"
	"github.com/alakara/harvest/internal/profile"
	"github.com/alakara/harvest/internal/server"
	"github.com/alakara/harvest/internal/transport"
	"github.com/alakara/harvest/internal/users"
)

// Init connects the store and builds every service. A store that cannot be
// reached after the configured retries ends the process.
func (m *Manager) Init(ctx context.Context) error {
	if err := m.initStore(ctx); err != nil {
		return err
	}
	if err := m.initPublisher(ctx); err != nil {
		return err
	}
	deps, err := m.initServices(ctx)
	if err != nil {
		return err
	}
	return m.initServer(deps)
}

func (m *Manager) initStore(ctx context.Context) error {
	if m.opts.Collections != nil {
		m.colls = m.opts.Collections
		return nil
	}

	opts := append([]mongostore.Option{mongostore.WithLogger(m.logger)}, m.opts.StoreOptions...)
	m.store = mongostore.NewManager(m.cfg.Storage, opts...)
	m.store.MustConnect(ctx)
	if m.store.State() != mongostore.StateConnected {
		return mongostore.ErrNotConnected
	}
	if err := m.store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}
	m.colls = m.store
	return nil
}

func (m *Manager) initPublisher(ctx context.Context) error {
	if m.opts.Publisher != nil {
		m.publisher = m.opts.Publisher
		return nil
	}
	p, err := events.Connect(ctx, m.cfg.Events, m.logger)
	if err != nil {
		return fmt.Errorf("failed to connect event publisher: %w", err)
	}
	m.publisher = p
	return nil
}

func (m *Manager) initIdentity() (sessions, accounts identity.Authenticator, issuer *identity.Issuer, policy *identity.Policy, err error) {
	idCfg := m.cfg.Identity

	sessions = identity.Reject{}
	if idCfg.Clerk.PublicKeyPEM != "" {
		v, err := identity.NewVerifier(idCfg.Clerk)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		sessions = v
	} else {
		m.logger.Warn("Clerk public key not configured, session routes reject every request")
	}

	accounts = identity.Reject{}
	if idCfg.Legacy.Enabled {
		issuer, err = identity.NewIssuer(idCfg.Legacy)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		accounts = issuer
	}

	policy, err = identity.NewPolicy(idCfg.AdminRule)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("invalid admin rule: %w", err)
	}
	return sessions, accounts, issuer, policy, nil
}

func (m *Manager) initServices(ctx context.Context) (rest.Deps, error) {
	sessions, accounts, issuer, policy, err := m.initIdentity()
	if err != nil {
		return rest.Deps{}, err
	}

	names := m.cfg.Storage.Collections
	paginator := storage.NewPaginator(m.cfg.Storage.Pagination.MaxLimit)
	integ := m.cfg.Integrations

	responder, err := ai.New(ctx, integ, m.logger)
	if err != nil {
		return rest.Deps{}, err
	}

	m.dashboard = dashboard.NewService(m.colls, names, dashboard.Options{
		Weather:    weather.New(integ, m.logger),
		Trends:     fao.New(integ, m.logger),
		SeedOnRead: m.cfg.Gateway.SeedDashboard,
		Logger:     m.logger,
	})

	deps := rest.Deps{
		Profiles: profile.NewService(m.colls.Collection(names.Profiles), m.logger),
		Transport: transport.NewService(m.colls.Collection(names.Transport), transport.Options{
			Paginator:       paginator,
			RevealForbidden: m.cfg.Storage.Ownership.RevealForbidden,
			Publisher:       m.publisher,
			Logger:          m.logger,
		}),
		Dashboard: m.dashboard,
		Chat:      chat.NewService(m.colls.Collection(names.Chats), responder, m.logger),
		Geocoder:  geocode.New(integ, m.logger),
		Sessions:  sessions,
		Accounts:  accounts,
		Admin:     policy,
	}
	// The account API needs a signing secret.
	if issuer != nil {
		deps.Users = users.NewService(m.colls.Collection(names.Users), paginator, issuer, m.logger)
	}
	return deps, nil
}

func (m *Manager) initServer(deps rest.Deps) error {
	m.server = server.New(m.cfg.Server, m.logger)
	deps.AuthRateLimit = m.server.AuthRateLimit

	gw, err := gateway.NewServer(deps, m.cfg.Gateway, gateway.WithDefaultPageLimit(m.cfg.Storage.Pagination.DefaultLimit))
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	gw.RegisterRoutes(m.server.HTTPMux())
	return nil
}
