package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alakara/harvest/internal/metrics"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// New builds an Event with a fresh ID and the current time. data is
// marshalled to JSON; a nil data leaves the payload empty.
func New(typ Type, resource, documentID, ownerID string, data interface{}) (Event, error) {
	evt := Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Resource:   resource,
		DocumentID: documentID,
		OwnerID:    ownerID,
		Timestamp:  time.Now().UnixMilli(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, fmt.Errorf("events: marshal %s payload: %w", resource, err)
		}
		evt.Data = raw
	}
	return evt, nil
}

// Subject returns <prefix>.<resource>.<type>.
func Subject(prefix string, evt Event) string {
	return fmt.Sprintf("%s.%s.%s", prefix, evt.Resource, evt.Type)
}

// natsConnectFunc allows test injection.
var natsConnectFunc = nats.Connect

// jetStreamNew allows test injection.
var jetStreamNew = func(nc *nats.Conn) (jetstream.JetStream, error) {
	return jetstream.New(nc)
}

type jetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	cfg    Config
	logger *slog.Logger
}

// Connect dials NATS and ensures the stream exists. When events are disabled
// it returns a publisher that only logs.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		return NewLogPublisher(logger), nil
	}

	nc, err := natsConnectFunc(cfg.URL, nats.Name("harvest-api"))
	if err != nil {
		return nil, fmt.Errorf("events: connect to %s: %w", cfg.URL, err)
	}
	js, err := jetStreamNew(nc)
	if err != nil {
		nc.Close()
		return nil, err
	}
	if err := EnsureStream(ctx, js, cfg); err != nil {
		nc.Close()
		return nil, fmt.Errorf("events: ensure stream: %w", err)
	}

	p := NewJetStreamPublisher(js, cfg, logger).(*jetStreamPublisher)
	p.nc = nc
	return p, nil
}

// EnsureStream creates or updates the stream capturing <prefix>.>.
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg Config) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{cfg.SubjectPrefix + ".>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	return err
}

// NewJetStreamPublisher wraps an existing JetStream context.
func NewJetStreamPublisher(js jetstream.JetStream, cfg Config, logger *slog.Logger) Publisher {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &jetStreamPublisher{js: js, cfg: cfg, logger: logger.With("component", "events")}
}

func (p *jetStreamPublisher) Publish(ctx context.Context, evt Event) error {
	subject := Subject(p.cfg.SubjectPrefix, evt)
	data, err := json.Marshal(evt)
	if err != nil {
		metrics.PublishErrors.WithLabelValues(subject).Inc()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	_, err = p.js.Publish(ctx, subject, data,
		jetstream.WithExpectStream(p.cfg.Stream),
		jetstream.WithRetryAttempts(p.cfg.Retries),
		jetstream.WithMsgID(evt.ID),
	)
	if err != nil {
		metrics.PublishErrors.WithLabelValues(subject).Inc()
		return fmt.Errorf("events: publish %s: %w", subject, err)
	}

	metrics.EventsPublished.WithLabelValues(subject).Inc()
	p.logger.Debug("Event published", "subject", subject, "id", evt.ID)
	return nil
}

func (p *jetStreamPublisher) Close() error {
	if p.nc != nil {
		return p.nc.Drain()
	}
	return nil
}

type logPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a Publisher that writes events to the log.
func NewLogPublisher(logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &logPublisher{logger: logger.With("component", "events")}
}

func (p *logPublisher) Publish(_ context.Context, evt Event) error {
	p.logger.Info("Event", "type", evt.Type, "resource", evt.Resource, "id", evt.DocumentID, "owner", evt.OwnerID)
	return nil
}

func (p *logPublisher) Close() error { return nil }

// PublishBestEffort publishes evt and logs instead of returning failures.
func PublishBestEffort(ctx context.Context, p Publisher, logger *slog.Logger, evt Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, evt); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("Failed to publish event", "error", err, "type", evt.Type, "resource", evt.Resource, "id", evt.DocumentID)
	}
}
