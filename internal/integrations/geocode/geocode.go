// Package geocode proxies address lookups to the Google Geocoding API so the
// browser never sees the API key.
package geocode

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/alakara/harvest/internal/integrations"
	"github.com/alakara/harvest/internal/integrations/httpclient"
)

var (
	ErrMissingAddress = errors.New("address query parameter is required")
	ErrNotConfigured  = errors.New("geocoding is not configured")
)

type Client struct {
	cfg    integrations.GeocodeConfig
	http   *httpclient.Client
	logger *slog.Logger
}

func New(cfg integrations.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg.Geocode,
		http:   httpclient.New("geocode", cfg.Timeout, cfg.RequestsPerSecond),
		logger: logger.With("component", "geocode"),
	}
}

// Lookup returns the provider's JSON response for address unchanged.
func (c *Client) Lookup(ctx context.Context, address string) (map[string]interface{}, error) {
	if address == "" {
		return nil, ErrMissingAddress
	}
	if c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.cfg.APIKey)

	var out map[string]interface{}
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"?"+q.Encode(), nil, &out); err != nil {
		c.logger.Warn("Geocode lookup failed", "error", err)
		return nil, err
	}
	return out, nil
}
