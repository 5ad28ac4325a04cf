// Package httpclient is the outbound JSON client shared by the provider
// integrations. Each Client is throttled and reports to the integration
// metrics under its name.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alakara/harvest/internal/metrics"
	"golang.org/x/time/rate"
)

// maxBody caps how much of a provider response is read.
const maxBody = 4 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

type Client struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
}

// New returns a client labelled name. rps <= 0 disables throttling.
func New(name string, timeout time.Duration, rps float64) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		name:    name,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// SetHTTPClient replaces the underlying client, for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.http = hc
}

// GetJSON issues a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.name, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return c.do(req, out)
}

// PostJSON encodes body as JSON, POSTs it and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.name, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.IntegrationRequests.WithLabelValues(c.name, metrics.Result(err)).Inc()
		metrics.IntegrationLatency.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	}()

	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", c.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return fmt.Errorf("%s: %w", c.name, &StatusError{Status: resp.StatusCode, Body: snippet})
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	return nil
}
