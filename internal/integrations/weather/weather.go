// Package weather fetches current conditions from OpenWeatherMap.
package weather

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"

	"github.com/alakara/harvest/internal/integrations"
	"github.com/alakara/harvest/internal/integrations/httpclient"
)

// Conditions is the dashboard weather card.
type Conditions struct {
	Temp        int    `json:"temp"`
	Humidity    int    `json:"humidity"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Icon        string `json:"icon"`
}

type openWeatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Name string `json:"name"`
}

type Client struct {
	cfg    integrations.WeatherConfig
	http   *httpclient.Client
	logger *slog.Logger
}

func New(cfg integrations.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg.Weather,
		http:   httpclient.New("weather", cfg.Timeout, cfg.RequestsPerSecond),
		logger: logger.With("component", "weather"),
	}
}

// HTTP exposes the underlying client, for tests.
func (c *Client) HTTP() *httpclient.Client { return c.http }

// Current returns the conditions at the configured coordinates. It returns
// nil without an API key or when the provider fails.
func (c *Client) Current(ctx context.Context) *Conditions {
	if c.cfg.APIKey == "" {
		return nil
	}
	w, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("Weather lookup failed", "error", err)
		return nil
	}
	return w
}

func (c *Client) fetch(ctx context.Context) (*Conditions, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.cfg.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.cfg.Lon, 'f', -1, 64))
	q.Set("appid", c.cfg.APIKey)
	q.Set("units", "metric")

	var resp openWeatherResponse
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Weather) == 0 {
		return nil, fmt.Errorf("weather: response has no conditions")
	}

	return &Conditions{
		Temp:        int(math.Round(resp.Main.Temp)),
		Humidity:    resp.Main.Humidity,
		Description: resp.Weather[0].Description,
		Location:    resp.Name,
		Icon:        resp.Weather[0].Icon,
	}, nil
}
