package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alakara/harvest/internal/core/storage"
	storagecfg "github.com/alakara/harvest/internal/core/storage/config"
	"github.com/alakara/harvest/internal/integrations/fao"
	"github.com/alakara/harvest/internal/integrations/weather"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// recentLimit is how many market rows, alerts and trends are shown.
const recentLimit = 3

// WeatherSource reports current conditions, or nil when unavailable.
type WeatherSource interface {
	Current(ctx context.Context) *weather.Conditions
}

// TrendSource reports FAO-derived trends. It never fails.
type TrendSource interface {
	Trends(ctx context.Context) []fao.Trend
}

type Service struct {
	colls   storage.Collections
	names   storagecfg.CollectionsConfig
	weather WeatherSource
	trends  TrendSource
	seed    bool
	now     func() time.Time
	logger  *slog.Logger
}

type Options struct {
	Weather WeatherSource
	Trends  TrendSource
	// SeedOnRead seeds empty collections before every Get.
	SeedOnRead bool
	Logger     *slog.Logger
}

func NewService(colls storage.Collections, names storagecfg.CollectionsConfig, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		colls:   colls,
		names:   names,
		weather: opts.Weather,
		trends:  opts.Trends,
		seed:    opts.SeedOnRead,
		now:     time.Now,
		logger:  logger.With("component", "dashboard"),
	}
}

// Get reads every dashboard section concurrently. Store failures fail the
// whole request; weather and FAO degrade to nil and canned trends.
func (s *Service) Get(ctx context.Context) (*Dashboard, error) {
	if s.seed {
		if _, err := s.Seed(ctx); err != nil {
			s.logger.Error("Dashboard seeding failed", "error", err)
		}
	}

	d := &Dashboard{}
	newest := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(recentLimit)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var stats PlatformStats
		err := s.colls.Collection(s.names.Stats).FindOne(gctx, bson.M{}).Decode(&stats)
		if err == nil {
			d.Stats = &stats
			return nil
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return findAll(gctx, s.colls.Collection(s.names.Market), newest, &d.MarketData)
	})
	g.Go(func() error {
		return findAll(gctx, s.colls.Collection(s.names.Crops), nil, &d.CropData)
	})
	g.Go(func() error {
		return findAll(gctx, s.colls.Collection(s.names.Alerts), newest, &d.Alerts)
	})
	g.Go(func() error {
		return findAll(gctx, s.colls.Collection(s.names.Trends), newest, &d.Trends)
	})
	if s.weather != nil {
		g.Go(func() error {
			d.Weather = s.weather.Current(gctx)
			return nil
		})
	}
	if s.trends != nil {
		g.Go(func() error {
			d.FAOTrends = s.trends.Trends(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storage.WrapError(err)
	}

	if d.MarketData == nil {
		d.MarketData = []MarketData{}
	}
	if d.CropData == nil {
		d.CropData = []CropData{}
	}
	if d.Alerts == nil {
		d.Alerts = []Alert{}
	}
	if d.Trends == nil {
		d.Trends = []Trend{}
	}
	if d.FAOTrends == nil {
		d.FAOTrends = []fao.Trend{}
	}
	return d, nil
}

func findAll[T any](ctx context.Context, coll storage.Collection, opts *options.FindOptions, out *[]T) error {
	var cursorOpts []*options.FindOptions
	if opts != nil {
		cursorOpts = append(cursorOpts, opts)
	}
	cursor, err := coll.Find(ctx, bson.M{}, cursorOpts...)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}
