package storage

import (
	"context"
	"fmt"
	"math"

	"github.com/alakara/harvest/internal/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxLimit is the largest page size accepted when no bound is configured.
const DefaultMaxLimit = 100

// PageRequest is the caller-supplied page window. Both values are 1-based.
type PageRequest struct {
	Page  int `json:"page" schema:"page"`
	Limit int `json:"limit" schema:"limit"`
}

// Skip returns the number of records before the requested page.
func (p PageRequest) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// PageResult is one page of records plus population metadata.
type PageResult[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// Query describes a paginated read.
type Query struct {
	// Filter is an equality predicate; nil matches everything.
	Filter interface{}
	Page   PageRequest
	// Projection excludes or selects fields, e.g. bson.M{"password_hash": 0}.
	Projection interface{}
	// Sort is optional; without it the store's natural order is used.
	Sort interface{}
	// Name labels the query in metrics.
	Name string
}

// Paginator validates page windows against a configured bound.
type Paginator struct {
	// MaxLimit rejects larger limits with ErrLimitExceeded. Zero disables the bound.
	MaxLimit int
}

// NewPaginator returns a Paginator with the given bound.
func NewPaginator(maxLimit int) Paginator {
	return Paginator{MaxLimit: maxLimit}
}

// Validate checks page and limit. The skip derived from them must fit in an
// int64.
func (p Paginator) Validate(req PageRequest) error {
	if req.Page < 1 || req.Limit < 1 {
		return ErrInvalidPage
	}
	if int64(req.Page-1) > math.MaxInt64/int64(req.Limit) {
		return fmt.Errorf("%w: page %d is out of range", ErrInvalidPage, req.Page)
	}
	if p.MaxLimit > 0 && req.Limit > p.MaxLimit {
		return fmt.Errorf("%w: %d > %d", ErrLimitExceeded, req.Limit, p.MaxLimit)
	}
	return nil
}

// TotalPages returns ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}

func queryName(q Query) string {
	if q.Name == "" {
		return "unnamed"
	}
	return q.Name
}

// Paginate runs the data and count sub-queries concurrently and joins them into
// one page. The two reads are not transactional: a record written between them
// can leave Data and Total mutually stale.
func Paginate[T any](ctx context.Context, coll Collection, p Paginator, q Query) (*PageResult[T], error) {
	if err := p.Validate(q.Page); err != nil {
		return nil, err
	}

	filter := q.Filter
	if filter == nil {
		filter = bson.M{}
	}

	findOpts := options.Find().
		SetSkip(q.Page.Skip()).
		SetLimit(int64(q.Page.Limit))
	if q.Projection != nil {
		findOpts.SetProjection(q.Projection)
	}
	if q.Sort != nil {
		findOpts.SetSort(q.Sort)
	}

	var (
		data  []T
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cursor, err := coll.Find(gctx, filter, findOpts)
		if err != nil {
			return err
		}
		defer cursor.Close(gctx)
		return cursor.All(gctx, &data)
	})
	g.Go(func() error {
		n, err := coll.CountDocuments(gctx, filter)
		if err != nil {
			return err
		}
		total = n
		return nil
	})
	err := g.Wait()
	metrics.PageQueries.WithLabelValues(queryName(q), metrics.Result(err)).Inc()
	if err != nil {
		return nil, WrapError(err)
	}

	if data == nil {
		data = []T{}
	}

	return &PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       q.Page.Page,
		Limit:      q.Page.Limit,
		TotalPages: TotalPages(total, q.Page.Limit),
	}, nil
}
