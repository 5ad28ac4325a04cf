package storage_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/alakara/harvest/internal/core/storage"
	"github.com/alakara/harvest/internal/core/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type account struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash,omitempty"`
	Role         string             `bson:"role"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func seedAccounts(t *testing.T, coll *memory.Collection, n int) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		role := "farmer"
		if i%5 == 0 {
			role = "transporter"
		}
		docs = append(docs, account{
			Email:        fmt.Sprintf("user%02d@example.com", i),
			PasswordHash: "secret",
			Role:         role,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
	}
	_, err := coll.InsertMany(context.Background(), docs)
	require.NoError(t, err)
}

func TestPaginate_LastPartialPage(t *testing.T) {
	coll := memory.NewCollection()
	seedAccounts(t, coll, 95)

	res, err := storage.Paginate[account](context.Background(), coll, storage.NewPaginator(100), storage.Query{
		Page: storage.PageRequest{Page: 10, Limit: 10},
	})
	require.NoError(t, err)
	assert.Len(t, res.Data, 5)
	assert.Equal(t, int64(95), res.Total)
	assert.Equal(t, 10, res.Page)
	assert.Equal(t, 10, res.Limit)
	assert.Equal(t, 10, res.TotalPages)
}

func TestPaginate_PageBeyondEnd(t *testing.T) {
	coll := memory.NewCollection()
	seedAccounts(t, coll, 95)

	res, err := storage.Paginate[account](context.Background(), coll, storage.NewPaginator(100), storage.Query{
		Page: storage.PageRequest{Page: 11, Limit: 10},
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
	assert.Equal(t, int64(95), res.Total)
	assert.Equal(t, 10, res.TotalPages)
}

func TestPaginate_EmptyCollection(t *testing.T) {
	coll := memory.NewCollection()

	res, err := storage.Paginate[account](context.Background(), coll, storage.NewPaginator(100), storage.Query{
		Page: storage.PageRequest{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, []account{}, res.Data)
	assert.Equal(t, int64(0), res.Total)
	assert.Equal(t, 0, res.TotalPages)
}

func TestPaginate_SkipAndLimitPassedToStore(t *testing.T) {
	coll := memory.NewCollection()
	seedAccounts(t, coll, 30)

	_, err := storage.Paginate[account](context.Background(), coll, storage.NewPaginator(100), storage.Query{
		Page: storage.PageRequest{Page: 3, Limit: 10},
	})
	require.NoError(t, err)
	require.NotNil(t, coll.LastFindOptions)
	assert.Equal(t, int64(20), *coll.LastFindOptions.Skip)
	assert.Equal(t, int64(10), *coll.LastFindOptions.Limit)
	assert.Equal(t, 1, coll.Calls(memory.OpFind))
	assert.Equal(t, 1, coll.Calls(memory.OpCount))
}

func TestPaginate_FilterAppliesToDataAndTotal(t *testing.T) {
	coll := memory.NewCollection()
	seedAccounts(t, coll, 50)

	res, err := storage.Paginate[account](context.Background(), coll, storage.NewPaginator(100), storage.Query{
		Filter: bson.M{"role": "transporter"},
		Page:   storage.PageRequest{Page: 1, Limit: 4},
	})
	require.NoError(t, err)
	assert.Len(t, res.Data, 4)
	assert.Equal(t, int64(10), res.Total)
	assert.Equal(t, 3, res.TotalPages)
	for _, a := range res.Data {
		assert.Equal(t, "transporter", a.Role)
	}
}

func TestPaginate_ProjectionExcludesField(t *testing.T) {
	coll := memory.NewCollection()
	seedAccounts(t, coll, 25)

	seen := 0
	for page := 1; page <= 3; page++ {
		res, err := storage.Paginate[account](context.Background(), coll, storage.NewPaginator(100), storage.Query{
			Page:       storage.PageRequest{Page: page, Limit: 10},
			Projection: bson.M{"password_hash": 0},
		})
		require.NoError(t, err)
		require.Equal(t, 3, res.TotalPages)
		for _, a := range res.Data {
			assert.Empty(t, a.PasswordHash, "page %d", page)
			assert.NotEmpty(t, a.Email)
		}
		seen += len(res.Data)
	}
	assert.Equal(t, 25, seen)
}

func TestPaginate_SortNewestFirst(t *testing.T) {
	coll := memory.NewCollection()
	seedAccounts(t, coll, 12)

	res, err := storage.Paginate[account](context.Background(), coll, storage.NewPaginator(100), storage.Query{
		Page: storage.PageRequest{Page: 1, Limit: 3},
		Sort: bson.D{{Key: "created_at", Value: -1}},
	})
	require.NoError(t, err)
	require.Len(t, res.Data, 3)
	assert.Equal(t, "user11@example.com", res.Data[0].Email)
	assert.Equal(t, "user10@example.com", res.Data[1].Email)
	assert.Equal(t, "user09@example.com", res.Data[2].Email)
}

func TestPaginate_WriteBetweenSubQueries(t *testing.T) {
	coll := memory.NewCollection()
	seedAccounts(t, coll, 95)

	inserted := false
	coll.OnCount = func() {
		if inserted {
			return
		}
		inserted = true
		_, err := coll.InsertOne(context.Background(), account{Email: "late@example.com"})
		assert.NoError(t, err)
	}

	res, err := storage.Paginate[account](context.Background(), coll, storage.NewPaginator(100), storage.Query{
		Page: storage.PageRequest{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Len(t, res.Data, 10)
	assert.Equal(t, int64(96), res.Total)
	assert.Equal(t, 10, res.TotalPages)
}

func TestPaginate_Validation(t *testing.T) {
	coll := memory.NewCollection()

	tests := []struct {
		name    string
		max     int
		req     storage.PageRequest
		wantErr error
	}{
		{"zero page", 100, storage.PageRequest{Page: 0, Limit: 10}, storage.ErrInvalidPage},
		{"negative page", 100, storage.PageRequest{Page: -1, Limit: 10}, storage.ErrInvalidPage},
		{"zero limit", 100, storage.PageRequest{Page: 1, Limit: 0}, storage.ErrInvalidPage},
		{"limit over bound", 100, storage.PageRequest{Page: 1, Limit: 101}, storage.ErrLimitExceeded},
		{"limit at bound", 100, storage.PageRequest{Page: 1, Limit: 100}, nil},
		{"unbounded", 0, storage.PageRequest{Page: 1, Limit: 100000}, nil},
		{"page overflows skip", 100, storage.PageRequest{Page: math.MaxInt64, Limit: 10}, storage.ErrInvalidPage},
		{"page overflows unbounded skip", 0, storage.PageRequest{Page: math.MaxInt64 / 2, Limit: 100000}, storage.ErrInvalidPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := storage.Paginate[account](context.Background(), coll, storage.NewPaginator(tt.max), storage.Query{Page: tt.req})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	// Only the two accepted windows reach the store.
	assert.Equal(t, 2, coll.Calls(memory.OpFind))
}

func TestPaginate_StoreFailure(t *testing.T) {
	coll := memory.NewCollection()
	seedAccounts(t, coll, 5)
	coll.Fail(memory.OpCount, errors.New("connection reset"))

	res, err := storage.Paginate[account](context.Background(), coll, storage.NewPaginator(100), storage.Query{
		Page: storage.PageRequest{Page: 1, Limit: 10},
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
}

func TestPaginate_Canceled(t *testing.T) {
	coll := memory.NewCollection()
	seedAccounts(t, coll, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := storage.Paginate[account](ctx, coll, storage.NewPaginator(100), storage.Query{
		Page: storage.PageRequest{Page: 1, Limit: 10},
	})
	assert.ErrorIs(t, err, storage.ErrCanceled)
	assert.True(t, storage.IsCanceled(err))
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 10, 10},
		{100, 1, 100},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, storage.TotalPages(tt.total, tt.limit), "total=%d limit=%d", tt.total, tt.limit)
	}
}

func TestPageRequest_Skip(t *testing.T) {
	assert.Equal(t, int64(0), storage.PageRequest{Page: 1, Limit: 10}.Skip())
	assert.Equal(t, int64(20), storage.PageRequest{Page: 3, Limit: 10}.Skip())
	assert.Equal(t, int64(99), storage.PageRequest{Page: 100, Limit: 1}.Skip())

	// The largest page Validate accepts still yields a non-negative skip.
	last := storage.PageRequest{Page: math.MaxInt64/10 + 1, Limit: 10}
	require.NoError(t, storage.NewPaginator(0).Validate(last))
	assert.Equal(t, int64(math.MaxInt64/10*10), last.Skip())

	over := storage.PageRequest{Page: last.Page + 1, Limit: 10}
	assert.ErrorIs(t, storage.NewPaginator(0).Validate(over), storage.ErrInvalidPage)
}
