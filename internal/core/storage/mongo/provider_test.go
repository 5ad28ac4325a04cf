package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alakara/harvest/internal/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func integrationManager(t *testing.T) *Manager {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping MongoDB integration test")
	}

	cfg := testConfig(uri)
	cfg.Mongo.DatabaseName = "harvest_test_" + primitive.NewObjectID().Hex()
	cfg.Mongo.ConnectTimeout = 2 * time.Second
	cfg.Retry.MaxRetries = 1

	m := NewManager(cfg)
	if err := m.Connect(context.Background()); err != nil {
		t.Skipf("MongoDB unavailable: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		_ = m.Database().Drop(ctx)
		_ = m.Close(ctx)
	})
	return m
}

type transportDoc struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	UserID string             `bson:"user_id"`
	Name   string             `bson:"name"`
}

func TestIntegration_PaginateAndDeleteOwned(t *testing.T) {
	m := integrationManager(t)
	ctx := context.Background()
	require.NoError(t, m.EnsureIndexes(ctx))

	coll := m.Collection("transports")
	docs := make([]interface{}, 0, 25)
	for i := 0; i < 25; i++ {
		docs = append(docs, transportDoc{UserID: "alice", Name: "lorry"})
	}
	res, err := coll.InsertMany(ctx, docs)
	require.NoError(t, err)

	page, err := storage.Paginate[transportDoc](ctx, coll, storage.NewPaginator(100), storage.Query{
		Filter: bson.M{"user_id": "alice"},
		Page:   storage.PageRequest{Page: 3, Limit: 10},
	})
	require.NoError(t, err)
	assert.Len(t, page.Data, 5)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.TotalPages)

	id := res.InsertedIDs[0]
	owned := storage.Owned{OwnerField: "user_id"}
	_, err = storage.DeleteOwned[transportDoc](ctx, coll, owned, id, "bob")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := storage.DeleteOwned[transportDoc](ctx, coll, owned, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
}

func TestIntegration_UpsertOwnedUniqueOwner(t *testing.T) {
	m := integrationManager(t)
	ctx := context.Background()
	require.NoError(t, m.EnsureIndexes(ctx))

	coll := m.Collection("profiles")
	owned := storage.Owned{OwnerField: "clerk_user_id"}
	type profile struct {
		ClerkUserID string `bson:"clerk_user_id"`
		FarmName    string `bson:"farm_name"`
	}

	a, err := storage.UpsertOwned[profile](ctx, coll, owned, "user_1", bson.M{"farm_name": "A"}, bson.M{"bio": ""}, true)
	require.NoError(t, err)
	b, err := storage.UpsertOwned[profile](ctx, coll, owned, "user_1", bson.M{"farm_name": "A"}, bson.M{"bio": ""}, true)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	n, err := coll.CountDocuments(ctx, bson.M{"clerk_user_id": "user_1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
