package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alakara/harvest/internal/core/storage"
	"github.com/alakara/harvest/internal/core/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *memory.Collection) {
	coll := memory.NewCollection()
	coll.Unique(OwnerField)
	s := NewService(coll, nil)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	return s, coll
}

func strPtr(s string) *string { return &s }

func TestService_GetCreatesOnce(t *testing.T) {
	s, coll := newTestService()
	ctx := context.Background()

	p, err := s.Get(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "user_1", p.ClerkUserID)
	assert.Empty(t, p.FarmName)
	assert.Empty(t, p.MainCrops)
	assert.False(t, p.ID.IsZero())

	again, err := s.Get(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	assert.Equal(t, 1, coll.Len())
}

func TestService_Update(t *testing.T) {
	s, coll := newTestService()
	ctx := context.Background()

	p, err := s.Update(ctx, "user_1", UpdateRequest{
		FarmName:  strPtr("Green Acres"),
		MainCrops: []string{"mango", "tomato"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Green Acres", p.FarmName)
	assert.Equal(t, []string{"mango", "tomato"}, p.MainCrops)
	assert.Empty(t, p.Bio)

	p, err = s.Update(ctx, "user_1", UpdateRequest{Bio: strPtr("Third generation")})
	require.NoError(t, err)
	assert.Equal(t, "Green Acres", p.FarmName, "omitted fields are kept")
	assert.Equal(t, "Third generation", p.Bio)
	assert.Equal(t, 1, coll.Len())
}

func TestService_UpdateIsolatedPerOwner(t *testing.T) {
	s, coll := newTestService()
	ctx := context.Background()

	_, err := s.Update(ctx, "user_1", UpdateRequest{FarmName: strPtr("One")})
	require.NoError(t, err)
	_, err = s.Update(ctx, "user_2", UpdateRequest{FarmName: strPtr("Two")})
	require.NoError(t, err)

	p, err := s.Get(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "One", p.FarmName)
	assert.Equal(t, 2, coll.Len())
}

func TestService_MissingOwner(t *testing.T) {
	s, _ := newTestService()
	_, err := s.Get(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrMissingOwner)
	_, err = s.Update(context.Background(), "", UpdateRequest{})
	assert.ErrorIs(t, err, storage.ErrMissingOwner)
}

func TestService_StoreFailure(t *testing.T) {
	s, coll := newTestService()
	coll.Fail(memory.OpFindOneAndUpdate, errors.New("server selection timeout"))

	_, err := s.Get(context.Background(), "user_1")
	assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
}
