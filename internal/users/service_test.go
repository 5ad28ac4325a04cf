package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alakara/harvest/internal/core/storage"
	"github.com/alakara/harvest/internal/core/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

type stubIssuer struct{ err error }

func (s stubIssuer) Issue(userID, email string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token-" + userID, nil
}

func newTestService() (*Service, *memory.Collection) {
	coll := memory.NewCollection()
	coll.Unique("email")
	coll.Unique("phone_number")
	s := NewService(coll, storage.NewPaginator(100), stubIssuer{}, nil)
	s.hashCost = bcrypt.MinCost
	s.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	return s, coll
}

func registration(email, phone string) RegisterRequest {
	return RegisterRequest{
		Email:       email,
		PhoneNumber: phone,
		Password:    "password123",
		Profile: Profile{
			FirstName: "Jane",
			LastName:  "Mwangi",
			Location: Location{
				Coordinates: []float64{37.6, -1.8},
				County:      "Makueni",
				SubCounty:   "Kibwezi",
				Ward:        "Masongaleni",
			},
			Language: "sw",
		},
	}
}

func TestService_Register(t *testing.T) {
	s, coll := newTestService()

	res, err := s.Register(context.Background(), registration("Jane@Example.com", "0712345678"))
	require.NoError(t, err)
	assert.Equal(t, AccountID("jane@example.com"), res.User.ID)
	assert.Len(t, res.User.ID, 32)
	assert.Equal(t, "jane@example.com", res.User.Email)
	assert.Equal(t, "token-"+res.User.ID, res.Token)
	assert.Empty(t, res.User.PasswordHash)
	assert.Equal(t, StatusActive, res.User.Metadata.AccountStatus)
	assert.Equal(t, "Point", res.User.Profile.Location.Type)
	assert.True(t, res.User.Preferences.NotificationsEnabled)

	docs := coll.Docs()
	require.Len(t, docs, 1)
	hash, _ := docs[0]["password_hash"].(string)
	require.NotEmpty(t, hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("password123")))
}

func TestService_RegisterDuplicate(t *testing.T) {
	s, coll := newTestService()
	ctx := context.Background()

	_, err := s.Register(ctx, registration("jane@example.com", "0712345678"))
	require.NoError(t, err)

	_, err = s.Register(ctx, registration("other@example.com", "0712345678"))
	assert.ErrorIs(t, err, ErrUserExists)
	assert.ErrorIs(t, err, storage.ErrExists)

	_, err = s.Register(ctx, registration("JANE@example.com", "0799999999"))
	assert.ErrorIs(t, err, ErrUserExists)
	assert.Equal(t, 1, coll.Len())
}

func TestService_RegisterIssuerFailure(t *testing.T) {
	s, _ := newTestService()
	s.issuer = stubIssuer{err: errors.New("signing failed")}

	_, err := s.Register(context.Background(), registration("jane@example.com", "0712345678"))
	assert.ErrorContains(t, err, "signing failed")
}

func TestService_Login(t *testing.T) {
	s, coll := newTestService()
	ctx := context.Background()
	_, err := s.Register(ctx, registration("jane@example.com", "0712345678"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		key      string
		password string
		wantErr  error
	}{
		{"by email", "jane@example.com", "password123", nil},
		{"by email any case", "JANE@example.com", "password123", nil},
		{"by phone", "0712345678", "password123", nil},
		{"wrong password", "jane@example.com", "password124", ErrInvalidCredentials},
		{"unknown account", "nobody@example.com", "password123", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Login(ctx, LoginRequest{EmailOrPhone: tt.key, Password: tt.password})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, res.Token)
			assert.Empty(t, res.User.PasswordHash)
			require.NotNil(t, res.User.Metadata.LastLogin)
		})
	}

	_, ok := coll.Docs()[0]["metadata"].(bson.M)["last_login"]
	assert.True(t, ok, "last login persisted")
}

func TestService_Get(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	res, err := s.Register(ctx, registration("jane@example.com", "0712345678"))
	require.NoError(t, err)

	u, err := s.Get(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", u.Profile.FirstName)
	assert.Empty(t, u.PasswordHash)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_UpdateProfile(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	res, err := s.Register(ctx, registration("jane@example.com", "0712345678"))
	require.NoError(t, err)

	farm := "Kibwezi Orchards"
	ward := "Mtito Andei"
	u, err := s.UpdateProfile(ctx, res.User.ID, UpdateRequest{
		Profile: &ProfilePatch{
			FarmName: &farm,
			Location: &LocationPatch{Ward: &ward},
		},
		Crops: []Crop{{CropName: "mango", FarmSize: 2, AverageYield: 1500, HarvestFrequency: "seasonal"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Kibwezi Orchards", u.Profile.FarmName)
	assert.Equal(t, "Jane", u.Profile.FirstName, "unset fields kept")
	assert.Equal(t, "Mtito Andei", u.Profile.Location.Ward)
	assert.Equal(t, "Makueni", u.Profile.Location.County)
	require.Len(t, u.Crops, 1)
	assert.Equal(t, "mango", u.Crops[0].CropName)
	assert.Empty(t, u.PasswordHash)

	_, err = s.UpdateProfile(ctx, "missing", UpdateRequest{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_List(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.Register(ctx, registration(fmt.Sprintf("u%d@example.com", i), fmt.Sprintf("071234567%d", i)))
		require.NoError(t, err)
	}

	page, err := s.List(ctx, storage.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, DefaultListLimit, page.Limit)
	assert.Equal(t, 1, page.TotalPages)
	for _, u := range page.Data {
		assert.Empty(t, u.PasswordHash)
	}

	page, err = s.List(ctx, storage.PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, 2, page.TotalPages)
}

func TestService_VerifyEmail(t *testing.T) {
	s, coll := newTestService()
	ctx := context.Background()
	res, err := s.Register(ctx, registration("jane@example.com", "0712345678"))
	require.NoError(t, err)

	meta := coll.Docs()[0]["metadata"].(bson.M)
	token, _ := meta["email_verification_token"].(string)
	require.NotEmpty(t, token)

	u, err := s.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, u.ID)
	assert.True(t, u.Metadata.VerificationStatus.Email)

	_, err = s.VerifyEmail(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = s.VerifyEmail(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ResendVerification(t *testing.T) {
	s, coll := newTestService()
	ctx := context.Background()
	_, err := s.Register(ctx, registration("jane@example.com", "0712345678"))
	require.NoError(t, err)

	before := coll.Docs()[0]["metadata"].(bson.M)["email_verification_token"]
	require.NoError(t, s.ResendVerification(ctx, "Jane@example.com"))
	after := coll.Docs()[0]["metadata"].(bson.M)["email_verification_token"]
	assert.NotEqual(t, before, after)

	assert.ErrorIs(t, s.ResendVerification(ctx, "nobody@example.com"), storage.ErrNotFound)
}

func TestService_StoreFailure(t *testing.T) {
	s, coll := newTestService()
	coll.Fail(memory.OpFindOne, errors.New("connection reset"))

	_, err := s.Register(context.Background(), registration("jane@example.com", "0712345678"))
	assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
	_, err = s.Login(context.Background(), LoginRequest{EmailOrPhone: "jane@example.com", Password: "password123"})
	assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
}
