// Package profile manages the single farm profile owned by each platform user.
package profile

import (
	"context"
	"log/slog"
	"time"

	"github.com/alakara/harvest/internal/core/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OwnerField keys a profile to its Clerk user.
const OwnerField = "clerk_user_id"

type Profile struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ClerkUserID string             `bson:"clerk_user_id" json:"clerkUserId"`
	FarmName    string             `bson:"farm_name" json:"farmName"`
	Location    string             `bson:"location" json:"location"`
	Bio         string             `bson:"bio" json:"bio"`
	MainCrops   []string           `bson:"main_crops" json:"mainCrops"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// UpdateRequest holds the editable fields. Omitted fields are left unchanged.
type UpdateRequest struct {
	FarmName  *string  `json:"farmName" validate:"omitempty,max=120"`
	Location  *string  `json:"location" validate:"omitempty,max=200"`
	Bio       *string  `json:"bio" validate:"omitempty,max=2000"`
	MainCrops []string `json:"mainCrops" validate:"omitempty,max=50,dive,max=60"`
}

func (r UpdateRequest) patch() bson.M {
	p := bson.M{}
	if r.FarmName != nil {
		p["farm_name"] = *r.FarmName
	}
	if r.Location != nil {
		p["location"] = *r.Location
	}
	if r.Bio != nil {
		p["bio"] = *r.Bio
	}
	if r.MainCrops != nil {
		p["main_crops"] = r.MainCrops
	}
	return p
}

type Service struct {
	coll   storage.Collection
	owned  storage.Owned
	now    func() time.Time
	logger *slog.Logger
}

func NewService(coll storage.Collection, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		coll:   coll,
		owned:  storage.Owned{OwnerField: OwnerField},
		now:    time.Now,
		logger: logger.With("component", "profile"),
	}
}

func (s *Service) defaults(now time.Time) bson.M {
	return bson.M{
		"farm_name":  "",
		"location":   "",
		"bio":        "",
		"main_crops": []string{},
		"created_at": now,
		"updated_at": now,
	}
}

// Get returns the caller's profile, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, owner string) (*Profile, error) {
	return storage.UpsertOwned[Profile](ctx, s.coll, s.owned, owner, nil, s.defaults(s.now()), true)
}

// Update applies req to the caller's profile, creating it if absent.
func (s *Service) Update(ctx context.Context, owner string, req UpdateRequest) (*Profile, error) {
	now := s.now()
	patch := req.patch()
	patch["updated_at"] = now

	p, err := storage.UpsertOwned[Profile](ctx, s.coll, s.owned, owner, patch, s.defaults(now), true)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Profile updated", "owner", owner)
	return p, nil
}
