// Package transport is the marketplace of vehicle listings posted by
// transporters and browsed by farmers.
package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/alakara/harvest/internal/core/storage"
	"github.com/alakara/harvest/internal/events"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OwnerField = "user_id"
	resource   = "transport"
)

type Listing struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID       string             `bson:"user_id" json:"userId"`
	OwnerName    string             `bson:"owner_name" json:"ownerName"`
	PhoneNumber  string             `bson:"phone_number" json:"phoneNumber"`
	VehicleType  string             `bson:"vehicle_type" json:"vehicleType"`
	Location     string             `bson:"location" json:"location"`
	Capacity     string             `bson:"capacity" json:"capacity"`
	Rate         string             `bson:"rate" json:"rate"`
	Availability string             `bson:"availability" json:"availability"`
	IsAvailable  bool               `bson:"is_available" json:"isAvailable"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// CreateRequest is a new listing. IsAvailable defaults to true.
type CreateRequest struct {
	OwnerName    string `json:"ownerName" validate:"required,max=120"`
	PhoneNumber  string `json:"phoneNumber" validate:"required,min=10,max=15"`
	VehicleType  string `json:"vehicleType" validate:"required,max=60"`
	Location     string `json:"location" validate:"required,max=120"`
	Capacity     string `json:"capacity" validate:"required,max=60"`
	Rate         string `json:"rate" validate:"required,max=60"`
	Availability string `json:"availability" validate:"required,max=60"`
	IsAvailable  *bool  `json:"isAvailable"`
}

type Service struct {
	coll      storage.Collection
	paginator storage.Paginator
	owned     storage.Owned
	publisher events.Publisher
	now       func() time.Time
	logger    *slog.Logger
}

type Options struct {
	Paginator       storage.Paginator
	RevealForbidden bool
	Publisher       events.Publisher
	Logger          *slog.Logger
}

func NewService(coll storage.Collection, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "transport")
	pub := opts.Publisher
	if pub == nil {
		pub = events.NewLogPublisher(logger)
	}
	return &Service{
		coll:      coll,
		paginator: opts.Paginator,
		owned:     storage.Owned{OwnerField: OwnerField, RevealForbidden: opts.RevealForbidden},
		publisher: pub,
		now:       time.Now,
		logger:    logger,
	}
}

// Create stores a listing owned by owner.
func (s *Service) Create(ctx context.Context, owner string, req CreateRequest) (*Listing, error) {
	if owner == "" {
		return nil, storage.ErrMissingOwner
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	l := &Listing{
		UserID:       owner,
		OwnerName:    req.OwnerName,
		PhoneNumber:  req.PhoneNumber,
		VehicleType:  req.VehicleType,
		Location:     req.Location,
		Capacity:     req.Capacity,
		Rate:         req.Rate,
		Availability: req.Availability,
		IsAvailable:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.IsAvailable != nil {
		l.IsAvailable = *req.IsAvailable
	}

	res, err := s.coll.InsertOne(ctx, l)
	if err != nil {
		return nil, storage.WrapError(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		l.ID = id
	}

	if evt, err := events.New(events.TypeCreated, resource, l.ID.Hex(), owner, l); err == nil {
		events.PublishBestEffort(ctx, s.publisher, s.logger, evt)
	}
	return l, nil
}

// ListAvailable pages through listings open for booking, newest first.
func (s *Service) ListAvailable(ctx context.Context, page storage.PageRequest) (*storage.PageResult[Listing], error) {
	return storage.Paginate[Listing](ctx, s.coll, s.paginator, storage.Query{
		Name:   "transports",
		Filter: bson.M{"is_available": true},
		Page:   page,
		Sort:   bson.D{{Key: "created_at", Value: -1}},
	})
}

// ListMine pages through the owner's listings, newest first.
func (s *Service) ListMine(ctx context.Context, owner string, page storage.PageRequest) (*storage.PageResult[Listing], error) {
	if owner == "" {
		return nil, storage.ErrMissingOwner
	}
	return storage.Paginate[Listing](ctx, s.coll, s.paginator, storage.Query{
		Name:   "transports",
		Filter: bson.M{OwnerField: owner},
		Page:   page,
		Sort:   bson.D{{Key: "created_at", Value: -1}},
	})
}

// Delete removes the owner's listing. A malformed id is reported the same as
// a missing one.
func (s *Service) Delete(ctx context.Context, id, owner string) (*Listing, error) {
	if owner == "" {
		return nil, storage.ErrMissingOwner
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	l, err := storage.DeleteOwned[Listing](ctx, s.coll, s.owned, oid, owner)
	if err != nil {
		return nil, err
	}

	if evt, err := events.New(events.TypeDeleted, resource, id, owner, nil); err == nil {
		events.PublishBestEffort(ctx, s.publisher, s.logger, evt)
	}
	return l, nil
}
