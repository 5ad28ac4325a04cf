package users

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alakara/harvest/internal/core/storage"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// DefaultListLimit is the page size used by the account listing when the
// caller gives none.
const DefaultListLimit = 100

// ErrUserExists is returned when the email or phone number is taken.
var ErrUserExists = fmt.Errorf("%w: user with this email or phone number already exists", storage.ErrExists)

// TokenIssuer signs session tokens for accounts.
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

var withoutPassword = bson.M{"password_hash": 0}

type Service struct {
	coll      storage.Collection
	paginator storage.Paginator
	issuer    TokenIssuer
	hashCost  int
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(coll storage.Collection, paginator storage.Paginator, issuer TokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		coll:      coll,
		paginator: paginator,
		issuer:    issuer,
		hashCost:  bcrypt.DefaultCost,
		now:       time.Now,
		logger:    logger.With("component", "users"),
	}
}

// AccountID derives the account ID from the normalized email.
func AccountID(email string) string {
	hash := blake3.Sum256([]byte(normalizeEmail(email)))
	return hex.EncodeToString(hash[:16])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)

	err := s.coll.FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": email},
		bson.M{"phone_number": req.PhoneNumber},
	}}).Err()
	switch {
	case err == nil:
		return nil, ErrUserExists
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, storage.WrapError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	prefs := Preferences{NotificationsEnabled: true, SMSAlerts: true, EmailAlerts: true, PreferredMarkets: []string{}}
	if req.Preferences != nil {
		prefs = *req.Preferences
	}
	crops := req.Crops
	if crops == nil {
		crops = []Crop{}
	}
	profile := req.Profile
	profile.Location.Type = "Point"

	u := &User{
		ID:           AccountID(email),
		Email:        email,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: string(hash),
		Profile:      profile,
		Crops:        crops,
		Preferences:  prefs,
		Metadata: Metadata{
			RegistrationDate:       now,
			AccountStatus:          StatusActive,
			EmailVerificationToken: uuid.NewString(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		return nil, storage.WrapError(err)
	}
	s.logger.Info("Account registered", "id", u.ID)

	token, err := s.issuer.Issue(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return &AuthResult{User: u, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	key := strings.TrimSpace(req.EmailOrPhone)

	var u User
	err := s.coll.FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": strings.ToLower(key)},
		bson.M{"phone_number": key},
	}}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storage.WrapError(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{"metadata.last_login": now}}); err != nil {
		return nil, storage.WrapError(err)
	}
	u.Metadata.LastLogin = &now

	token, err := s.issuer.Issue(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return &AuthResult{User: &u, Token: token}, nil
}

// Get returns the account without its password hash.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(withoutPassword)).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, storage.WrapError(err)
	}
	return &u, nil
}

// UpdateProfile writes the set fields of req and returns the updated account.
func (s *Service) UpdateProfile(ctx context.Context, id string, req UpdateRequest) (*User, error) {
	set := req.fields()
	set["updated_at"] = s.now().UTC().Truncate(time.Millisecond)

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)

	var u User
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, storage.WrapError(err)
	}
	return &u, nil
}

func (r UpdateRequest) fields() bson.M {
	set := bson.M{}
	if p := r.Profile; p != nil {
		setIf(set, "profile.first_name", p.FirstName)
		setIf(set, "profile.last_name", p.LastName)
		setIf(set, "profile.farm_name", p.FarmName)
		setIf(set, "profile.language", p.Language)
		setIf(set, "profile.profile_image", p.ProfileImage)
		if l := p.Location; l != nil {
			if l.Coordinates != nil {
				set["profile.location.coordinates"] = l.Coordinates
			}
			setIf(set, "profile.location.county", l.County)
			setIf(set, "profile.location.sub_county", l.SubCounty)
			setIf(set, "profile.location.ward", l.Ward)
		}
	}
	if r.Crops != nil {
		set["crops"] = r.Crops
	}
	if r.Preferences != nil {
		set["preferences"] = *r.Preferences
	}
	return set
}

func setIf(m bson.M, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

// List pages through all accounts, password hashes excluded.
func (s *Service) List(ctx context.Context, page storage.PageRequest) (*storage.PageResult[User], error) {
	if page.Page == 0 {
		page.Page = 1
	}
	if page.Limit == 0 {
		page.Limit = DefaultListLimit
	}
	return storage.Paginate[User](ctx, s.coll, s.paginator, storage.Query{
		Name:       "users",
		Filter:     bson.M{},
		Page:       page,
		Projection: withoutPassword,
	})
}

// VerifyEmail marks the email of the account holding token as verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)

	var u User
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"metadata.email_verification_token": token},
		bson.M{"$set": bson.M{
			"metadata.verification_status.email": true,
			"updated_at":                         s.now().UTC().Truncate(time.Millisecond),
		}},
		opts,
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, storage.WrapError(err)
	}
	return &u, nil
}

// ResendVerification issues a fresh verification token for the account.
// Delivery is logged; there is no mail transport.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	token := uuid.NewString()
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"email": normalizeEmail(email)},
		bson.M{"$set": bson.M{"metadata.email_verification_token": token}},
	)
	if err != nil {
		return storage.WrapError(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	s.logger.Info("Verification email queued", "email", normalizeEmail(email))
	return nil
}
