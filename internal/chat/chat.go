// Package chat stores one assistant conversation per user and answers new
// messages through an ai.Responder.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/alakara/harvest/internal/core/storage"
	"github.com/alakara/harvest/internal/integrations/ai"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OwnerField keys a session to its user.
const OwnerField = "user_id"

// ErrEmptyMessage is returned for a blank message text.
var ErrEmptyMessage = errors.New("message text is required")

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Message struct {
	ID        string    `bson:"id" json:"id"`
	Text      string    `bson:"text" json:"text"`
	Sender    Sender    `bson:"sender" json:"sender"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    string             `bson:"user_id" json:"userId"`
	Messages  []Message          `bson:"messages" json:"messages"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

type Service struct {
	coll      storage.Collection
	owned     storage.Owned
	responder ai.Responder
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
}

func NewService(coll storage.Collection, responder ai.Responder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		coll:      coll,
		owned:     storage.Owned{OwnerField: OwnerField},
		responder: responder,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    logger.With("component", "chat"),
	}
}

func (s *Service) message(text string, sender Sender) Message {
	return Message{
		ID:        s.newID(),
		Text:      text,
		Sender:    sender,
		Timestamp: s.now().UTC().Truncate(time.Millisecond),
	}
}

func (s *Service) defaults() bson.M {
	greeting := s.message(ai.Greeting, SenderBot)
	return bson.M{
		"messages":   []Message{greeting},
		"created_at": greeting.Timestamp,
		"updated_at": greeting.Timestamp,
	}
}

// History returns the owner's session, starting one with the greeting when
// none exists.
func (s *Service) History(ctx context.Context, owner string) (*Session, error) {
	return storage.UpsertOwned[Session](ctx, s.coll, s.owned, owner, nil, s.defaults(), true)
}

// Post appends the user's message and the assistant's answer in one write and
// returns the answer.
func (s *Service) Post(ctx context.Context, owner, text string) (*Message, error) {
	if owner == "" {
		return nil, storage.ErrMissingOwner
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	// The session must exist so the greeting stays the first message.
	if _, err := s.History(ctx, owner); err != nil {
		return nil, err
	}

	userMsg := s.message(text, SenderUser)
	answer, err := s.responder.Respond(ctx, text)
	if err != nil {
		if storage.IsCanceled(err) {
			return nil, storage.WrapError(err)
		}
		s.logger.Warn("Responder failed", "error", err)
		answer = ai.Answer(text)
	}
	botMsg := s.message(answer, SenderBot)

	update := bson.M{
		"$push": bson.M{"messages": bson.M{"$each": []Message{userMsg, botMsg}}},
		"$set":  bson.M{"updated_at": botMsg.Timestamp},
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{OwnerField: owner}, update)
	if err != nil {
		return nil, storage.WrapError(err)
	}
	if res.MatchedCount == 0 {
		return nil, storage.ErrNotFound
	}

	s.logger.Debug("Chat message answered", "user_id", owner, "message_id", botMsg.ID)
	return &botMsg, nil
}
