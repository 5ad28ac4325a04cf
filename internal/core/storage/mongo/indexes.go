package mongo

import (
	"context"
	"fmt"

	"github.com/alakara/harvest/internal/core/storage/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexSpecs returns the indexes each collection needs. Owner identities of
// single-record-per-owner collections are unique.
func IndexSpecs(c config.CollectionsConfig) map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		c.Profiles: {
			{
				Keys:    bson.D{{Key: "clerk_user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		c.Transport: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "is_available", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		c.Users: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
			{
				Keys:    bson.D{{Key: "phone_number", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
		c.Chats: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}

// EnsureIndexes creates the indexes on the connected database.
func (m *Manager) EnsureIndexes(ctx context.Context) error {
	db := m.Database()
	if db == nil {
		return ErrNotConnected
	}
	for coll, models := range IndexSpecs(m.cfg.Collections) {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", coll, err)
		}
	}
	return nil
}
