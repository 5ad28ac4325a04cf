package storage

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Owned scopes mutations to the record's owner identity.
type Owned struct {
	// OwnerField is the bson field holding the owner identity, e.g. "user_id".
	OwnerField string
	// RevealForbidden makes DeleteOwned return ErrNotOwner instead of ErrNotFound
	// when the record exists under another owner. Off by default so callers
	// cannot probe for records they do not own.
	RevealForbidden bool
}

// DeleteOwned atomically deletes the record matching both id and owner and
// returns it. A wrong id and a foreign owner are both ErrNotFound.
func DeleteOwned[T any](ctx context.Context, coll Collection, o Owned, id interface{}, owner string) (*T, error) {
	if owner == "" {
		return nil, ErrMissingOwner
	}

	filter := bson.M{"_id": id, o.OwnerField: owner}

	var out T
	err := coll.FindOneAndDelete(ctx, filter).Decode(&out)
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, WrapError(err)
	}

	if o.RevealForbidden {
		n, cerr := coll.CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return nil, WrapError(cerr)
		}
		if n > 0 {
			return nil, ErrNotOwner
		}
	}
	return nil, ErrNotFound
}

// UpsertOwned atomically applies patch to the single record keyed by owner.
// With createIfMissing the record is created from defaults plus patch when
// absent. The post-mutation record is returned.
func UpsertOwned[T any](ctx context.Context, coll Collection, o Owned, owner string, patch, defaults bson.M, createIfMissing bool) (*T, error) {
	if owner == "" {
		return nil, ErrMissingOwner
	}

	update := bson.M{}
	if len(patch) > 0 {
		update["$set"] = patch
	}
	if createIfMissing {
		onInsert := bson.M{}
		for k, v := range defaults {
			// A field may not appear in both $set and $setOnInsert.
			if _, ok := patch[k]; ok {
				continue
			}
			onInsert[k] = v
		}
		if len(onInsert) > 0 {
			update["$setOnInsert"] = onInsert
		}
	}
	if len(update) == 0 {
		// Nothing to write: read the record instead.
		var out T
		err := coll.FindOne(ctx, bson.M{o.OwnerField: owner}).Decode(&out)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, WrapError(err)
		}
		return &out, nil
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(createIfMissing).
		SetReturnDocument(options.After)

	var out T
	err := coll.FindOneAndUpdate(ctx, bson.M{o.OwnerField: owner}, update, opts).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrExists
		}
		return nil, WrapError(err)
	}
	return &out, nil
}
