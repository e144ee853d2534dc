package lock

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Locks"

// MongoStore implements Store on a MongoDB collection keyed by lease key.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection(CollectionName),
	}
}

// TryAcquire is a single conditional upsert:
//   - no document for key        -> the upsert inserts a fresh lease
//   - expired document for key   -> the filter matches and the lease is
//     rewritten in place for the new owner
//   - live document for key      -> the filter does not match, the upsert
//     tries to insert a duplicate _id and MongoDB rejects it, which maps
//     to "busy" rather than an error
//
// The duplicate-key rejection is what makes the check-and-write indivisible.
func (s *MongoStore) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()

	filter := bson.M{
		"_id":        key,
		"expires_at": bson.M{"$lte": now},
	}
	update := bson.M{
		"$set": bson.M{
			"owner":      owner,
			"expires_at": now.Add(ttl),
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MongoStore) Release(ctx context.Context, key, owner string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": owner})
	return err
}

func (s *MongoStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lte": time.Now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
