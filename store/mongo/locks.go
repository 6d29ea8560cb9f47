package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AcquireLock claims name for token with the given TTL. A single upsert
// carries all three outcomes: no document inserts a fresh lease, an
// expired lease matches the filter and is taken over, and an unexpired
// lease fails the upsert with a duplicate key.
func (s *Store) AcquireLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	t := now()

	filter := bson.M{
		"_id":        name,
		"expires_at": bson.M{"$lte": t},
	}
	update := bson.M{"$set": bson.M{
		"token":      token,
		"expires_at": t.Add(ttl),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	err := s.db.Collection(colLocks).FindOneAndUpdate(ctx, filter, update, opts).Err()
	if err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("autowebsites/mongo: acquire lock %s: %w", name, err)
	}
	return true, nil
}

// RenewLock extends the lease by ttl from now while token still holds name.
func (s *Store) RenewLock(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	res, err := s.db.Collection(colLocks).UpdateOne(ctx,
		bson.M{"_id": name, "token": token},
		bson.M{"$set": bson.M{"expires_at": now().Add(ttl)}},
	)
	if err != nil {
		return false, fmt.Errorf("autowebsites/mongo: renew lock %s: %w", name, err)
	}
	return res.MatchedCount > 0, nil
}

// ReleaseLock clears name if it still holds token. A token mismatch is a
// silent no-op.
func (s *Store) ReleaseLock(ctx context.Context, name, token string) error {
	_, err := s.db.Collection(colLocks).DeleteOne(ctx, bson.M{"_id": name, "token": token})
	if err != nil {
		return fmt.Errorf("autowebsites/mongo: release lock %s: %w", name, err)
	}
	return nil
}
