package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/isethius/Autowebsites-sub001/quota"
)

// TodayCount returns the counter value for kind on the given day.
// Missing counters read as zero.
func (s *Store) TodayCount(ctx context.Context, kind quota.Kind, day string) (int, error) {
	var m quotaCounterModel
	err := s.db.Collection(colQuota).
		FindOne(ctx, bson.M{"_id": counterID(string(kind), day)}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("autowebsites/mongo: read counter %s/%s: %w", kind, day, err)
	}
	return m.Count, nil
}

// IncrCount atomically adds n to the counter for kind on the given day,
// creating it at n if missing. $inc on a single document, so concurrent
// increments cannot lose updates.
func (s *Store) IncrCount(ctx context.Context, kind quota.Kind, day string, n int) error {
	_, err := s.db.Collection(colQuota).UpdateOne(ctx,
		bson.M{"_id": counterID(string(kind), day)},
		bson.M{
			"$inc":         bson.M{"count": n},
			"$setOnInsert": bson.M{"kind": string(kind), "day": day},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("autowebsites/mongo: incr counter %s/%s: %w", kind, day, err)
	}
	return nil
}
