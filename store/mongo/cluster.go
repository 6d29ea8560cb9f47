package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/cluster"
	"github.com/isethius/Autowebsites-sub001/id"
)

// RegisterInstance adds an instance to the registry. Uses upsert to handle
// re-registration.
func (s *Store) RegisterInstance(ctx context.Context, inst *cluster.Instance) error {
	m := toInstanceModel(inst)

	_, err := s.db.Collection(colInstances).UpdateOne(ctx,
		bson.M{"_id": m.ID},
		bson.M{"$set": bson.M{
			"hostname":   m.Hostname,
			"pid":        m.PID,
			"version":    m.Version,
			"state":      m.State,
			"last_seen":  m.LastSeen,
			"metadata":   m.Metadata,
			"started_at": m.StartedAt,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("autowebsites/mongo: register instance: %w", err)
	}
	return nil
}

// DeregisterInstance removes an instance from the registry.
func (s *Store) DeregisterInstance(ctx context.Context, instanceID id.InstanceID) error {
	res, err := s.db.Collection(colInstances).DeleteOne(ctx, bson.M{"_id": instanceID.String()})
	if err != nil {
		return fmt.Errorf("autowebsites/mongo: deregister instance: %w", err)
	}
	if res.DeletedCount == 0 {
		return autowebsites.ErrInstanceNotFound
	}
	return nil
}

// HeartbeatInstance updates the last-seen timestamp for an instance.
func (s *Store) HeartbeatInstance(ctx context.Context, instanceID id.InstanceID) error {
	res, err := s.db.Collection(colInstances).UpdateOne(ctx,
		bson.M{"_id": instanceID.String()},
		bson.M{"$set": bson.M{"last_seen": now()}},
	)
	if err != nil {
		return fmt.Errorf("autowebsites/mongo: heartbeat instance: %w", err)
	}
	if res.MatchedCount == 0 {
		return autowebsites.ErrInstanceNotFound
	}
	return nil
}

// ListInstances returns all registered instances, oldest first.
func (s *Store) ListInstances(ctx context.Context) ([]*cluster.Instance, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}})
	cursor, err := s.db.Collection(colInstances).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("autowebsites/mongo: list instances: %w", err)
	}
	defer cursor.Close(ctx)

	var models []instanceModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("autowebsites/mongo: list instances decode: %w", err)
	}

	instances := make([]*cluster.Instance, 0, len(models))
	for i := range models {
		inst, convErr := fromInstanceModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("autowebsites/mongo: list instances convert: %w", convErr)
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// ReapStaleInstances marks active instances whose last-seen timestamp is
// older than the threshold as stale and returns them. Each candidate is
// marked with a per-document compare-and-set, so a heartbeat racing the
// reap keeps its instance active.
func (s *Store) ReapStaleInstances(ctx context.Context, threshold time.Duration) ([]*cluster.Instance, error) {
	cutoff := now().Add(-threshold)
	col := s.db.Collection(colInstances)

	cursor, err := col.Find(ctx, bson.M{
		"state":     string(cluster.InstanceActive),
		"last_seen": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, fmt.Errorf("autowebsites/mongo: reap find: %w", err)
	}
	defer cursor.Close(ctx)

	var candidates []instanceModel
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("autowebsites/mongo: reap decode: %w", err)
	}

	markOpts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var stale []*cluster.Instance
	for i := range candidates {
		filter := bson.M{
			"_id":       candidates[i].ID,
			"state":     string(cluster.InstanceActive),
			"last_seen": bson.M{"$lt": cutoff},
		}
		update := bson.M{"$set": bson.M{"state": string(cluster.InstanceStale)}}

		var m instanceModel
		err := col.FindOneAndUpdate(ctx, filter, update, markOpts).Decode(&m)
		if err != nil {
			if isNoDocuments(err) {
				continue // heartbeat won the race
			}
			return nil, fmt.Errorf("autowebsites/mongo: reap mark stale: %w", err)
		}

		inst, convErr := fromInstanceModel(&m)
		if convErr != nil {
			return nil, fmt.Errorf("autowebsites/mongo: reap convert: %w", convErr)
		}
		stale = append(stale, inst)
	}
	return stale, nil
}
