package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/run"
)

// CreateRun persists a new run. Returns autowebsites.ErrRunExists if the ID
// is already taken.
func (s *Store) CreateRun(ctx context.Context, r *run.Run) error {
	m, err := toRunModel(r)
	if err != nil {
		return err
	}

	if _, err := s.db.Collection(colRuns).InsertOne(ctx, m); err != nil {
		if isDuplicateKey(err) {
			return autowebsites.ErrRunExists
		}
		return fmt.Errorf("autowebsites/mongo: create run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*run.Run, error) {
	var m runModel
	err := s.db.Collection(colRuns).FindOne(ctx, bson.M{"_id": runID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, autowebsites.ErrRunNotFound
		}
		return nil, fmt.Errorf("autowebsites/mongo: get run: %w", err)
	}
	return fromRunModel(&m)
}

// UpdateRun persists changes to an existing run and bumps its updated-at
// timestamp.
func (s *Store) UpdateRun(ctx context.Context, r *run.Run) error {
	m, err := toRunModel(r)
	if err != nil {
		return err
	}
	m.UpdatedAt = now()

	res, err := s.db.Collection(colRuns).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("autowebsites/mongo: update run: %w", err)
	}
	if res.MatchedCount == 0 {
		return autowebsites.ErrRunNotFound
	}
	return nil
}

// ListRuns returns runs matching the given options, newest first.
func (s *Store) ListRuns(ctx context.Context, opts run.ListOpts) ([]*run.Run, error) {
	filter := bson.M{}
	if opts.State != "" {
		filter["state"] = string(opts.State)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colRuns).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("autowebsites/mongo: list runs: %w", err)
	}
	defer cursor.Close(ctx)

	var models []runModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("autowebsites/mongo: list runs decode: %w", err)
	}

	runs := make([]*run.Run, 0, len(models))
	for i := range models {
		r, convErr := fromRunModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("autowebsites/mongo: list runs convert: %w", convErr)
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// CountRuns returns the number of runs matching the given options.
func (s *Store) CountRuns(ctx context.Context, opts run.CountOpts) (int64, error) {
	filter := bson.M{}
	if opts.State != "" {
		filter["state"] = string(opts.State)
	}
	if opts.Trigger != "" {
		filter["trigger_kind"] = string(opts.Trigger)
	}

	n, err := s.db.Collection(colRuns).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("autowebsites/mongo: count runs: %w", err)
	}
	return n, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (*run.Run, error) {
	findOpts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var m runModel
	err := s.db.Collection(colRuns).FindOne(ctx, bson.M{}, findOpts).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, autowebsites.ErrRunNotFound
		}
		return nil, fmt.Errorf("autowebsites/mongo: latest run: %w", err)
	}
	return fromRunModel(&m)
}
