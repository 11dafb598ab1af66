package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	openingtimeserrors "blokmap/internal/openingtimes/errors"
	"blokmap/pkg/config"
	"blokmap/pkg/model"
	"blokmap/pkg/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "opening_times"

type OpeningTimeRepository interface {
	Create(ctx context.Context, openingTime *model.OpeningTime) error
	FindByID(ctx context.Context, id string) (*model.OpeningTime, error)
	Update(ctx context.Context, id string, openingTime *model.OpeningTime) error
	// Retire soft-retires the window. Opening times referenced by
	// reservations are never hard-deleted.
	Retire(ctx context.Context, id string) error
	// List runs the include-aware aggregation, hard-capped by the pipeline.
	List(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.OpeningTimeRow, error)
}

type mongoOpeningTimeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoOpeningTimeRepository(cfg *config.Config) OpeningTimeRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOpeningTimeRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoOpeningTimeRepository) Create(ctx context.Context, openingTime *model.OpeningTime) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if openingTime.ID == "" {
		openingTime.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	openingTime.CreatedAt = now
	openingTime.UpdatedAt = now
	openingTime.Day = openingTime.Day.UTC().Truncate(24 * time.Hour)

	if _, err := r.collection.InsertOne(ctx, openingTime); err != nil {
		return fmt.Errorf("failed to create opening time: %w", err)
	}
	return nil
}

func (r *mongoOpeningTimeRepository) FindByID(ctx context.Context, id string) (*model.OpeningTime, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", openingtimeserrors.ErrInvalidID, id)
	}

	var openingTime model.OpeningTime
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&openingTime)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, openingtimeserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find opening time: %w", err)
	}

	return &openingTime, nil
}

func (r *mongoOpeningTimeRepository) Update(ctx context.Context, id string, openingTime *model.OpeningTime) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", openingtimeserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"day":              openingTime.Day.UTC().Truncate(24 * time.Hour),
			"start_time":       openingTime.StartTime,
			"end_time":         openingTime.EndTime,
			"seat_count":       openingTime.SeatCount,
			"reservable_from":  openingTime.ReservableFrom,
			"reservable_until": openingTime.ReservableUntil,
			"updated_at":       time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update opening time: %w", err)
	}

	if result.MatchedCount == 0 {
		return openingtimeserrors.ErrNotFound
	}

	return nil
}

func (r *mongoOpeningTimeRepository) Retire(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", openingtimeserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"retired":    true,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to retire opening time: %w", err)
	}

	if result.MatchedCount == 0 {
		return openingtimeserrors.ErrNotFound
	}

	return nil
}

func (r *mongoOpeningTimeRepository) List(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.OpeningTimeRow, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	sort := bson.D{{Key: "day", Value: 1}, {Key: "start_time", Value: 1}}
	pipeline := query.Pipeline(match, lookups, sort)

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list opening times: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []model.OpeningTimeRow
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode opening times: %w", err)
	}

	return rows, nil
}
