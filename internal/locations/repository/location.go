package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	locationerrors "blokmap/internal/locations/errors"
	"blokmap/pkg/config"
	"blokmap/pkg/model"
	"blokmap/pkg/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "locations"

type LocationRepository interface {
	Create(ctx context.Context, location *model.Location) error
	FindByID(ctx context.Context, id string) (*model.Location, error)
	Delete(ctx context.Context, id string) error
	// List runs the include-aware aggregation, hard-capped by the pipeline.
	List(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.LocationRow, error)
}

type mongoLocationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLocationRepository(cfg *config.Config) LocationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLocationRepository{
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

func (r *mongoLocationRepository) Create(ctx context.Context, location *model.Location) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if location.ID == "" {
		location.ID = primitive.NewObjectID().Hex()
	}
	location.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, location); err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

func (r *mongoLocationRepository) FindByID(ctx context.Context, id string) (*model.Location, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", locationerrors.ErrInvalidID, id)
	}

	var location model.Location
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&location)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, locationerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find location: %w", err)
	}

	return &location, nil
}

func (r *mongoLocationRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", locationerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}

	if result.DeletedCount == 0 {
		return locationerrors.ErrNotFound
	}

	return nil
}

func (r *mongoLocationRepository) List(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.LocationRow, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	sort := bson.D{{Key: "name", Value: 1}}
	pipeline := query.Pipeline(match, lookups, sort)

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []model.LocationRow
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode locations: %w", err)
	}

	return rows, nil
}
