package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reservationerrors "blokmap/internal/reservations/errors"
	"blokmap/pkg/config"
	mongotx "blokmap/pkg/db/mongo"
	"blokmap/pkg/model"
	"blokmap/pkg/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "reservations"

type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	// UpdateState moves a reservation from one state to another atomically.
	// A mismatch on the expected state returns ErrStateChanged.
	UpdateState(ctx context.Context, id, fromState, toState string, confirmedAt *time.Time) error
	// SpansForOpeningTime returns the block spans of every seat-holding
	// reservation on the opening time. Must run inside the creation
	// transaction so concurrent creators see a consistent occupancy.
	SpansForOpeningTime(ctx context.Context, openingTimeID string) ([]model.BlockSpan, error)
	// List runs the include-aware aggregation, hard-capped by the pipeline.
	List(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.ReservationRow, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
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

func (r *mongoReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if reservation.ID == "" {
		reservation.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	reservation.CreatedAt = now
	reservation.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, reservation); err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", reservationerrors.ErrInvalidID, id)
	}

	var reservation model.Reservation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	return &reservation, nil
}

func (r *mongoReservationRepository) UpdateState(ctx context.Context, id, fromState, toState string, confirmedAt *time.Time) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", reservationerrors.ErrInvalidID, id)
	}

	set := bson.M{
		"state":      toState,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	if confirmedAt != nil {
		set["confirmed_at"] = confirmedAt.UTC().Truncate(time.Millisecond)
	}

	// The expected current state rides in the filter so two concurrent
	// transitions cannot both win.
	filter := bson.M{"_id": id, "state": fromState}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update reservation state: %w", err)
	}

	if result.MatchedCount == 0 {
		exists, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to update reservation state: %w", err)
		}
		if exists == 0 {
			return reservationerrors.ErrNotFound
		}
		return reservationerrors.ErrStateChanged
	}

	return nil
}

func (r *mongoReservationRepository) SpansForOpeningTime(ctx context.Context, openingTimeID string) ([]model.BlockSpan, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"opening_time_id": openingTimeID,
		"state":           bson.M{"$in": model.ActiveStates()},
	}
	projection := options.Find().SetProjection(bson.M{
		"base_block_index": 1,
		"block_count":      1,
	})

	cursor, err := r.collection.Find(ctx, filter, projection)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation spans: %w", err)
	}
	defer cursor.Close(ctx)

	var spans []model.BlockSpan
	if err = cursor.All(ctx, &spans); err != nil {
		return nil, fmt.Errorf("failed to decode reservation spans: %w", err)
	}

	return spans, nil
}

func (r *mongoReservationRepository) List(ctx context.Context, match bson.M, lookups []query.LookupSpec) ([]model.ReservationRow, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	sort := bson.D{{Key: "created_at", Value: -1}}
	pipeline := query.Pipeline(match, lookups, sort)

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []model.ReservationRow
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return rows, nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
