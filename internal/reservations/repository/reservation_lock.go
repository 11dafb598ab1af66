package repository

import (
	"context"
	"fmt"
	"time"

	reservationerrors "blokmap/internal/reservations/errors"
	"blokmap/pkg/config"
	"blokmap/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "reservation_locks"

// ReservationLockRepository serializes reservation creation per opening time.
// The lock document's _id is derived from the opening time, so a duplicate-key
// error on insert means another creator currently holds the opening time.
type ReservationLockRepository interface {
	Acquire(ctx context.Context, openingTimeID string, ttl time.Duration) (*model.ReservationLock, error)
	Release(ctx context.Context, lock *model.ReservationLock) error
}

type mongoReservationLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoReservationLockRepository(cfg *config.Config) ReservationLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func lockID(openingTimeID string) string {
	return "opening_time:" + openingTimeID
}

func (r *mongoReservationLockRepository) Acquire(ctx context.Context, openingTimeID string, ttl time.Duration) (*model.ReservationLock, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	lock := &model.ReservationLock{
		ID:        lockID(openingTimeID),
		Token:     uuid.New().String(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, reservationerrors.ErrLockHeld
		}
		return nil, fmt.Errorf("failed to acquire reservation lock: %w", err)
	}

	return lock, nil
}

// Release deletes the lock only when the token still matches, so an expired
// lock re-acquired by another creator is never torn down by the old holder.
func (r *mongoReservationLockRepository) Release(ctx context.Context, lock *model.ReservationLock) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": lock.ID, "token": lock.Token}
	if _, err := r.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to release reservation lock: %w", err)
	}

	return nil
}
