package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	institutionerrors "blokmap/internal/institutions/errors"
	"blokmap/pkg/config"
	"blokmap/pkg/model"
	"blokmap/pkg/query"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "institutions"

type InstitutionRepository interface {
	Create(ctx context.Context, institution *model.Institution) error
	FindByID(ctx context.Context, id string) (*model.Institution, error)
	List(ctx context.Context, match bson.M) ([]model.Institution, error)
}

type mongoInstitutionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoInstitutionRepository(cfg *config.Config) InstitutionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoInstitutionRepository{
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

func (r *mongoInstitutionRepository) Create(ctx context.Context, institution *model.Institution) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if institution.ID == "" {
		institution.ID = primitive.NewObjectID().Hex()
	}
	institution.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, institution); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return institutionerrors.ErrDuplicateSlug
		}
		return fmt.Errorf("failed to create institution: %w", err)
	}
	return nil
}

func (r *mongoInstitutionRepository) FindByID(ctx context.Context, id string) (*model.Institution, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", institutionerrors.ErrInvalidID, id)
	}

	var institution model.Institution
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&institution)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, institutionerrors.ErrInstitutionNotFound
		}
		return nil, fmt.Errorf("failed to find institution: %w", err)
	}

	return &institution, nil
}

func (r *mongoInstitutionRepository) List(ctx context.Context, match bson.M) ([]model.Institution, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	sort := bson.D{{Key: "name", Value: 1}}
	pipeline := query.Pipeline(match, nil, sort)

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list institutions: %w", err)
	}
	defer cursor.Close(ctx)

	var institutions []model.Institution
	if err = cursor.All(ctx, &institutions); err != nil {
		return nil, fmt.Errorf("failed to decode institutions: %w", err)
	}

	return institutions, nil
}
