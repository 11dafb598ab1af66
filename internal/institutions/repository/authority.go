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

const AuthorityCollectionName = "authorities"

type AuthorityRepository interface {
	Create(ctx context.Context, authority *model.Authority) error
	FindByID(ctx context.Context, id string) (*model.Authority, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, match bson.M) ([]model.Authority, error)
}

type mongoAuthorityRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAuthorityRepository(cfg *config.Config) AuthorityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAuthorityRepository{
		cfg:        cfg,
		collection: db.Collection(AuthorityCollectionName),
	}
}

func (r *mongoAuthorityRepository) Create(ctx context.Context, authority *model.Authority) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if authority.ID == "" {
		authority.ID = primitive.NewObjectID().Hex()
	}
	authority.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, authority); err != nil {
		return fmt.Errorf("failed to create authority: %w", err)
	}
	return nil
}

func (r *mongoAuthorityRepository) FindByID(ctx context.Context, id string) (*model.Authority, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", institutionerrors.ErrInvalidID, id)
	}

	var authority model.Authority
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&authority)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, institutionerrors.ErrAuthorityNotFound
		}
		return nil, fmt.Errorf("failed to find authority: %w", err)
	}

	return &authority, nil
}

func (r *mongoAuthorityRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", institutionerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete authority: %w", err)
	}

	if result.DeletedCount == 0 {
		return institutionerrors.ErrAuthorityNotFound
	}

	return nil
}

func (r *mongoAuthorityRepository) List(ctx context.Context, match bson.M) ([]model.Authority, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	sort := bson.D{{Key: "name", Value: 1}}
	pipeline := query.Pipeline(match, nil, sort)

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list authorities: %w", err)
	}
	defer cursor.Close(ctx)

	var authorities []model.Authority
	if err = cursor.All(ctx, &authorities); err != nil {
		return nil, fmt.Errorf("failed to decode authorities: %w", err)
	}

	return authorities, nil
}
