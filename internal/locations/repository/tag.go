package repository

import (
	"context"
	"fmt"
	"time"

	"blokmap/pkg/config"
	"blokmap/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const TagCollectionName = "tags"

type TagRepository interface {
	Create(ctx context.Context, tag *model.Tag) error
	List(ctx context.Context) ([]model.Tag, error)
}

type mongoTagRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTagRepository(cfg *config.Config) TagRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTagRepository{
		cfg:        cfg,
		collection: db.Collection(TagCollectionName),
	}
}

func (r *mongoTagRepository) Create(ctx context.Context, tag *model.Tag) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if tag.ID == "" {
		tag.ID = primitive.NewObjectID().Hex()
	}
	tag.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, tag); err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

func (r *mongoTagRepository) List(ctx context.Context) ([]model.Tag, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer cursor.Close(ctx)

	var tags []model.Tag
	if err = cursor.All(ctx, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}

	return tags, nil
}
