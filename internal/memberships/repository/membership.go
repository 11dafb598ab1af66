package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	membershipserrors "blokmap/internal/memberships/errors"
	"blokmap/pkg/config"
	"blokmap/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const MembershipCollectionName = "memberships"

type MembershipRepository interface {
	Create(ctx context.Context, membership *model.Membership) error
	FindByID(ctx context.Context, id string) (*model.Membership, error)
	// FindByProfileAndScope returns the single membership a profile holds at
	// one scope instance, or ErrMembershipNotFound.
	FindByProfileAndScope(ctx context.Context, profileID, scopeKind, scopeID string) (*model.Membership, error)
	FindByScope(ctx context.Context, scopeKind, scopeID string) ([]*model.Membership, error)
	Delete(ctx context.Context, id string) error
}

type mongoMembershipRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoMembershipRepository(cfg *config.Config) MembershipRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoMembershipRepository{
		cfg:        cfg,
		collection: db.Collection(MembershipCollectionName),
	}
}

func (r *mongoMembershipRepository) Create(ctx context.Context, membership *model.Membership) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if membership.ID == "" {
		membership.ID = primitive.NewObjectID().Hex()
	}
	membership.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, membership); err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

func (r *mongoMembershipRepository) FindByID(ctx context.Context, id string) (*model.Membership, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", membershipserrors.ErrInvalidID, id)
	}

	var membership model.Membership
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&membership)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, membershipserrors.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}

	return &membership, nil
}

func (r *mongoMembershipRepository) FindByProfileAndScope(ctx context.Context, profileID, scopeKind, scopeID string) (*model.Membership, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"profile_id": profileID,
		"scope_kind": scopeKind,
		"scope_id":   scopeID,
	}

	var membership model.Membership
	err := r.collection.FindOne(ctx, filter).Decode(&membership)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, membershipserrors.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}

	return &membership, nil
}

func (r *mongoMembershipRepository) FindByScope(ctx context.Context, scopeKind, scopeID string) ([]*model.Membership, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"scope_kind": scopeKind, "scope_id": scopeID}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find memberships: %w", err)
	}
	defer cursor.Close(ctx)

	var memberships []*model.Membership
	if err = cursor.All(ctx, &memberships); err != nil {
		return nil, fmt.Errorf("failed to decode memberships: %w", err)
	}

	return memberships, nil
}

func (r *mongoMembershipRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", membershipserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}

	if result.DeletedCount == 0 {
		return membershipserrors.ErrMembershipNotFound
	}

	return nil
}
