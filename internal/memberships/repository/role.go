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

const RoleCollectionName = "roles"

type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	FindByID(ctx context.Context, id string) (*model.Role, error)
	FindByScope(ctx context.Context, scopeKind, scopeID string) ([]*model.Role, error)
	Delete(ctx context.Context, id string) error
}

type mongoRoleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRoleRepository(cfg *config.Config) RoleRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRoleRepository{
		cfg:        cfg,
		collection: db.Collection(RoleCollectionName),
	}
}

// withTimeout wraps the context with a timeout unless already inside a
// transaction, where wrapping the SessionContext would break transaction
// semantics.
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

func (r *mongoRoleRepository) Create(ctx context.Context, role *model.Role) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	// IDs are stored as hex strings so listing lookups can join on them.
	if role.ID == "" {
		role.ID = primitive.NewObjectID().Hex()
	}
	role.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, role); err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

func (r *mongoRoleRepository) FindByID(ctx context.Context, id string) (*model.Role, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", membershipserrors.ErrInvalidID, id)
	}

	var role model.Role
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&role)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, membershipserrors.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to find role: %w", err)
	}

	return &role, nil
}

func (r *mongoRoleRepository) FindByScope(ctx context.Context, scopeKind, scopeID string) ([]*model.Role, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"scope_kind": scopeKind, "scope_id": scopeID}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find roles: %w", err)
	}
	defer cursor.Close(ctx)

	var roles []*model.Role
	if err = cursor.All(ctx, &roles); err != nil {
		return nil, fmt.Errorf("failed to decode roles: %w", err)
	}

	return roles, nil
}

func (r *mongoRoleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("%w: %s", membershipserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	if result.DeletedCount == 0 {
		return membershipserrors.ErrRoleNotFound
	}

	return nil
}
