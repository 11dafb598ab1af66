package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blokmap/internal/migrations/mongo/validators"
)

var (
	InstitutionsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	}

	AuthoritiesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "institution_id", Value: 1}}},
	}

	LocationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "authority_id", Value: 1}}},
		{Keys: bson.D{{Key: "city", Value: 1}}},
		// Multikey; backs the tag listing filter.
		{Keys: bson.D{{Key: "tag_ids", Value: 1}}},
	}

	OpeningTimesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "location_id", Value: 1},
			{Key: "day", Value: 1},
			{Key: "start_time", Value: 1},
		}},
	}

	ReservationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "opening_time_id", Value: 1},
			{Key: "state", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "profile_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "location_id", Value: 1},
			{Key: "day", Value: 1},
		}},
	}

	// Abandoned locks expire server-side so a crashed creator cannot wedge
	// an opening time.
	ReservationLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	ProfilesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	RolesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "scope_kind", Value: 1},
			{Key: "scope_id", Value: 1},
		}},
	}

	// One membership per profile per scope instance.
	MembershipsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "profile_id", Value: 1},
				{Key: "scope_kind", Value: 1},
				{Key: "scope_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "role_id", Value: 1}}},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running blokmap Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"institutions": {
			Indexes:   InstitutionsIndexes,
			Validator: validators.InstitutionValidator,
		},
		"authorities": {
			Indexes:   AuthoritiesIndexes,
			Validator: validators.AuthorityValidator,
		},
		"locations": {
			Indexes:   LocationsIndexes,
			Validator: validators.LocationValidator,
		},
		"tags": {
			Indexes:   nil,
			Validator: validators.TagValidator,
		},
		"opening_times": {
			Indexes:   OpeningTimesIndexes,
			Validator: validators.OpeningTimeValidator,
		},
		"reservations": {
			Indexes:   ReservationsIndexes,
			Validator: validators.ReservationValidator,
		},
		"reservation_locks": {
			Indexes:   ReservationLocksIndexes,
			Validator: validators.ReservationLockValidator,
		},
		"profiles": {
			Indexes:   ProfilesIndexes,
			Validator: validators.ProfileValidator,
		},
		"roles": {
			Indexes:   RolesIndexes,
			Validator: validators.RoleValidator,
		},
		"memberships": {
			Indexes:   MembershipsIndexes,
			Validator: validators.MembershipValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}

	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
