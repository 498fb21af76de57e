package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"parkly/internal/migrations/mongo/validators"
	"parkly/pkg/logger"
)

var (
	SlotRequestsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "slot_id", Value: 1}, {Key: "released_at", Value: 1}}},
	}

	ParkingSlotsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slot_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("slot_number_unique"),
		},
		// Serves the approval claim: filter on the triple, sort by _id.
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "vehicle_type", Value: 1},
			{Key: "size", Value: 1},
			{Key: "_id", Value: 1},
		}},
	}

	VehiclesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}

	UsersIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	LogsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}}},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func collections() map[string]collectionDef {
	return map[string]collectionDef{
		"Slot_requests": {Indexes: SlotRequestsIndexes, Validator: validators.SlotRequestValidator},
		"Parking_slots": {Indexes: ParkingSlotsIndexes, Validator: validators.ParkingSlotValidator},
		"Vehicles":      {Indexes: VehiclesIndexes, Validator: validators.VehicleValidator},
		"Users":         {Indexes: UsersIndexes, Validator: validators.UserValidator},
		"Logs":          {Indexes: LogsIndexes, Validator: validators.AuditLogValidator},
		// Sequence documents have no schema beyond {_id, seq}.
		"counters": {},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for name, def := range collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	coll := db.Collection(name)
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
