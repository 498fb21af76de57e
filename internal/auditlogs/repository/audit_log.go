package repository

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"parkly/pkg/config"
	"parkly/pkg/model"
)

const (
	CollectionName = "Logs"
)

type AuditLogRepository interface {
	// Append stores entry once. Appending an entry whose ID already exists
	// is a no-op, so redelivered events do not duplicate the trail.
	Append(ctx context.Context, entry *model.AuditEntry) error
	FindAll(ctx context.Context, search string, limit int, offset int64) ([]*model.AuditEntry, error)
	Count(ctx context.Context, search string) (int64, error)
}

type mongoAuditLogRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAuditLogRepository(cfg *config.Config) AuditLogRepository {
	return &mongoAuditLogRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func searchFilter(search string) bson.M {
	if search == "" {
		return bson.M{}
	}
	return bson.M{"action": primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}}
}

func (r *mongoAuditLogRepository) Append(ctx context.Context, entry *model.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if entry.ID == "" {
		entry.ID = primitive.NewObjectID().Hex()
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": entry.ID},
		bson.M{"$setOnInsert": bson.M{
			"actor_id":   entry.ActorID,
			"action":     entry.Action,
			"created_at": entry.CreatedAt,
		}},
		opts,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (r *mongoAuditLogRepository) FindAll(ctx context.Context, search string, limit int, offset int64) ([]*model.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, searchFilter(search), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []*model.AuditEntry{}
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, nil
}

func (r *mongoAuditLogRepository) Count(ctx context.Context, search string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, searchFilter(search))
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}
