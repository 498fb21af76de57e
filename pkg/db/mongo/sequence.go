package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CountersCollection = "counters"

type counter struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// NextSequence returns the next integer id for name, starting at 1.
func NextSequence(ctx context.Context, db *mongo.Database, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c counter
	err := db.Collection(CountersCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", name, err)
	}
	return c.Seq, nil
}

// ReserveSequence reserves n consecutive ids and returns the first.
func ReserveSequence(ctx context.Context, db *mongo.Database, name string, n int) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid reservation size %d", n)
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c counter
	err := db.Collection(CountersCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(n)}},
		opts,
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve %d %s ids: %w", n, name, err)
	}
	return c.Seq - int64(n) + 1, nil
}
