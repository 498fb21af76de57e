package testutil

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	auditrepo "parkly/internal/auditlogs/repository"
	requestrepo "parkly/internal/requests/repository"
	slotrepo "parkly/internal/slots/repository"
	mongodb "parkly/pkg/db/mongo"
	"parkly/pkg/model"
)

const (
	DefaultMongoURI     = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultDatabaseName = "parkly_test"
	ConnectionTimeout   = 10 * time.Second
)

type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoHelper(t *testing.T, mongoURI, dbName string) *MongoHelper {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	return &MongoHelper{Client: client, Database: client.Database(dbName)}
}

func (m *MongoHelper) Close(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}

// Clean empties every collection the services touch. Collections are not
// dropped so migrated validators and indexes stay in place.
func (m *MongoHelper) Clean(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, name := range []string{
		requestrepo.CollectionName,
		requestrepo.VehiclesCollection,
		requestrepo.UsersCollection,
		slotrepo.CollectionName,
		auditrepo.CollectionName,
		mongodb.CountersCollection,
	} {
		if _, err := m.Database.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			t.Fatalf("failed to clean collection %s: %v", name, err)
		}
	}
}

// SeedOwner inserts a user and one vehicle. Accounts and vehicles are
// managed elsewhere, so tests write them directly.
func (m *MongoHelper) SeedOwner(t *testing.T, user model.UserContact, vehicle model.Vehicle) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := m.Database.Collection(requestrepo.UsersCollection).InsertOne(ctx, user); err != nil {
		t.Fatalf("failed to seed user %d: %v", user.ID, err)
	}
	if _, err := m.Database.Collection(requestrepo.VehiclesCollection).InsertOne(ctx, vehicle); err != nil {
		t.Fatalf("failed to seed vehicle %d: %v", vehicle.ID, err)
	}
}

func (m *MongoHelper) Count(t *testing.T, collection string, filter bson.M) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := m.Database.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", collection, err)
	}
	return count
}
