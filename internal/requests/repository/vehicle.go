package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	requestserrors "parkly/internal/requests/errors"
	"parkly/pkg/config"
	"parkly/pkg/model"
)

// Vehicles and users are owned by the account service. This package only
// reads them.
const (
	VehiclesCollection = "Vehicles"
	UsersCollection    = "Users"
)

type VehicleRepository interface {
	FindOwned(ctx context.Context, id, userID int64) (*model.Vehicle, error)
}

type mongoVehicleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoVehicleRepository(cfg *config.Config) VehicleRepository {
	return &mongoVehicleRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(VehiclesCollection),
	}
}

func (r *mongoVehicleRepository) FindOwned(ctx context.Context, id, userID int64) (*model.Vehicle, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var v model.Vehicle
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %d", requestserrors.ErrVehicleNotFound, id)
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	return &v, nil
}
