package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	requestserrors "parkly/internal/requests/errors"
	"parkly/pkg/config"
	mongotx "parkly/pkg/db/mongo"
	"parkly/pkg/model"
)

const (
	CollectionName = "Slot_requests"
	SequenceName   = "slot_requests"
)

type mongoSlotRequestRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type SlotRequestRepository interface {
	Create(ctx context.Context, req *model.SlotRequest) error
	FindByID(ctx context.Context, id int64) (*model.SlotRequest, error)
	FindAll(ctx context.Context, filter model.SlotRequestFilter, limit int, offset int64) ([]*model.SlotRequest, error)
	Count(ctx context.Context, filter model.SlotRequestFilter) (int64, error)

	// FindPendingDetails joins a pending request with its vehicle and the
	// requester's email. Any other status reads as not found.
	FindPendingDetails(ctx context.Context, id int64) (*model.SlotRequestDetails, error)

	// The Mark* transitions are conditional on the current status and
	// report ErrStateChanged when nothing matched.
	MarkApproved(ctx context.Context, id int64, slot *model.ParkingSlot, adminID int64, at time.Time) (*model.SlotRequest, error)
	MarkRejected(ctx context.Context, id int64, reason string, adminID int64, at time.Time) (*model.SlotRequest, error)
	MarkReleased(ctx context.Context, id int64, at time.Time) (*model.SlotRequest, error)

	UpdatePending(ctx context.Context, id, userID, vehicleID int64) (*model.SlotRequest, error)
	DeletePending(ctx context.Context, id, userID int64) error

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoSlotRequestRepository(cfg *config.Config) SlotRequestRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRequestRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoSlotRequestRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	if remaining := time.Until(deadline); remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}
	return context.WithTimeout(ctx, timeout)
}

func filterDocument(filter model.SlotRequestFilter) bson.M {
	doc := bson.M{}
	if filter.UserID != nil {
		doc["user_id"] = *filter.UserID
	}
	if filter.Status != "" {
		doc["status"] = filter.Status
	}
	return doc
}

func (r *mongoSlotRequestRepository) Create(ctx context.Context, req *model.SlotRequest) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	id, err := mongotx.NextSequence(ctx, r.db, SequenceName)
	if err != nil {
		return err
	}

	req.ID = id
	req.Status = model.RequestPending
	req.RequestedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, req); err != nil {
		return fmt.Errorf("failed to create slot request: %w", err)
	}
	return nil
}

func (r *mongoSlotRequestRepository) FindByID(ctx context.Context, id int64) (*model.SlotRequest, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var req model.SlotRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %d", requestserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find slot request: %w", err)
	}
	return &req, nil
}

func (r *mongoSlotRequestRepository) FindAll(ctx context.Context, filter model.SlotRequestFilter, limit int, offset int64) ([]*model.SlotRequest, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filterDocument(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query slot requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := []*model.SlotRequest{}
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode slot requests: %w", err)
	}
	return requests, nil
}

func (r *mongoSlotRequestRepository) Count(ctx context.Context, filter model.SlotRequestFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count slot requests: %w", err)
	}
	return count, nil
}

func (r *mongoSlotRequestRepository) FindPendingDetails(ctx context.Context, id int64) (*model.SlotRequestDetails, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": id, "status": model.RequestPending}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         VehiclesCollection,
			"localField":   "vehicle_id",
			"foreignField": "_id",
			"as":           "vehicle",
		}}},
		{{Key: "$unwind", Value: "$vehicle"}},
		{{Key: "$lookup", Value: bson.M{
			"from":         UsersCollection,
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$user", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$addFields", Value: bson.M{
			"vehicle_type": "$vehicle.vehicle_type",
			"size":         "$vehicle.size",
			"plate_number": "$vehicle.plate_number",
			"email":        "$user.email",
		}}},
		{{Key: "$project", Value: bson.M{"vehicle": 0, "user": 0}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to load slot request details: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, fmt.Errorf("failed to load slot request details: %w", err)
		}
		return nil, fmt.Errorf("%w: %d", requestserrors.ErrNotFound, id)
	}

	var details model.SlotRequestDetails
	if err := cursor.Decode(&details); err != nil {
		return nil, fmt.Errorf("failed to decode slot request details: %w", err)
	}
	return &details, nil
}

func (r *mongoSlotRequestRepository) transition(ctx context.Context, filter, set bson.M, missing error) (*model.SlotRequest, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var req model.SlotRequest
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %v", missing, filter["_id"])
		}
		return nil, fmt.Errorf("failed to update slot request: %w", err)
	}
	return &req, nil
}

func (r *mongoSlotRequestRepository) MarkApproved(ctx context.Context, id int64, slot *model.ParkingSlot, adminID int64, at time.Time) (*model.SlotRequest, error) {
	return r.transition(ctx,
		bson.M{"_id": id, "status": model.RequestPending},
		bson.M{
			"status":       model.RequestApproved,
			"slot_id":      slot.ID,
			"slot_number":  slot.SlotNumber,
			"approved_at":  at,
			"processed_by": adminID,
		},
		requestserrors.ErrStateChanged,
	)
}

func (r *mongoSlotRequestRepository) MarkRejected(ctx context.Context, id int64, reason string, adminID int64, at time.Time) (*model.SlotRequest, error) {
	return r.transition(ctx,
		bson.M{"_id": id, "status": model.RequestPending},
		bson.M{
			"status":           model.RequestRejected,
			"rejection_reason": reason,
			"rejected_at":      at,
			"processed_by":     adminID,
		},
		requestserrors.ErrStateChanged,
	)
}

func (r *mongoSlotRequestRepository) MarkReleased(ctx context.Context, id int64, at time.Time) (*model.SlotRequest, error) {
	return r.transition(ctx,
		bson.M{"_id": id, "status": model.RequestApproved, "released_at": nil},
		bson.M{"released_at": at},
		requestserrors.ErrNotFound,
	)
}

func (r *mongoSlotRequestRepository) UpdatePending(ctx context.Context, id, userID, vehicleID int64) (*model.SlotRequest, error) {
	return r.transition(ctx,
		bson.M{"_id": id, "user_id": userID, "status": model.RequestPending},
		bson.M{"vehicle_id": vehicleID},
		requestserrors.ErrNotFound,
	)
}

func (r *mongoSlotRequestRepository) DeletePending(ctx context.Context, id, userID int64) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID, "status": model.RequestPending})
	if err != nil {
		return fmt.Errorf("failed to delete slot request: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %d", requestserrors.ErrNotFound, id)
	}
	return nil
}
