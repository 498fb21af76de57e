package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	slotserrors "parkly/internal/slots/errors"
	"parkly/pkg/config"
	mongotx "parkly/pkg/db/mongo"
	"parkly/pkg/model"
)

const (
	CollectionName = "Parking_slots"
	SequenceName   = "parking_slots"
)

type mongoParkingSlotRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type ParkingSlotRepository interface {
	BulkCreate(ctx context.Context, slots []*model.ParkingSlot) error
	FindByID(ctx context.Context, id int64) (*model.ParkingSlot, error)
	FindAll(ctx context.Context, filter model.SlotFilter, limit int, offset int64) ([]*model.ParkingSlot, error)
	Count(ctx context.Context, filter model.SlotFilter) (int64, error)
	Update(ctx context.Context, id int64, update *model.ParkingSlotUpdate) (*model.ParkingSlot, error)
	DeleteAvailable(ctx context.Context, id int64) (*model.ParkingSlot, error)

	// Claim atomically flips the lowest-id available slot matching criteria
	// to unavailable and returns it.
	Claim(ctx context.Context, criteria model.SlotCriteria) (*model.ParkingSlot, error)
	// Release flips an unavailable slot back to available.
	Release(ctx context.Context, id int64) (*model.ParkingSlot, error)
	// FindRepresentative returns any slot matching criteria regardless of
	// status.
	FindRepresentative(ctx context.Context, criteria model.SlotCriteria) (*model.ParkingSlot, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoParkingSlotRepository(cfg *config.Config) ParkingSlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoParkingSlotRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout leaves session contexts untouched so the operation stays inside
// its transaction.
func (r *mongoParkingSlotRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func filterDocument(filter model.SlotFilter) bson.M {
	doc := bson.M{}
	if filter.Status != "" {
		doc["status"] = filter.Status
	}
	return doc
}

func (r *mongoParkingSlotRepository) BulkCreate(ctx context.Context, slots []*model.ParkingSlot) error {
	if len(slots) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	first, err := mongotx.ReserveSequence(ctx, r.db, SequenceName, len(slots))
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, 0, len(slots))
	for i, slot := range slots {
		slot.ID = first + int64(i)
		slot.Status = model.SlotAvailable
		slot.CreatedAt = now
		docs = append(docs, slot)
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", slotserrors.ErrDuplicateSlotNumber, err)
		}
		return fmt.Errorf("failed to create parking slots: %w", err)
	}
	return nil
}

func (r *mongoParkingSlotRepository) FindByID(ctx context.Context, id int64) (*model.ParkingSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var slot model.ParkingSlot
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %d", slotserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find parking slot: %w", err)
	}
	return &slot, nil
}

func (r *mongoParkingSlotRepository) FindAll(ctx context.Context, filter model.SlotFilter, limit int, offset int64) ([]*model.ParkingSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filterDocument(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query parking slots: %w", err)
	}
	defer cursor.Close(ctx)

	slots := []*model.ParkingSlot{}
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode parking slots: %w", err)
	}
	return slots, nil
}

func (r *mongoParkingSlotRepository) Count(ctx context.Context, filter model.SlotFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count parking slots: %w", err)
	}
	return count, nil
}

func (r *mongoParkingSlotRepository) Update(ctx context.Context, id int64, update *model.ParkingSlotUpdate) (*model.ParkingSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{}
	if update.SlotNumber != nil {
		set["slot_number"] = *update.SlotNumber
	}
	if update.Size != nil {
		set["size"] = *update.Size
	}
	if update.VehicleType != nil {
		set["vehicle_type"] = *update.VehicleType
	}
	if update.Location != nil {
		set["location"] = *update.Location
	}
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var slot model.ParkingSlot
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %d", slotserrors.ErrNotFound, id)
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %v", slotserrors.ErrDuplicateSlotNumber, err)
		}
		return nil, fmt.Errorf("failed to update parking slot: %w", err)
	}
	return &slot, nil
}

// DeleteAvailable refuses to delete a slot that is bound to a request.
func (r *mongoParkingSlotRepository) DeleteAvailable(ctx context.Context, id int64) (*model.ParkingSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	var slot model.ParkingSlot
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id, "status": model.SlotAvailable}).Decode(&slot)
	if err == nil {
		return &slot, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to delete parking slot: %w", err)
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %d", slotserrors.ErrSlotInUse, id)
}

func (r *mongoParkingSlotRepository) Claim(ctx context.Context, criteria model.SlotCriteria) (*model.ParkingSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"status":       model.SlotAvailable,
		"vehicle_type": criteria.VehicleType,
		"size":         criteria.Size,
	}
	update := bson.M{"$set": bson.M{"status": model.SlotUnavailable}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetReturnDocument(options.After)

	var slot model.ParkingSlot
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s/%s", slotserrors.ErrNoCompatibleSlot, criteria.VehicleType, criteria.Size)
		}
		return nil, fmt.Errorf("failed to claim parking slot: %w", err)
	}
	return &slot, nil
}

func (r *mongoParkingSlotRepository) Release(ctx context.Context, id int64) (*model.ParkingSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "status": model.SlotUnavailable}
	update := bson.M{"$set": bson.M{"status": model.SlotAvailable}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var slot model.ParkingSlot
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: slot %d is not unavailable", slotserrors.ErrStateChanged, id)
		}
		return nil, fmt.Errorf("failed to release parking slot: %w", err)
	}
	return &slot, nil
}

func (r *mongoParkingSlotRepository) FindRepresentative(ctx context.Context, criteria model.SlotCriteria) (*model.ParkingSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"vehicle_type": criteria.VehicleType,
		"size":         criteria.Size,
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})

	var slot model.ParkingSlot
	err := r.collection.FindOne(ctx, filter, opts).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s/%s", slotserrors.ErrNotFound, criteria.VehicleType, criteria.Size)
		}
		return nil, fmt.Errorf("failed to find representative slot: %w", err)
	}
	return &slot, nil
}
