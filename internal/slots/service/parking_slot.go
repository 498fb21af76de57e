package service

import (
	"context"
	"errors"
	"sync"

	slotserrors "parkly/internal/slots/errors"
	"parkly/internal/slots/repository"
	"parkly/internal/slots/validator"
	"parkly/pkg/audit"
	"parkly/pkg/auth"
	"parkly/pkg/config"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/model"
	"parkly/pkg/sanitizer"
)

type ParkingSlotService interface {
	BulkCreate(ctx context.Context, actor auth.Identity, in *model.ParkingSlotBulkCreate) ([]*model.ParkingSlot, error)
	GetByID(ctx context.Context, caller auth.Identity, id int64) (*model.ParkingSlot, error)
	GetAll(ctx context.Context, caller auth.Identity, limit int, offset int64) ([]*model.ParkingSlot, int64, error)
	Update(ctx context.Context, actor auth.Identity, id int64, in *model.ParkingSlotUpdate) (*model.ParkingSlot, error)
	Delete(ctx context.Context, actor auth.Identity, id int64) error
}

type parkingSlotService struct {
	repo      repository.ParkingSlotRepository
	validator *validator.ParkingSlotValidator
	audit     audit.Recorder
	cfg       *config.Config
}

func NewParkingSlotService(
	repo repository.ParkingSlotRepository,
	validator *validator.ParkingSlotValidator,
	recorder audit.Recorder,
	cfg *config.Config,
) ParkingSlotService {
	return &parkingSlotService{
		repo:      repo,
		validator: validator,
		audit:     recorder,
		cfg:       cfg,
	}
}

func (s *parkingSlotService) BulkCreate(ctx context.Context, actor auth.Identity, in *model.ParkingSlotBulkCreate) ([]*model.ParkingSlot, error) {
	for i := range in.Slots {
		s.sanitize(&in.Slots[i])
	}

	if err := s.validator.ValidateBulk(in); err != nil {
		s.cfg.Log.Warn("Parking slot validation failed",
			"count", len(in.Slots),
			"error", err,
		)
		return nil, validationError("Parking slot validation failed", err)
	}

	slots := make([]*model.ParkingSlot, 0, len(in.Slots))
	for _, input := range in.Slots {
		slots = append(slots, &model.ParkingSlot{
			SlotNumber:  input.SlotNumber,
			Size:        input.Size,
			VehicleType: input.VehicleType,
			Location:    input.Location,
		})
	}

	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		return s.repo.BulkCreate(txCtx, slots)
	})
	if err != nil {
		if errors.Is(err, slotserrors.ErrDuplicateSlotNumber) {
			return nil, apperrors.Conflict("Slot number already exists")
		}
		s.cfg.Log.Error("Failed to create parking slots",
			"count", len(slots),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create parking slots", err)
	}

	s.cfg.Log.Info("Parking slots created",
		"count", len(slots),
		"first_id", slots[0].ID,
		"actor_id", actor.UserID,
	)
	audit.RecordDetached(ctx, s.audit, s.cfg.AuditTimeout, s.cfg.Log, actor.UserID, audit.SlotsCreated(len(slots)))

	return slots, nil
}

func (s *parkingSlotService) GetByID(ctx context.Context, caller auth.Identity, id int64) (*model.ParkingSlot, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Parking slot", id)
		}
		s.cfg.Log.Error("Failed to get parking slot by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve parking slot", err)
	}

	if !caller.IsAdmin() && slot.Status != model.SlotAvailable {
		return nil, apperrors.NotFoundWithID("Parking slot", id)
	}
	return slot, nil
}

// GetAll shows non-admin callers only the slots they could still be given.
func (s *parkingSlotService) GetAll(ctx context.Context, caller auth.Identity, limit int, offset int64) ([]*model.ParkingSlot, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var filter model.SlotFilter
	if !caller.IsAdmin() {
		filter.Status = model.SlotAvailable
	}

	var count int64
	var slots []*model.ParkingSlot
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		count, err = s.repo.Count(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count parking slots", "error", err)
			errCount = apperrors.Internal("Failed to count parking slots", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		slots, err = s.repo.FindAll(ctx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get all parking slots",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve parking slots", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return slots, count, nil
}

// Update never touches status. Occupancy only moves through approval and
// release.
func (s *parkingSlotService) Update(ctx context.Context, actor auth.Identity, id int64, in *model.ParkingSlotUpdate) (*model.ParkingSlot, error) {
	s.sanitizeUpdate(in)

	if err := s.validator.ValidateUpdate(in); err != nil {
		return nil, validationError("Parking slot validation failed", err)
	}

	slot, err := s.repo.Update(ctx, id, in)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Parking slot", id)
		}
		if errors.Is(err, slotserrors.ErrDuplicateSlotNumber) {
			return nil, apperrors.Conflict("Slot number already exists")
		}
		s.cfg.Log.Error("Failed to update parking slot",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update parking slot", err)
	}

	s.cfg.Log.Info("Parking slot updated",
		"id", id,
		"slot_number", slot.SlotNumber,
	)
	audit.RecordDetached(ctx, s.audit, s.cfg.AuditTimeout, s.cfg.Log, actor.UserID, audit.SlotUpdated(slot.SlotNumber))

	return slot, nil
}

func (s *parkingSlotService) Delete(ctx context.Context, actor auth.Identity, id int64) error {
	slot, err := s.repo.DeleteAvailable(ctx, id)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Parking slot", id)
		}
		if errors.Is(err, slotserrors.ErrSlotInUse) {
			return apperrors.Conflict("Parking slot is assigned to an approved request")
		}
		s.cfg.Log.Error("Failed to delete parking slot",
			"id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to delete parking slot", err)
	}

	s.cfg.Log.Info("Parking slot deleted",
		"id", id,
		"slot_number", slot.SlotNumber,
	)
	audit.RecordDetached(ctx, s.audit, s.cfg.AuditTimeout, s.cfg.Log, actor.UserID, audit.SlotDeleted(slot.SlotNumber))

	return nil
}

func (s *parkingSlotService) sanitize(in *model.ParkingSlotInput) {
	in.SlotNumber = sanitizer.SanitizeSlotNumber(in.SlotNumber)
	in.Size = sanitizer.SanitizeCategory(in.Size)
	in.VehicleType = sanitizer.SanitizeCategory(in.VehicleType)
	in.Location = sanitizer.NormalizeLocation(in.Location)
}

func (s *parkingSlotService) sanitizeUpdate(in *model.ParkingSlotUpdate) {
	if in.SlotNumber != nil {
		v := sanitizer.SanitizeSlotNumber(*in.SlotNumber)
		in.SlotNumber = &v
	}
	if in.Size != nil {
		v := sanitizer.SanitizeCategory(*in.Size)
		in.Size = &v
	}
	if in.VehicleType != nil {
		v := sanitizer.SanitizeCategory(*in.VehicleType)
		in.VehicleType = &v
	}
	if in.Location != nil {
		v := sanitizer.NormalizeLocation(*in.Location)
		in.Location = &v
	}
}

func validationError(message string, err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		return apperrors.Validation(message, errs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
