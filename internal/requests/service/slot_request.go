package service

import (
	"context"
	"errors"
	"net/http"
	"sync"

	requestserrors "parkly/internal/requests/errors"
	"parkly/internal/requests/repository"
	"parkly/internal/requests/validator"
	"parkly/pkg/audit"
	"parkly/pkg/auth"
	"parkly/pkg/config"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/model"
)

type SlotRequestService interface {
	Create(ctx context.Context, caller auth.Identity, in *model.SlotRequestCreate) (*model.SlotRequest, error)
	GetByID(ctx context.Context, caller auth.Identity, id int64) (*model.SlotRequest, error)
	GetAll(ctx context.Context, caller auth.Identity, status string, limit int, offset int64) ([]*model.SlotRequest, int64, error)
	Update(ctx context.Context, caller auth.Identity, id int64, in *model.SlotRequestUpdate) (*model.SlotRequest, error)
	Delete(ctx context.Context, caller auth.Identity, id int64) error
}

type slotRequestService struct {
	repo      repository.SlotRequestRepository
	vehicles  repository.VehicleRepository
	validator *validator.SlotRequestValidator
	audit     audit.Recorder
	cfg       *config.Config
}

func NewSlotRequestService(
	repo repository.SlotRequestRepository,
	vehicles repository.VehicleRepository,
	validator *validator.SlotRequestValidator,
	recorder audit.Recorder,
	cfg *config.Config,
) SlotRequestService {
	return &slotRequestService{
		repo:      repo,
		vehicles:  vehicles,
		validator: validator,
		audit:     recorder,
		cfg:       cfg,
	}
}

func (s *slotRequestService) Create(ctx context.Context, caller auth.Identity, in *model.SlotRequestCreate) (*model.SlotRequest, error) {
	if err := s.validator.ValidateCreate(in); err != nil {
		return nil, validationError("Slot request validation failed", err)
	}

	vehicle, err := s.ownedVehicle(ctx, caller, in.VehicleID)
	if err != nil {
		return nil, err
	}

	req := &model.SlotRequest{
		UserID:    caller.UserID,
		VehicleID: vehicle.ID,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		s.cfg.Log.Error("Failed to create slot request",
			"user_id", caller.UserID,
			"vehicle_id", vehicle.ID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create slot request", err)
	}

	s.cfg.Log.Info("Slot request created",
		"id", req.ID,
		"user_id", req.UserID,
		"vehicle_id", req.VehicleID,
	)
	audit.RecordDetached(ctx, s.audit, s.cfg.AuditTimeout, s.cfg.Log, caller.UserID, audit.RequestCreated(vehicle.PlateNumber))

	return req, nil
}

// GetByID hides other users' requests behind a plain not found.
func (s *slotRequestService) GetByID(ctx context.Context, caller auth.Identity, id int64) (*model.SlotRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, requestserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Slot request", id)
		}
		s.cfg.Log.Error("Failed to get slot request by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve slot request", err)
	}

	if !caller.IsAdmin() && req.UserID != caller.UserID {
		return nil, apperrors.NotFoundWithID("Slot request", id)
	}
	return req, nil
}

func (s *slotRequestService) GetAll(ctx context.Context, caller auth.Identity, status string, limit int, offset int64) ([]*model.SlotRequest, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var filter model.SlotRequestFilter
	if status != "" {
		parsed, err := model.ParseRequestStatus(status)
		if err != nil {
			return nil, 0, apperrors.InvalidInput("invalid status parameter: " + status)
		}
		filter.Status = parsed
	}
	if !caller.IsAdmin() {
		userID := caller.UserID
		filter.UserID = &userID
	}

	var count int64
	var requests []*model.SlotRequest
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
			s.cfg.Log.Error("Failed to count slot requests", "error", err)
			errCount = apperrors.Internal("Failed to count slot requests", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		requests, err = s.repo.FindAll(ctx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get all slot requests",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve slot requests", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return requests, count, nil
}

func (s *slotRequestService) Update(ctx context.Context, caller auth.Identity, id int64, in *model.SlotRequestUpdate) (*model.SlotRequest, error) {
	if err := s.validator.ValidateUpdate(in); err != nil {
		return nil, validationError("Slot request validation failed", err)
	}

	if _, err := s.ownedVehicle(ctx, caller, in.VehicleID); err != nil {
		return nil, err
	}

	req, err := s.repo.UpdatePending(ctx, id, caller.UserID, in.VehicleID)
	if err != nil {
		if errors.Is(err, requestserrors.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "Slot request not found or not editable", http.StatusNotFound)
		}
		s.cfg.Log.Error("Failed to update slot request",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update slot request", err)
	}

	s.cfg.Log.Info("Slot request updated",
		"id", id,
		"vehicle_id", in.VehicleID,
	)
	audit.RecordDetached(ctx, s.audit, s.cfg.AuditTimeout, s.cfg.Log, caller.UserID, audit.RequestUpdated(id))

	return req, nil
}

func (s *slotRequestService) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	if err := s.repo.DeletePending(ctx, id, caller.UserID); err != nil {
		if errors.Is(err, requestserrors.ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "Slot request not found or not deletable", http.StatusNotFound)
		}
		s.cfg.Log.Error("Failed to delete slot request",
			"id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to delete slot request", err)
	}

	s.cfg.Log.Info("Slot request deleted", "id", id)
	audit.RecordDetached(ctx, s.audit, s.cfg.AuditTimeout, s.cfg.Log, caller.UserID, audit.RequestDeleted(id))

	return nil
}

func (s *slotRequestService) ownedVehicle(ctx context.Context, caller auth.Identity, vehicleID int64) (*model.Vehicle, error) {
	vehicle, err := s.vehicles.FindOwned(ctx, vehicleID, caller.UserID)
	if err != nil {
		if errors.Is(err, requestserrors.ErrVehicleNotFound) {
			return nil, apperrors.NotFoundWithID("Vehicle", vehicleID)
		}
		s.cfg.Log.Error("Failed to look up vehicle",
			"vehicle_id", vehicleID,
			"user_id", caller.UserID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to look up vehicle", err)
	}
	return vehicle, nil
}

func validationError(message string, err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		return apperrors.Validation(message, errs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
