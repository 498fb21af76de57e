package service

import (
	"context"
	"errors"
	"strings"
	"time"

	requestserrors "parkly/internal/requests/errors"
	"parkly/internal/requests/repository"
	"parkly/internal/requests/validator"
	slotserrors "parkly/internal/slots/errors"
	slotsrepo "parkly/internal/slots/repository"
	"parkly/pkg/audit"
	"parkly/pkg/config"
	mongotx "parkly/pkg/db/mongo"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/model"
	"parkly/pkg/notification"
	"parkly/pkg/sanitizer"
)

const unknownLocation = "unknown"

// AllocationService moves slot requests out of pending and keeps parking
// slot occupancy in step with them.
type AllocationService interface {
	Approve(ctx context.Context, requestID, adminID int64) (*model.ApprovalResult, error)
	Reject(ctx context.Context, requestID, adminID int64, reason string) (*model.RejectionResult, error)
	Release(ctx context.Context, requestID, adminID int64) (*model.SlotRequest, error)
}

type allocationService struct {
	requests  repository.SlotRequestRepository
	slots     slotsrepo.ParkingSlotRepository
	notifier  notification.Gateway
	audit     audit.Recorder
	validator *validator.SlotRequestValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewAllocationService(
	requests repository.SlotRequestRepository,
	slots slotsrepo.ParkingSlotRepository,
	notifier notification.Gateway,
	recorder audit.Recorder,
	validator *validator.SlotRequestValidator,
	cfg *config.Config,
) AllocationService {
	return &allocationService{
		requests:  requests,
		slots:     slots,
		notifier:  notifier,
		audit:     recorder,
		validator: validator,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *allocationService) Approve(ctx context.Context, requestID, adminID int64) (*model.ApprovalResult, error) {
	details, err := s.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	criteria := model.SlotCriteria{VehicleType: details.VehicleType, Size: details.Size}
	maxAttempts := max(1, s.cfg.ApprovalMaxAttempts)

	var (
		request *model.SlotRequest
		slot    *model.ParkingSlot
	)
	for attempt := 1; ; attempt++ {
		err = s.requests.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			claimed, err := s.slots.Claim(txCtx, criteria)
			if err != nil {
				return err
			}
			approved, err := s.requests.MarkApproved(txCtx, requestID, claimed, adminID, s.now())
			if err != nil {
				return err
			}
			slot, request = claimed, approved
			return nil
		})
		if err == nil {
			break
		}
		if !retryableClaim(err) || attempt >= maxAttempts {
			return nil, s.approvalError(requestID, criteria, attempt, err)
		}
		s.cfg.Log.Warn("Slot claim lost a race, retrying",
			"request_id", requestID,
			"attempt", attempt,
			"error", err,
		)
	}

	s.cfg.Log.Info("Slot request approved",
		"request_id", requestID,
		"slot_id", slot.ID,
		"slot_number", slot.SlotNumber,
		"admin_id", adminID,
	)

	emailStatus := s.notify(ctx, requestID, func(ctx context.Context) error {
		return s.notifier.SendApproval(ctx, notification.ApprovalNotice{
			RequestID:   requestID,
			Email:       details.Email,
			SlotNumber:  slot.SlotNumber,
			Location:    slot.Location,
			PlateNumber: details.PlateNumber,
		})
	})
	s.record(ctx, adminID, audit.RequestApproved(requestID, slot.SlotNumber, string(emailStatus)))

	return &model.ApprovalResult{
		Request:     request,
		Slot:        slot,
		EmailStatus: emailStatus,
	}, nil
}

func retryableClaim(err error) bool {
	return errors.Is(err, mongotx.ErrTransactionConflict) || errors.Is(err, slotserrors.ErrStateChanged)
}

func (s *allocationService) approvalError(requestID int64, criteria model.SlotCriteria, attempts int, err error) error {
	switch {
	case errors.Is(err, slotserrors.ErrNoCompatibleSlot):
		s.cfg.Log.Info("No compatible slot for request",
			"request_id", requestID,
			"vehicle_type", criteria.VehicleType,
			"size", criteria.Size,
		)
		return apperrors.NoCompatibleSlot(criteria.VehicleType, criteria.Size)
	case errors.Is(err, requestserrors.ErrStateChanged):
		return apperrors.Conflict("Slot request was processed concurrently")
	case retryableClaim(err):
		s.cfg.Log.Warn("Giving up on slot claim",
			"request_id", requestID,
			"attempts", attempts,
			"error", err,
		)
		return apperrors.Conflict("Could not claim a parking slot, please retry")
	case apperrors.IsAppError(err):
		return err
	default:
		s.cfg.Log.Error("Failed to approve slot request",
			"request_id", requestID,
			"error", err,
		)
		return apperrors.Internal("Failed to approve slot request", err)
	}
}

func (s *allocationService) Reject(ctx context.Context, requestID, adminID int64, reason string) (*model.RejectionResult, error) {
	reason = sanitizer.NormalizeReason(reason)
	if reason == "" {
		return nil, apperrors.MissingField("reason", "Rejection reason is required")
	}
	if err := s.validator.ValidateReject(&model.RejectInput{Reason: reason}); err != nil {
		return nil, validationError("Rejection validation failed", err)
	}

	details, err := s.loadPending(ctx, requestID)
	if err != nil {
		return nil, err
	}

	request, err := s.requests.MarkRejected(ctx, requestID, reason, adminID, s.now())
	if err != nil {
		if errors.Is(err, requestserrors.ErrStateChanged) {
			return nil, apperrors.Conflict("Slot request was processed concurrently")
		}
		s.cfg.Log.Error("Failed to reject slot request",
			"request_id", requestID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to reject slot request", err)
	}

	s.cfg.Log.Info("Slot request rejected",
		"request_id", requestID,
		"admin_id", adminID,
	)

	location := s.representativeLocation(ctx, model.SlotCriteria{VehicleType: details.VehicleType, Size: details.Size})
	emailStatus := s.notify(ctx, requestID, func(ctx context.Context) error {
		return s.notifier.SendRejection(ctx, notification.RejectionNotice{
			RequestID:   requestID,
			Email:       details.Email,
			PlateNumber: details.PlateNumber,
			Location:    location,
			Reason:      reason,
		})
	})
	s.record(ctx, adminID, audit.RequestRejected(requestID, reason, string(emailStatus)))

	return &model.RejectionResult{
		Request:     request,
		EmailStatus: emailStatus,
	}, nil
}

// Release ends a booking. The request keeps its approved status and its
// slot becomes claimable again.
func (s *allocationService) Release(ctx context.Context, requestID, adminID int64) (*model.SlotRequest, error) {
	var request *model.SlotRequest
	err := s.requests.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		released, err := s.requests.MarkReleased(txCtx, requestID, s.now())
		if err != nil {
			return err
		}
		if released.SlotID == nil {
			return requestserrors.ErrNotFound
		}
		if _, err := s.slots.Release(txCtx, *released.SlotID); err != nil {
			return err
		}
		request = released
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, requestserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Slot request", requestID)
		case errors.Is(err, slotserrors.ErrStateChanged), errors.Is(err, mongotx.ErrTransactionConflict):
			return nil, apperrors.Conflict("Parking slot is not held by this request")
		default:
			s.cfg.Log.Error("Failed to release slot request",
				"request_id", requestID,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to release slot request", err)
		}
	}

	slotNumber := ""
	if request.SlotNumber != nil {
		slotNumber = *request.SlotNumber
	}
	s.cfg.Log.Info("Slot request released",
		"request_id", requestID,
		"slot_id", *request.SlotID,
		"admin_id", adminID,
	)
	s.record(ctx, adminID, audit.RequestReleased(requestID, slotNumber))

	return request, nil
}

func (s *allocationService) loadPending(ctx context.Context, requestID int64) (*model.SlotRequestDetails, error) {
	details, err := s.requests.FindPendingDetails(ctx, requestID)
	if err != nil {
		if errors.Is(err, requestserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Slot request", requestID)
		}
		s.cfg.Log.Error("Failed to load slot request",
			"request_id", requestID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to load slot request", err)
	}
	return details, nil
}

func (s *allocationService) representativeLocation(ctx context.Context, criteria model.SlotCriteria) string {
	slot, err := s.slots.FindRepresentative(ctx, criteria)
	if err != nil {
		if !errors.Is(err, slotserrors.ErrNotFound) {
			s.cfg.Log.Warn("Failed to look up slot location",
				"vehicle_type", criteria.VehicleType,
				"size", criteria.Size,
				"error", err,
			)
		}
		return unknownLocation
	}
	if strings.TrimSpace(slot.Location) == "" {
		return unknownLocation
	}
	return slot.Location
}

// notify runs after commit on a context the caller cannot cancel.
func (s *allocationService) notify(ctx context.Context, requestID int64, send func(context.Context) error) model.EmailStatus {
	if s.notifier == nil {
		return model.EmailFailed
	}

	timeout := s.cfg.NotificationTimeout
	if timeout <= 0 {
		timeout = config.DefaultNotificationTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := send(ctx); err != nil {
		s.cfg.Log.Warn("Failed to send notification",
			"request_id", requestID,
			"error", err,
		)
		return model.EmailFailed
	}
	return model.EmailSent
}

func (s *allocationService) record(ctx context.Context, actorID int64, action string) {
	timeout := s.cfg.AuditTimeout
	if timeout <= 0 {
		timeout = config.DefaultAuditTimeout
	}
	audit.RecordDetached(ctx, s.audit, timeout, s.cfg.Log, actorID, action)
}
