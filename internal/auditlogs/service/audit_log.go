package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"parkly/internal/auditlogs/repository"
	"parkly/pkg/audit"
	"parkly/pkg/config"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/kafka"
	"parkly/pkg/model"
)

const maxSearchLength = 100

type AuditLogService interface {
	GetAll(ctx context.Context, search string, limit int, offset int64) ([]*model.AuditEntry, int64, error)
	// HandleMessage persists one audit event consumed from Kafka.
	HandleMessage(ctx context.Context, msg kafka.Message) error
}

type auditLogService struct {
	repo repository.AuditLogRepository
	cfg  *config.Config
	now  func() time.Time
}

func NewAuditLogService(repo repository.AuditLogRepository, cfg *config.Config) AuditLogService {
	return &auditLogService{
		repo: repo,
		cfg:  cfg,
		now:  time.Now,
	}
}

func (s *auditLogService) GetAll(ctx context.Context, search string, limit int, offset int64) ([]*model.AuditEntry, int64, error) {
	search = strings.TrimSpace(search)
	if len(search) > maxSearchLength {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("search must be at most %d characters", maxSearchLength))
	}

	var (
		wg       sync.WaitGroup
		entries  []*model.AuditEntry
		count    int64
		countErr error
		findErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		count, countErr = s.repo.Count(ctx, search)
	}()
	go func() {
		defer wg.Done()
		entries, findErr = s.repo.FindAll(ctx, search, limit, offset)
	}()
	wg.Wait()

	if countErr != nil {
		s.cfg.Log.Error("failed to count audit entries", "error", countErr)
		return nil, 0, apperrors.Internal("Failed to count audit entries", countErr)
	}
	if findErr != nil {
		s.cfg.Log.Error("failed to list audit entries", "error", findErr)
		return nil, 0, apperrors.Internal("Failed to list audit entries", findErr)
	}
	return entries, count, nil
}

func (s *auditLogService) HandleMessage(ctx context.Context, msg kafka.Message) error {
	if eventType := msg.GetEventType(); eventType != "" && eventType != audit.EventType {
		return kafka.NewPermanentError(fmt.Sprintf("unexpected event type %q", eventType), kafka.ErrInvalidMessage)
	}

	var event audit.Event
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError("failed to decode audit event", err)
	}
	if strings.TrimSpace(event.Action) == "" {
		return kafka.NewPermanentError("audit event has no action", kafka.ErrInvalidMessage)
	}

	entry := &model.AuditEntry{
		ID:        msg.GetEventID(),
		ActorID:   event.ActorID,
		Action:    event.Action,
		CreatedAt: s.createdAt(event.OccurredAt),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return kafka.NewTransientError("failed to persist audit event", err)
	}

	s.cfg.Log.Debug("Audit entry stored",
		"event_id", entry.ID,
		"actor_id", entry.ActorID,
		"partition", msg.Partition,
		"offset", msg.Offset,
	)
	return nil
}

func (s *auditLogService) createdAt(occurred time.Time) time.Time {
	if occurred.IsZero() {
		occurred = s.now()
	}
	return occurred.UTC().Truncate(time.Millisecond)
}
