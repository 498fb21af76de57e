// Package audit records who did what. Records are published to Kafka and
// persisted by the audit-logs service.
package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"parkly/pkg/kafka"
	"parkly/pkg/logger"
	"parkly/pkg/middleware"
)

const (
	EventType     = "audit.recorded"
	SchemaVersion = "1"
)

type Recorder interface {
	Record(ctx context.Context, actorID int64, action string) error
}

type Event struct {
	ActorID    int64     `json:"actor_id"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaRecorder struct {
	producer Publisher
	source   string
	now      func() time.Time
}

func NewKafkaRecorder(producer Publisher, source string) *KafkaRecorder {
	return &KafkaRecorder{producer: producer, source: source, now: time.Now}
}

func (r *KafkaRecorder) Record(ctx context.Context, actorID int64, action string) error {
	msg, err := kafka.NewMessage().
		WithKey(strconv.FormatInt(actorID, 10)).
		WithValue(Event{ActorID: actorID, Action: action, OccurredAt: r.now().UTC()}).
		WithEventType(EventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(r.source).
		WithCorrelationID(middleware.RequestIDFrom(ctx)).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build audit message: %w", err)
	}

	if err := r.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish audit record: %w", err)
	}
	return nil
}

// RecordDetached appends action on a context detached from the caller's
// cancellation and bounded by timeout. Failures are logged and dropped.
func RecordDetached(ctx context.Context, r Recorder, timeout time.Duration, log *logger.Logger, actorID int64, action string) {
	if r == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := r.Record(ctx, actorID, action); err != nil {
		log.Warn("Failed to record audit entry",
			"actor_id", actorID,
			"action", action,
			"error", err,
		)
	}
}

// Actions, worded the way the audit trail has always shown them.

func RequestCreated(plate string) string {
	return fmt.Sprintf("Slot request created for vehicle %s", plate)
}

func RequestUpdated(id int64) string {
	return fmt.Sprintf("Slot request %d updated", id)
}

func RequestDeleted(id int64) string {
	return fmt.Sprintf("Slot request %d deleted", id)
}

func RequestApproved(id int64, slotNumber, emailStatus string) string {
	return fmt.Sprintf("Slot request %d approved, assigned slot %s, email %s", id, slotNumber, emailStatus)
}

func RequestRejected(id int64, reason, emailStatus string) string {
	return fmt.Sprintf("Slot request %d rejected with reason: %s, email %s", id, reason, emailStatus)
}

func RequestReleased(id int64, slotNumber string) string {
	return fmt.Sprintf("Slot request %d released slot %s", id, slotNumber)
}

func SlotsCreated(n int) string {
	return fmt.Sprintf("Bulk created %d slots", n)
}

func SlotUpdated(slotNumber string) string {
	return fmt.Sprintf("Slot %s updated", slotNumber)
}

func SlotDeleted(slotNumber string) string {
	return fmt.Sprintf("Slot %s deleted", slotNumber)
}
