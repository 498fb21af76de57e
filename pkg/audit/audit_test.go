package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkly/pkg/kafka"
	"parkly/pkg/logger"
	"parkly/pkg/middleware"
)

type capturePublisher struct {
	msgs []kafka.Message
	err  error
}

func (c *capturePublisher) Publish(_ context.Context, msg kafka.Message) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

func TestKafkaRecorder_Record(t *testing.T) {
	pub := &capturePublisher{}
	rec := NewKafkaRecorder(pub, "slot-requests")
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	require.NoError(t, rec.Record(ctx, 7, RequestApproved(3, "A1", "sent")))
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, "7", msg.Key)
	assert.Equal(t, EventType, msg.GetEventType())
	assert.Equal(t, "req-1", msg.GetCorrelationID())
	assert.Equal(t, "slot-requests", msg.Headers[kafka.HeaderSource])

	var ev Event
	require.NoError(t, msg.DecodeValue(&ev))
	assert.Equal(t, int64(7), ev.ActorID)
	assert.Equal(t, "Slot request 3 approved, assigned slot A1, email sent", ev.Action)
	assert.True(t, ev.OccurredAt.Equal(fixed))
}

func TestKafkaRecorder_PublishError(t *testing.T) {
	rec := NewKafkaRecorder(&capturePublisher{err: errors.New("broker down")}, "x")
	err := rec.Record(context.Background(), 1, "a")
	assert.Error(t, err)
}

func TestActionWording(t *testing.T) {
	assert.Equal(t, "Slot request 5 rejected with reason: Full, email failed", RequestRejected(5, "Full", "failed"))
	assert.Equal(t, "Slot request created for vehicle RAB123C", RequestCreated("RAB123C"))
	assert.Equal(t, "Bulk created 4 slots", SlotsCreated(4))
}

func TestRecordDetached_IgnoresCallerCancellation(t *testing.T) {
	pub := &capturePublisher{}
	rec := NewKafkaRecorder(pub, "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	RecordDetached(ctx, rec, time.Second, logger.Nop(), 1, SlotsCreated(2))
	require.Len(t, pub.msgs, 1)
}

func TestRecordDetached_SwallowsErrors(t *testing.T) {
	rec := NewKafkaRecorder(&capturePublisher{err: errors.New("broker down")}, "x")
	assert.NotPanics(t, func() {
		RecordDetached(context.Background(), rec, time.Second, logger.Nop(), 1, SlotDeleted("A1"))
		RecordDetached(context.Background(), nil, time.Second, logger.Nop(), 1, SlotDeleted("A1"))
	})
}
