package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkly/pkg/config"
	"parkly/pkg/logger"
	"parkly/pkg/notification"
)

type ackRecord struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ackRecord) Ack(uint64, bool) error { a.acked = true; return nil }

func (a *ackRecord) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *ackRecord) Reject(_ uint64, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

type fakeMailer struct {
	sent []notification.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg notification.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("send without deadline")
	}
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newNotifier(mailer notification.Mailer) *NotifierService {
	return &NotifierService{
		queue:  "notifications",
		mailer: mailer,
		cfg:    &config.Config{Log: logger.Nop(), NotificationTimeout: time.Second},
	}
}

func delivery(t *testing.T, ack *ackRecord, msg any, redelivered bool) amqp.Delivery {
	t.Helper()
	body, ok := msg.([]byte)
	if !ok {
		var err error
		body, err = json.Marshal(msg)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body, Redelivered: redelivered}
}

func approval() notification.Message {
	return notification.RenderApproval(notification.ApprovalNotice{
		RequestID:   3,
		Email:       "owner@example.com",
		SlotNumber:  "A1",
		Location:    "Level 1",
		PlateNumber: "RAA123A",
	})
}

func TestHandle_AcksSentMail(t *testing.T) {
	mailer := &fakeMailer{}
	ack := &ackRecord{}

	newNotifier(mailer).handle(context.Background(), delivery(t, ack, approval(), false))

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "owner@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Body, "Assigned slot: A1")
}

func TestHandle_Failures(t *testing.T) {
	noRecipient := approval()
	noRecipient.To = ""

	tests := []struct {
		name        string
		msg         any
		mailErr     error
		redelivered bool
		wantRequeue bool
	}{
		{"undecodable body", []byte("<xml/>"), nil, false, false},
		{"missing recipient", noRecipient, nil, false, false},
		{"first send failure", approval(), errors.New("421 service not available"), false, true},
		{"repeated send failure", approval(), errors.New("421 service not available"), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &fakeMailer{err: tt.mailErr}
			ack := &ackRecord{}

			newNotifier(mailer).handle(context.Background(), delivery(t, ack, tt.msg, tt.redelivered))

			assert.False(t, ack.acked)
			assert.True(t, ack.nacked)
			assert.Equal(t, tt.wantRequeue, ack.requeue)
			assert.Empty(t, mailer.sent)
		})
	}
}

func TestHandle_SendsAfterConsumerStops(t *testing.T) {
	mailer := &fakeMailer{}
	ack := &ackRecord{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	newNotifier(mailer).handle(ctx, delivery(t, ack, approval(), false))

	assert.True(t, ack.acked)
	assert.Len(t, mailer.sent, 1)
}
