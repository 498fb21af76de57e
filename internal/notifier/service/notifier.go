// Package service drains the notification queue and hands each notice to a
// mailer. Deliveries are acknowledged manually: only a sent mail is acked.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"parkly/pkg/config"
	"parkly/pkg/notification"
)

const prefetchCount = 8

var ErrDeliveriesClosed = errors.New("notification deliveries channel closed")

type NotifierService struct {
	ch     *amqp.Channel
	queue  string
	mailer notification.Mailer
	cfg    *config.Config
}

func NewNotifierService(conn *amqp.Connection, queue string, mailer notification.Mailer, cfg *config.Config) (*NotifierService, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := notification.DeclareQueue(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	return &NotifierService{ch: ch, queue: queue, mailer: mailer, cfg: cfg}, nil
}

// Run consumes until ctx is cancelled or the broker closes the channel.
func (s *NotifierService) Run(ctx context.Context) error {
	deliveries, err := s.ch.ConsumeWithContext(ctx, s.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", s.queue, err)
	}

	s.cfg.Log.Info("Notifier consuming", "queue", s.queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			s.handle(ctx, d)
		}
	}
}

func (s *NotifierService) Close() error {
	return s.ch.Close()
}

// handle acks sent mail, drops malformed notices and requeues a failed send
// once. A redelivered notice that fails again is dropped.
func (s *NotifierService) handle(ctx context.Context, d amqp.Delivery) {
	var msg notification.Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		s.cfg.Log.Warn("Dropping undecodable notification", "delivery_tag", d.DeliveryTag, "error", err)
		s.nack(d, false)
		return
	}
	if err := msg.Validate(); err != nil {
		s.cfg.Log.Warn("Dropping invalid notification", "request_id", msg.RequestID, "error", err)
		s.nack(d, false)
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sendTimeout())
	err := s.mailer.Send(sendCtx, msg)
	cancel()
	if err != nil {
		requeue := !d.Redelivered
		s.cfg.Log.Error("Failed to send notification",
			"kind", msg.Kind,
			"request_id", msg.RequestID,
			"redelivered", d.Redelivered,
			"requeue", requeue,
			"error", err,
		)
		s.nack(d, requeue)
		return
	}

	if err := d.Ack(false); err != nil {
		s.cfg.Log.Error("Failed to ack notification", "request_id", msg.RequestID, "error", err)
		return
	}
	s.cfg.Log.Info("Notification sent", "kind", msg.Kind, "request_id", msg.RequestID)
}

func (s *NotifierService) nack(d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		s.cfg.Log.Error("Failed to nack notification", "delivery_tag", d.DeliveryTag, "error", err)
	}
}

func (s *NotifierService) sendTimeout() time.Duration {
	if s.cfg.NotificationTimeout <= 0 {
		return config.DefaultNotificationTimeout
	}
	return s.cfg.NotificationTimeout
}
