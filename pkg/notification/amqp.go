package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"parkly/pkg/logger"
)

// AMQPGateway enqueues rendered notices. A successful send means the broker
// accepted the message, not that mail was delivered.
type AMQPGateway struct {
	mu    sync.Mutex
	ch    *amqp.Channel
	queue string
	log   *logger.Logger
}

func NewAMQPGateway(conn *amqp.Connection, queue string, log *logger.Logger) (*AMQPGateway, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareQueue(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return &AMQPGateway{ch: ch, queue: queue, log: log}, nil
}

func DeclareQueue(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return nil
}

func (g *AMQPGateway) SendApproval(ctx context.Context, notice ApprovalNotice) error {
	return g.publish(ctx, RenderApproval(notice))
}

func (g *AMQPGateway) SendRejection(ctx context.Context, notice RejectionNotice) error {
	return g.publish(ctx, RenderRejection(notice))
}

func (g *AMQPGateway) publish(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	// amqp channels are not safe for concurrent publishing.
	g.mu.Lock()
	defer g.mu.Unlock()

	err = g.ch.PublishWithContext(ctx, "", g.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         msg.Kind,
		Timestamp:    msg.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	g.log.Debug("Notification queued", "kind", msg.Kind, "request_id", msg.RequestID, "queue", g.queue)
	return nil
}

func (g *AMQPGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ch.Close()
}
