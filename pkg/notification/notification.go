// Package notification delivers approval and rejection notices to vehicle
// owners, either by queueing them on RabbitMQ for the notifier service or by
// sending mail directly over SMTP.
package notification

import (
	"context"
	"fmt"
	"time"
)

type Gateway interface {
	SendApproval(ctx context.Context, notice ApprovalNotice) error
	SendRejection(ctx context.Context, notice RejectionNotice) error
}

type ApprovalNotice struct {
	RequestID   int64  `json:"request_id"`
	Email       string `json:"email"`
	SlotNumber  string `json:"slot_number"`
	Location    string `json:"location"`
	PlateNumber string `json:"plate_number"`
}

type RejectionNotice struct {
	RequestID   int64  `json:"request_id"`
	Email       string `json:"email"`
	PlateNumber string `json:"plate_number"`
	Location    string `json:"location"`
	Reason      string `json:"reason"`
}

const (
	KindApproval  = "approval"
	KindRejection = "rejection"
)

// Message is the rendered notice as it travels over the queue.
type Message struct {
	Kind      string    `json:"kind"`
	RequestID int64     `json:"request_id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func RenderApproval(n ApprovalNotice) Message {
	location := n.Location
	if location == "" {
		location = "unknown"
	}
	return Message{
		Kind:      KindApproval,
		RequestID: n.RequestID,
		To:        n.Email,
		Subject:   "Parking slot request approved",
		Body: fmt.Sprintf(
			"Your parking request for vehicle %s has been approved.\n\nAssigned slot: %s\nLocation: %s\n",
			n.PlateNumber, n.SlotNumber, location,
		),
		CreatedAt: time.Now().UTC(),
	}
}

func RenderRejection(n RejectionNotice) Message {
	location := n.Location
	if location == "" {
		location = "unknown"
	}
	return Message{
		Kind:      KindRejection,
		RequestID: n.RequestID,
		To:        n.Email,
		Subject:   "Parking slot request rejected",
		Body: fmt.Sprintf(
			"Your parking request for vehicle %s has been rejected.\n\nReason: %s\nRequested location: %s\n",
			n.PlateNumber, n.Reason, location,
		),
		CreatedAt: time.Now().UTC(),
	}
}

func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("notification %d has no recipient", m.RequestID)
	}
	if m.Kind != KindApproval && m.Kind != KindRejection {
		return fmt.Errorf("notification %d has unknown kind %q", m.RequestID, m.Kind)
	}
	return nil
}
