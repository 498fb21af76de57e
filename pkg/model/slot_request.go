package model

import (
	"time"
)

type SlotRequest struct {
	ID              int64         `json:"id" bson:"_id"`
	UserID          int64         `json:"user_id" bson:"user_id"`
	VehicleID       int64         `json:"vehicle_id" bson:"vehicle_id"`
	Status          RequestStatus `json:"status" bson:"status"`
	SlotID          *int64        `json:"slot_id" bson:"slot_id"`
	SlotNumber      *string       `json:"slot_number" bson:"slot_number"`
	RequestedAt     time.Time     `json:"requested_at" bson:"requested_at"`
	ApprovedAt      *time.Time    `json:"approved_at,omitempty" bson:"approved_at,omitempty"`
	RejectedAt      *time.Time    `json:"rejected_at,omitempty" bson:"rejected_at,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
	ReleasedAt      *time.Time    `json:"released_at,omitempty" bson:"released_at,omitempty"`
	ProcessedBy     *int64        `json:"processed_by,omitempty" bson:"processed_by,omitempty"`
}

// Bound reports whether the request currently holds its slot.
func (r *SlotRequest) Bound() bool {
	return r.Status == RequestApproved && r.SlotID != nil && r.ReleasedAt == nil
}

// SlotRequestDetails is a pending request joined with the data the engine
// needs to match and notify.
type SlotRequestDetails struct {
	SlotRequest `bson:",inline"`

	VehicleType string `json:"vehicle_type" bson:"vehicle_type"`
	Size        string `json:"size" bson:"size"`
	PlateNumber string `json:"plate_number" bson:"plate_number"`
	Email       string `json:"email" bson:"email"`
}

type SlotRequestCreate struct {
	VehicleID int64 `json:"vehicle_id" validate:"required,gt=0"`
}

type SlotRequestUpdate struct {
	VehicleID int64 `json:"vehicle_id" validate:"required,gt=0"`
}

type SlotRequestFilter struct {
	UserID *int64
	Status RequestStatus
}

type RejectInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type ApprovalResult struct {
	Request     *SlotRequest `json:"request"`
	Slot        *ParkingSlot `json:"slot"`
	EmailStatus EmailStatus  `json:"email_status"`
}

type RejectionResult struct {
	Request     *SlotRequest `json:"request"`
	EmailStatus EmailStatus  `json:"email_status"`
}
