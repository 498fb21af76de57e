package model

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// RequestStatus is the lifecycle state of a SlotRequest. Pending is the only
// non-terminal value.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

func ParseRequestStatus(s string) (RequestStatus, error) {
	status := RequestStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("invalid request status %q", s)
	}
	return status, nil
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	}
	return false
}

func (s RequestStatus) Terminal() bool {
	return s == RequestApproved || s == RequestRejected
}

func (s RequestStatus) String() string {
	return string(s)
}

func (s *RequestStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRequestStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s RequestStatus) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(string(s))
}

func (s *RequestStatus) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("request status must be a string, got %s", t)
	}
	parsed, err := ParseRequestStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SlotStatus is the occupancy state of a ParkingSlot.
type SlotStatus string

const (
	SlotAvailable   SlotStatus = "available"
	SlotUnavailable SlotStatus = "unavailable"
)

func ParseSlotStatus(s string) (SlotStatus, error) {
	status := SlotStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("invalid slot status %q", s)
	}
	return status, nil
}

func (s SlotStatus) Valid() bool {
	return s == SlotAvailable || s == SlotUnavailable
}

func (s SlotStatus) String() string {
	return string(s)
}

func (s *SlotStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSlotStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s SlotStatus) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(string(s))
}

func (s *SlotStatus) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("slot status must be a string, got %s", t)
	}
	parsed, err := ParseSlotStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// EmailStatus reports the outcome of a best-effort notification.
type EmailStatus string

const (
	EmailSent   EmailStatus = "sent"
	EmailFailed EmailStatus = "failed"
)
