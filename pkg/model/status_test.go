package model

import (
	"encoding/json"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestRequestStatus_Valid(t *testing.T) {
	tests := []struct {
		status   RequestStatus
		valid    bool
		terminal bool
	}{
		{RequestPending, true, false},
		{RequestApproved, true, true},
		{RequestRejected, true, true},
		{RequestStatus("cancelled"), false, false},
		{RequestStatus(""), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestRequestStatus_UnmarshalJSONRejectsUnknown(t *testing.T) {
	var req SlotRequest
	err := json.Unmarshal([]byte(`{"id":1,"status":"archived"}`), &req)
	if err == nil {
		t.Fatal("expected error for unknown status")
	}

	if err := json.Unmarshal([]byte(`{"id":1,"status":"approved"}`), &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != RequestApproved {
		t.Errorf("expected approved, got %s", req.Status)
	}
}

func TestSlotStatus_BSONDecodeRejectsUnknown(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"_id": int64(7), "status": "occupied"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var slot ParkingSlot
	if err := bson.Unmarshal(raw, &slot); err == nil {
		t.Fatal("expected decode error for unknown slot status")
	}

	raw, err = bson.Marshal(bson.M{"_id": int64(7), "status": SlotUnavailable})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := bson.Unmarshal(raw, &slot); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if slot.Status != SlotUnavailable {
		t.Errorf("expected unavailable, got %s", slot.Status)
	}
}

func TestSlotRequest_Bound(t *testing.T) {
	slotID := int64(3)
	req := &SlotRequest{Status: RequestApproved, SlotID: &slotID}
	if !req.Bound() {
		t.Error("approved request with slot should be bound")
	}

	req.ReleasedAt = new(time.Time)
	if req.Bound() {
		t.Error("released request should not be bound")
	}

	pending := &SlotRequest{Status: RequestPending}
	if pending.Bound() {
		t.Error("pending request should not be bound")
	}
}
