package model

import "time"

type ParkingSlot struct {
	ID          int64      `json:"id" bson:"_id"`
	SlotNumber  string     `json:"slot_number" bson:"slot_number" validate:"required,min=1,max=20"`
	Size        string     `json:"size" bson:"size" validate:"required,oneof=small medium large"`
	VehicleType string     `json:"vehicle_type" bson:"vehicle_type" validate:"required,min=2,max=30"`
	Location    string     `json:"location" bson:"location" validate:"required,min=2,max=100"`
	Status      SlotStatus `json:"status" bson:"status"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
}

type ParkingSlotInput struct {
	SlotNumber  string `json:"slot_number" validate:"required,min=1,max=20"`
	Size        string `json:"size" validate:"required,oneof=small medium large"`
	VehicleType string `json:"vehicle_type" validate:"required,min=2,max=30"`
	Location    string `json:"location" validate:"required,min=2,max=100"`
}

type ParkingSlotBulkCreate struct {
	Slots []ParkingSlotInput `json:"slots" validate:"required,min=1,max=500,dive"`
}

type ParkingSlotUpdate struct {
	SlotNumber  *string `json:"slot_number,omitempty" validate:"omitempty,min=1,max=20"`
	Size        *string `json:"size,omitempty" validate:"omitempty,oneof=small medium large"`
	VehicleType *string `json:"vehicle_type,omitempty" validate:"omitempty,min=2,max=30"`
	Location    *string `json:"location,omitempty" validate:"omitempty,min=2,max=100"`
}

// SlotCriteria is the compatibility key used to match a vehicle to a slot.
type SlotCriteria struct {
	VehicleType string
	Size        string
}

// SlotFilter narrows slot listings. A zero Status lists every slot.
type SlotFilter struct {
	Status SlotStatus
}
