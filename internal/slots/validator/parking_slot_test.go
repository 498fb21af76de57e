package validator

import (
	"errors"
	"strings"
	"testing"

	"parkly/pkg/model"
)

func TestValidateBulk(t *testing.T) {
	v := NewParkingSlotValidator()

	valid := model.ParkingSlotInput{SlotNumber: "A1", Size: "small", VehicleType: "car", Location: "Yard"}
	if err := v.ValidateBulk(&model.ParkingSlotBulkCreate{Slots: []model.ParkingSlotInput{valid}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := valid
	bad.Size = "xl"
	err := v.ValidateBulk(&model.ParkingSlotBulkCreate{Slots: []model.ParkingSlotInput{valid, bad}})

	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if len(errs) != 1 || errs[0].Field != "slots[1].size" {
		t.Errorf("unexpected errors: %+v", errs)
	}
	if !strings.Contains(errs[0].Message, "small medium large") {
		t.Errorf("message should list allowed sizes, got %q", errs[0].Message)
	}
}

func TestValidateBulk_DuplicateSlotNumbers(t *testing.T) {
	v := NewParkingSlotValidator()
	s := model.ParkingSlotInput{SlotNumber: "A1", Size: "small", VehicleType: "car", Location: "Yard"}

	err := v.ValidateBulk(&model.ParkingSlotBulkCreate{Slots: []model.ParkingSlotInput{s, s}})
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if errs[0].Field != "slots[1].slot_number" {
		t.Errorf("unexpected field %q", errs[0].Field)
	}
}

func TestValidateUpdate(t *testing.T) {
	v := NewParkingSlotValidator()

	if err := v.ValidateUpdate(&model.ParkingSlotUpdate{}); err == nil {
		t.Error("expected error for empty update")
	}

	size := "medium"
	if err := v.ValidateUpdate(&model.ParkingSlotUpdate{Size: &size}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	size = "tiny"
	if err := v.ValidateUpdate(&model.ParkingSlotUpdate{Size: &size}); err == nil {
		t.Error("expected error for unknown size")
	}
}
