package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkly/internal/requests/repository/memory"
	"parkly/internal/slots/validator"
	"parkly/pkg/auth"
	"parkly/pkg/config"
	apperrors "parkly/pkg/errors"
	"parkly/pkg/logger"
	"parkly/pkg/model"
)

type recorder struct {
	actions []string
}

func (r *recorder) Record(_ context.Context, _ int64, action string) error {
	r.actions = append(r.actions, action)
	return nil
}

var (
	admin  = auth.Identity{UserID: 1, Role: auth.RoleAdmin}
	driver = auth.Identity{UserID: 2, Role: auth.RoleUser}
)

func newService(store *memory.Store, rec *recorder) ParkingSlotService {
	cfg := &config.Config{
		Log:          logger.Nop(),
		ReadTimeout:  5 * time.Second,
		AuditTimeout: time.Second,
	}
	return NewParkingSlotService(store.SlotRepo(), validator.NewParkingSlotValidator(), rec, cfg)
}

func code(err error) string {
	return apperrors.AsAppError(err).Code
}

func TestBulkCreate_SanitizesAndStartsAvailable(t *testing.T) {
	store := memory.NewStore()
	rec := &recorder{}
	svc := newService(store, rec)

	slots, err := svc.BulkCreate(context.Background(), admin, &model.ParkingSlotBulkCreate{Slots: []model.ParkingSlotInput{
		{SlotNumber: " a 1 ", Size: "Medium", VehicleType: " CAR ", Location: "Level   1"},
		{SlotNumber: "a2", Size: "small", VehicleType: "car", Location: "Level 1"},
	}})
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Equal(t, "A1", slots[0].SlotNumber)
	assert.Equal(t, "medium", slots[0].Size)
	assert.Equal(t, "car", slots[0].VehicleType)
	assert.Equal(t, "Level 1", slots[0].Location)
	assert.Equal(t, slots[0].ID+1, slots[1].ID)
	for _, s := range store.AllSlots() {
		assert.Equal(t, model.SlotAvailable, s.Status)
	}
	assert.Equal(t, []string{"Bulk created 2 slots"}, rec.actions)
}

func TestBulkCreate_Rejections(t *testing.T) {
	store := memory.NewStore()
	store.AddSlot(model.ParkingSlot{SlotNumber: "B1", Size: "small", VehicleType: "car", Location: "Yard"})
	svc := newService(store, &recorder{})

	tests := []struct {
		name  string
		slots []model.ParkingSlotInput
		code  string
	}{
		{"empty batch", nil, apperrors.CodeValidation},
		{"bad size", []model.ParkingSlotInput{{SlotNumber: "C1", Size: "huge", VehicleType: "car", Location: "Yard"}}, apperrors.CodeValidation},
		{"duplicate in batch", []model.ParkingSlotInput{
			{SlotNumber: "C1", Size: "small", VehicleType: "car", Location: "Yard"},
			{SlotNumber: "c1", Size: "small", VehicleType: "car", Location: "Yard"},
		}, apperrors.CodeValidation},
		{"existing slot number", []model.ParkingSlotInput{{SlotNumber: "B1", Size: "small", VehicleType: "car", Location: "Yard"}}, apperrors.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.BulkCreate(context.Background(), admin, &model.ParkingSlotBulkCreate{Slots: tt.slots})
			require.Error(t, err)
			assert.Equal(t, tt.code, code(err))
		})
	}
	assert.Len(t, store.AllSlots(), 1)
}

func TestGetAll_DriversSeeOnlyAvailable(t *testing.T) {
	store := memory.NewStore()
	store.AddSlot(model.ParkingSlot{SlotNumber: "A1"})
	taken := store.AddSlot(model.ParkingSlot{SlotNumber: "A2", Status: model.SlotUnavailable})
	store.AddSlot(model.ParkingSlot{SlotNumber: "A3"})
	svc := newService(store, &recorder{})
	ctx := context.Background()

	slots, total, err := svc.GetAll(ctx, driver, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, s := range slots {
		assert.Equal(t, model.SlotAvailable, s.Status)
	}

	_, total, err = svc.GetAll(ctx, admin, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	_, err = svc.GetByID(ctx, driver, taken.ID)
	assert.Equal(t, apperrors.CodeNotFound, code(err))
	_, err = svc.GetByID(ctx, admin, taken.ID)
	assert.NoError(t, err)
}

func TestUpdate_KeepsStatus(t *testing.T) {
	store := memory.NewStore()
	slot := store.AddSlot(model.ParkingSlot{SlotNumber: "A1", Size: "small", VehicleType: "car", Location: "Yard", Status: model.SlotUnavailable})
	store.AddSlot(model.ParkingSlot{SlotNumber: "A2"})
	rec := &recorder{}
	svc := newService(store, rec)
	ctx := context.Background()

	location := "  North   gate "
	updated, err := svc.Update(ctx, admin, slot.ID, &model.ParkingSlotUpdate{Location: &location})
	require.NoError(t, err)
	assert.Equal(t, "North gate", updated.Location)
	assert.Equal(t, model.SlotUnavailable, updated.Status)
	assert.Equal(t, []string{"Slot A1 updated"}, rec.actions)

	taken := "a2"
	_, err = svc.Update(ctx, admin, slot.ID, &model.ParkingSlotUpdate{SlotNumber: &taken})
	assert.Equal(t, apperrors.CodeConflict, code(err))

	_, err = svc.Update(ctx, admin, slot.ID, &model.ParkingSlotUpdate{})
	assert.Equal(t, apperrors.CodeValidation, code(err))

	_, err = svc.Update(ctx, admin, 99, &model.ParkingSlotUpdate{Location: &location})
	assert.Equal(t, apperrors.CodeNotFound, code(err))
}

func TestDelete_OnlyAvailableSlots(t *testing.T) {
	store := memory.NewStore()
	free := store.AddSlot(model.ParkingSlot{SlotNumber: "A1"})
	held := store.AddSlot(model.ParkingSlot{SlotNumber: "A2", Status: model.SlotUnavailable})
	rec := &recorder{}
	svc := newService(store, rec)
	ctx := context.Background()

	err := svc.Delete(ctx, admin, held.ID)
	assert.Equal(t, apperrors.CodeConflict, code(err))

	require.NoError(t, svc.Delete(ctx, admin, free.ID))
	assert.Equal(t, []string{"Slot A1 deleted"}, rec.actions)

	err = svc.Delete(ctx, admin, free.ID)
	assert.Equal(t, apperrors.CodeNotFound, code(err))
}
