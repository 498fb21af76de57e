package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkly/internal/requests/repository/memory"
	"parkly/internal/slots/service"
	"parkly/internal/slots/validator"
	"parkly/pkg/auth"
	"parkly/pkg/config"
	"parkly/pkg/logger"
	"parkly/pkg/model"
)

var (
	admin  = auth.Identity{UserID: 1, Role: auth.RoleAdmin}
	driver = auth.Identity{UserID: 2, Role: auth.RoleUser}
)

func setupRouter() (*httprouter.Router, *memory.Store) {
	store := memory.NewStore()
	cfg := &config.Config{Log: logger.Nop(), ReadTimeout: 5 * time.Second, AuditTimeout: time.Second}
	svc := service.NewParkingSlotService(store.SlotRepo(), validator.NewParkingSlotValidator(), nil, cfg)

	router := httprouter.New()
	NewParkingSlotHandler(svc, cfg.Log).RegisterRoutes(router)
	return router, store
}

func request(router http.Handler, method, path, body string, id auth.Identity) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req = req.WithContext(auth.WithIdentity(req.Context(), id))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBulkCreate(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		caller auth.Identity
		status int
	}{
		{"admin creates", `{"slots":[{"slot_number":"A1","size":"small","vehicle_type":"car","location":"Yard"}]}`, admin, http.StatusCreated},
		{"driver forbidden", `{"slots":[{"slot_number":"A2","size":"small","vehicle_type":"car","location":"Yard"}]}`, driver, http.StatusForbidden},
		{"unknown field", `{"slots":[],"extra":1}`, admin, http.StatusBadRequest},
		{"invalid size", `{"slots":[{"slot_number":"A3","size":"xl","vehicle_type":"car","location":"Yard"}]}`, admin, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := setupRouter()
			rec := request(router, http.MethodPost, "/api/v1/parking-slots/bulk", tt.body, tt.caller)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestGetByID_HidesTakenSlotsFromDrivers(t *testing.T) {
	router, store := setupRouter()
	taken := store.AddSlot(model.ParkingSlot{SlotNumber: "A1", Status: model.SlotUnavailable})

	rec := request(router, http.MethodGet, "/api/v1/parking-slots/id/1", "", driver)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = request(router, http.MethodGet, "/api/v1/parking-slots/id/1", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), taken.SlotNumber)
}

func TestDelete_TakenSlotConflicts(t *testing.T) {
	router, store := setupRouter()
	store.AddSlot(model.ParkingSlot{SlotNumber: "A1", Status: model.SlotUnavailable})
	store.AddSlot(model.ParkingSlot{SlotNumber: "A2"})

	rec := request(router, http.MethodDelete, "/api/v1/parking-slots/id/1", "", admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = request(router, http.MethodDelete, "/api/v1/parking-slots/id/2", "", admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, store.AllSlots(), 1)
}
