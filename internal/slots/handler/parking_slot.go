package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"parkly/internal/slots/service"
	"parkly/pkg/auth"
	httputil "parkly/pkg/http"
	"parkly/pkg/logger"
	"parkly/pkg/model"
)

type ParkingSlotHandler struct {
	service service.ParkingSlotService
	log     *logger.Logger
}

func NewParkingSlotHandler(service service.ParkingSlotService, log *logger.Logger) *ParkingSlotHandler {
	return &ParkingSlotHandler{
		service: service,
		log:     log,
	}
}

func (h *ParkingSlotHandler) BulkCreate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := auth.Caller(r.Context())
	if err != nil {
		h.writeError(w, "BulkCreate", err)
		return
	}

	var in model.ParkingSlotBulkCreate
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, "BulkCreate", err)
		return
	}

	slots, err := h.service.BulkCreate(r.Context(), caller, &in)
	if err != nil {
		h.writeError(w, "BulkCreate", err)
		return
	}

	if err := httputil.WriteCreated(w, slots); err != nil {
		h.log.Error("failed to write created response", "handler", "BulkCreate", "operation", "WriteCreated", "error", err)
	}
}

func (h *ParkingSlotHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := auth.Caller(r.Context())
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	id, err := httputil.ParamID(ps, "id")
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	slot, err := h.service.GetByID(r.Context(), caller, id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ParkingSlotHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := auth.Caller(r.Context())
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	slots, total, err := h.service.GetAll(r.Context(), caller, limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, slots, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *ParkingSlotHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := auth.Caller(r.Context())
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	id, err := httputil.ParamID(ps, "id")
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var in model.ParkingSlotUpdate
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	slot, err := h.service.Update(r.Context(), caller, id, &in)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ParkingSlotHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := auth.Caller(r.Context())
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	id, err := httputil.ParamID(ps, "id")
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), caller, id); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ParkingSlotHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ParkingSlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/parking-slots/bulk", auth.RequireAdmin(h.log, h.BulkCreate))
	router.GET("/api/v1/parking-slots", h.GetAll)
	router.GET("/api/v1/parking-slots/id/:id", h.GetByID)
	router.PATCH("/api/v1/parking-slots/id/:id", auth.RequireAdmin(h.log, h.Update))
	router.DELETE("/api/v1/parking-slots/id/:id", auth.RequireAdmin(h.log, h.Delete))
}
