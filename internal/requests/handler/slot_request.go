package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"parkly/internal/requests/service"
	"parkly/pkg/auth"
	httputil "parkly/pkg/http"
	"parkly/pkg/logger"
	"parkly/pkg/model"
)

type ApprovalResponse struct {
	Message     string             `json:"message"`
	Slot        *model.ParkingSlot `json:"slot"`
	Request     *model.SlotRequest `json:"request"`
	EmailStatus model.EmailStatus  `json:"email_status"`
}

type RejectionResponse struct {
	Message     string             `json:"message"`
	Request     *model.SlotRequest `json:"request"`
	EmailStatus model.EmailStatus  `json:"email_status"`
}

type ReleaseResponse struct {
	Message string             `json:"message"`
	Request *model.SlotRequest `json:"request"`
}

type SlotRequestHandler struct {
	requests   service.SlotRequestService
	allocation service.AllocationService
	log        *logger.Logger
}

func NewSlotRequestHandler(requests service.SlotRequestService, allocation service.AllocationService, log *logger.Logger) *SlotRequestHandler {
	return &SlotRequestHandler{
		requests:   requests,
		allocation: allocation,
		log:        log,
	}
}

func (h *SlotRequestHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := auth.Caller(r.Context())
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var in model.SlotRequestCreate
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	req, err := h.requests.Create(r.Context(), caller, &in)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, req); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *SlotRequestHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

	req, err := h.requests.GetByID(r.Context(), caller, id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, req); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotRequestHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
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

	requests, total, err := h.requests.GetAll(r.Context(), caller, r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, requests, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *SlotRequestHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

	var in model.SlotRequestUpdate
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	req, err := h.requests.Update(r.Context(), caller, id, &in)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, req); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotRequestHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

	if err := h.requests.Delete(r.Context(), caller, id); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SlotRequestHandler) Approve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := auth.Caller(r.Context())
	if err != nil {
		h.writeError(w, "Approve", err)
		return
	}

	id, err := httputil.ParamID(ps, "id")
	if err != nil {
		h.writeError(w, "Approve", err)
		return
	}

	result, err := h.allocation.Approve(r.Context(), id, caller.UserID)
	if err != nil {
		h.writeError(w, "Approve", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, ApprovalResponse{
		Message:     "Request approved",
		Slot:        result.Slot,
		Request:     result.Request,
		EmailStatus: result.EmailStatus,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Approve", "operation", "WriteJSON", "error", err)
	}
}

// Reject accepts an empty body. A missing reason is reported by the
// allocation service.
func (h *SlotRequestHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := auth.Caller(r.Context())
	if err != nil {
		h.writeError(w, "Reject", err)
		return
	}

	id, err := httputil.ParamID(ps, "id")
	if err != nil {
		h.writeError(w, "Reject", err)
		return
	}

	var in model.RejectInput
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &in); err != nil {
			h.writeError(w, "Reject", err)
			return
		}
	}

	result, err := h.allocation.Reject(r.Context(), id, caller.UserID, in.Reason)
	if err != nil {
		h.writeError(w, "Reject", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, RejectionResponse{
		Message:     "Request rejected",
		Request:     result.Request,
		EmailStatus: result.EmailStatus,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Reject", "operation", "WriteJSON", "error", err)
	}
}

func (h *SlotRequestHandler) Release(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := auth.Caller(r.Context())
	if err != nil {
		h.writeError(w, "Release", err)
		return
	}

	id, err := httputil.ParamID(ps, "id")
	if err != nil {
		h.writeError(w, "Release", err)
		return
	}

	req, err := h.allocation.Release(r.Context(), id, caller.UserID)
	if err != nil {
		h.writeError(w, "Release", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, ReleaseResponse{
		Message: "Slot released",
		Request: req,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Release", "operation", "WriteJSON", "error", err)
	}
}

func (h *SlotRequestHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *SlotRequestHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/slot-requests", h.Create)
	router.GET("/api/v1/slot-requests", h.GetAll)
	router.GET("/api/v1/slot-requests/id/:id", h.GetByID)
	router.PATCH("/api/v1/slot-requests/id/:id", h.Update)
	router.DELETE("/api/v1/slot-requests/id/:id", h.Delete)

	router.POST("/api/v1/slot-requests/id/:id/approve", auth.RequireAdmin(h.log, h.Approve))
	router.POST("/api/v1/slot-requests/id/:id/reject", auth.RequireAdmin(h.log, h.Reject))
	router.POST("/api/v1/slot-requests/id/:id/release", auth.RequireAdmin(h.log, h.Release))
}
