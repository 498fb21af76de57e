package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"parkly/internal/auditlogs/service"
	"parkly/pkg/auth"
	httputil "parkly/pkg/http"
	"parkly/pkg/logger"
)

type AuditLogHandler struct {
	service service.AuditLogService
	log     *logger.Logger
}

func NewAuditLogHandler(service service.AuditLogService, log *logger.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		service: service,
		log:     log,
	}
}

func (h *AuditLogHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	entries, total, err := h.service.GetAll(r.Context(), r.URL.Query().Get("search"), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, entries, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *AuditLogHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AuditLogHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/logs", auth.RequireAdmin(h.log, h.GetAll))
}
