package app

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo"

	httputil "parkly/pkg/http"
	"parkly/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ReadinessCheck returns nil when the dependency it guards is usable.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks []ReadinessCheck
	log    *logger.Logger
}

func NewHealthHandler(mongoClient *mongo.Client, log *logger.Logger, extra ...ReadinessCheck) *HealthHandler {
	var checks []ReadinessCheck
	if mongoClient != nil {
		checks = append(checks, ReadinessCheck{
			Name:  "database",
			Check: func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
		})
	}
	return &HealthHandler{
		checks: append(checks, extra...),
		log:    log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := http.StatusOK
	resp := HealthResponse{Status: "ready", Checks: make(map[string]string, len(h.checks))}

	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.log.Error("Readiness check failed",
				"check", c.Name,
				"error", err,
				"path", r.URL.Path,
			)
			resp.Checks[c.Name] = "error"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	if err := httputil.WriteJSON(w, status, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
