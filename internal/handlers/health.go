package handlers

import (
	"context"
	"net/http"
	"time"

	"donezo/internal/logger"
)

const serviceName = "donezo"

type HealthHandler struct {
	service Service
}

func NewHealthHandler(svc Service) *HealthHandler {
	return &HealthHandler{service: svc}
}

func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.HealthCheck(ctx); err != nil {
		logger.Error("HTTP: health check failed", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", serviceName),
		)
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", serviceName),
	)
}
