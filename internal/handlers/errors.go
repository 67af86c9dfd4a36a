package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"donezo/internal/logger"
	"donezo/internal/service"
)

// handleServiceError writes the response for a service failure. Messages are
// generic; internal error text is logged, never returned.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, resource service.Resource) {
	log := logger.FromContext(r.Context())

	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		log.Error("HTTP: unexpected service error", zap.Error(err), zap.String("path", r.URL.Path))
		responseWithJSON(w, http.StatusInternalServerError,
			toPayload("error", "Internal server error"),
			toPayload("code", service.CodeInternal),
		)
		return
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)
	if statusCode >= http.StatusInternalServerError {
		log.Error("HTTP: internal error", zap.Error(err), zap.String("path", r.URL.Path))
		responseWithJSON(w, statusCode,
			toPayload("error", "Internal server error"),
			toPayload("code", businessErr.Code),
		)
		return
	}

	log.Warn("HTTP: business error",
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode),
		zap.Any("details", businessErr.Details))

	responseWithJSON(w, statusCode,
		toPayload("error", genericMessage(businessErr.Code, resource)),
		toPayload("code", businessErr.Code),
		toPayload("details", businessErr.Details),
	)
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func genericMessage(code string, resource service.Resource) string {
	noun := "Task"
	if resource == service.ResourceUser {
		noun = "User"
	}
	switch code {
	case service.CodeNotFound:
		return noun + " not found"
	case service.CodeValidation:
		return "Invalid " + string(resource) + " data"
	}
	return "Request failed"
}
