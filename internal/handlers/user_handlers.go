package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"donezo/internal/handlers/dto"
	"donezo/internal/logger"
	"donezo/internal/service"
)

type UserHandler struct {
	service Service
}

func NewUserHandler(svc Service) *UserHandler {
	return &UserHandler{service: svc}
}

func (h *UserHandler) Routes(r chi.Router) {
	r.Post("/", h.UpsertUser)
	r.Get("/", h.GetUserByEmail)
	r.Get("/{id}", h.GetUser)
}

// UpsertUser is called by the client after every sign-in.
func (h *UserHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var request dto.UpsertUserRequest
	if err := decodeJSON(w, r, &request); err != nil {
		writeBodyError(w, r, err, "Invalid user data")
		return
	}

	u, err := h.service.UpsertUser(r.Context(), request.ToUser())
	if err != nil {
		handleServiceError(w, r, err, service.ResourceUser)
		return
	}

	logger.FromContext(r.Context()).Info("HTTP_OUT: user stored", zap.String("user_id", u.ID))
	writeJSON(w, http.StatusOK, dto.FromUser(u))
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err, service.ResourceUser)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromUser(u))
}

// GetUserByEmail handles GET /api/users?email=
func (h *UserHandler) GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetUserByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		handleServiceError(w, r, err, service.ResourceUser)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromUser(u))
}
