package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"donezo/internal/handlers/dto"
	"donezo/internal/logger"
	"donezo/internal/service"
)

type TaskHandler struct {
	service Service
}

func NewTaskHandler(svc Service) *TaskHandler {
	return &TaskHandler{service: svc}
}

// Routes mounts the task endpoints under the router it is given.
func (h *TaskHandler) Routes(r chi.Router) {
	r.Get("/", h.ListTasks)
	r.Post("/", h.CreateTask)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetTask)
		r.Patch("/", h.UpdateTask)
		r.Delete("/", h.DeleteTask)
	})
}

// ListTasks handles GET /api/tasks?view=&ownerId=&sharedWith=
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	query := r.URL.Query()

	view, err := service.ParseView(query.Get("view"))
	if err != nil {
		handleServiceError(w, r, err, service.ResourceTask)
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), service.Query{
		OwnerID:    query.Get("ownerId"),
		SharedWith: query.Get("sharedWith"),
		View:       view,
	})
	if err != nil {
		handleServiceError(w, r, err, service.ResourceTask)
		return
	}

	logger.FromContext(r.Context()).Info("HTTP_OUT: tasks listed",
		zap.Int("count", len(tasks)),
		zap.String("view", string(view)),
		zap.Duration("ms", time.Since(start)))

	writeJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseTaskID(r)
	if err != nil {
		h.invalidID(w, r, err)
		return
	}

	t, err := h.service.GetTask(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, service.ResourceTask)
		return
	}

	writeJSON(w, http.StatusOK, dto.FromTask(t))
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var request dto.CreateTaskRequest
	if err := decodeJSON(w, r, &request); err != nil {
		h.invalidBody(w, r, err)
		return
	}

	created, err := h.service.CreateTask(r.Context(), request.ToTask())
	if err != nil {
		handleServiceError(w, r, err, service.ResourceTask)
		return
	}

	logger.FromContext(r.Context()).Info("HTTP_OUT: task created",
		zap.Int64("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	writeJSON(w, http.StatusCreated, dto.FromTask(created))
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := parseTaskID(r)
	if err != nil {
		h.invalidID(w, r, err)
		return
	}

	var request dto.UpdateTaskRequest
	if err := decodeJSON(w, r, &request); err != nil {
		h.invalidBody(w, r, err)
		return
	}

	updated, err := h.service.UpdateTask(r.Context(), id, request.ToPatch())
	if err != nil {
		handleServiceError(w, r, err, service.ResourceTask)
		return
	}

	logger.FromContext(r.Context()).Info("HTTP_OUT: task updated",
		zap.Int64("task_id", id),
		zap.Duration("ms", time.Since(start)))

	writeJSON(w, http.StatusOK, dto.FromTask(updated))
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseTaskID(r)
	if err != nil {
		h.invalidID(w, r, err)
		return
	}

	if err := h.service.DeleteTask(r.Context(), id); err != nil {
		handleServiceError(w, r, err, service.ResourceTask)
		return
	}

	logger.FromContext(r.Context()).Info("HTTP_OUT: task deleted", zap.Int64("task_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) invalidID(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).Warn("HTTP: invalid task id",
		zap.Error(err),
		zap.String("client_ip", r.RemoteAddr))
	responseWithJSON(w, http.StatusBadRequest,
		toPayload("error", "Invalid task ID"),
		toPayload("code", service.CodeValidation),
	)
}

func (h *TaskHandler) invalidBody(w http.ResponseWriter, r *http.Request, err error) {
	writeBodyError(w, r, err, "Invalid task data")
}

func writeBodyError(w http.ResponseWriter, r *http.Request, err error, message string) {
	logger.FromContext(r.Context()).Warn("HTTP: failed to read JSON",
		zap.Error(err),
		zap.String("client_ip", r.RemoteAddr))

	if errors.Is(err, errUnsupportedMediaType) {
		responseWithJSON(w, http.StatusUnsupportedMediaType,
			toPayload("error", errUnsupportedMediaType.Error()),
			toPayload("code", service.CodeValidation),
		)
		return
	}
	responseWithJSON(w, http.StatusBadRequest,
		toPayload("error", message),
		toPayload("code", service.CodeValidation),
	)
}
