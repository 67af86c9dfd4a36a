package dto

import (
	"time"

	"donezo/internal/models/task"
	"donezo/internal/models/user"
)

type CreateTaskRequest struct {
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Priority    task.Priority `json:"priority"`
	Status      task.Status   `json:"status"`
	DueDate     *time.Time    `json:"dueDate"`
	OwnerID     string        `json:"ownerId"`
	SharedWith  []string      `json:"sharedWith"`
}

func (r CreateTaskRequest) ToTask() *task.Task {
	return &task.Task{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Status:      r.Status,
		DueDate:     r.DueDate,
		OwnerID:     r.OwnerID,
		SharedWith:  r.SharedWith,
	}
}

// UpdateTaskRequest keeps track of which keys were present. Keys such as id
// or createdAt have no field here and are ignored.
type UpdateTaskRequest struct {
	Title       task.Nullable[string]        `json:"title"`
	Description task.Nullable[string]        `json:"description"`
	Priority    task.Nullable[task.Priority] `json:"priority"`
	Status      task.Nullable[task.Status]   `json:"status"`
	DueDate     task.Nullable[time.Time]     `json:"dueDate"`
	OwnerID     task.Nullable[string]        `json:"ownerId"`
	SharedWith  task.Nullable[[]string]      `json:"sharedWith"`
}

func (r UpdateTaskRequest) ToPatch() task.Patch {
	return task.Patch{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Status:      r.Status,
		DueDate:     r.DueDate,
		OwnerID:     r.OwnerID,
		SharedWith:  r.SharedWith,
	}
}

type UpsertUserRequest struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
}

func (r UpsertUserRequest) ToUser() *user.User {
	return &user.User{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		AvatarURL: r.AvatarURL,
	}
}

type TaskResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
	OwnerID     string     `json:"ownerId"`
	SharedWith  []string   `json:"sharedWith"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func FromTask(t *task.Task) TaskResponse {
	shared := t.SharedWith
	if shared == nil {
		shared = []string{}
	}
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		DueDate:     t.DueDate,
		OwnerID:     t.OwnerID,
		SharedWith:  shared,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

func FromUser(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}
