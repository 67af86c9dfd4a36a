package handlers

import (
	"context"

	"donezo/internal/models/task"
	"donezo/internal/models/user"
	"donezo/internal/service"
)

type Service interface {
	HealthCheck(ctx context.Context) error

	UpsertUser(ctx context.Context, u *user.User) (*user.User, error)
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	ListTasks(ctx context.Context, q service.Query) ([]*task.Task, error)
	GetTask(ctx context.Context, id int64) (*task.Task, error)
	CreateTask(ctx context.Context, t *task.Task) (*task.Task, error)
	UpdateTask(ctx context.Context, id int64, patch task.Patch) (*task.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

var _ Service = (*service.TaskService)(nil)
