package repository

import (
	"cmp"
	"context"
	"slices"

	"donezo/internal/models/task"
	"donezo/internal/models/user"
)

type Kind string

const InMemory Kind = "inmemory"
const Postgres Kind = "postgres"

// Storage is the contract the service layer relies on regardless of backing
// store. Lookups report absence through the boolean result; the error result
// is reserved for unexpected faults.
type Storage interface {
	GetUser(ctx context.Context, id string) (*user.User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error)
	UpsertUser(ctx context.Context, u *user.User) (*user.User, error)

	GetAllTasks(ctx context.Context) ([]*task.Task, error)
	GetTask(ctx context.Context, id int64) (*task.Task, bool, error)
	GetTasksByOwner(ctx context.Context, ownerID string) ([]*task.Task, error)
	GetTasksBySharedUser(ctx context.Context, email string) ([]*task.Task, error)
	CreateTask(ctx context.Context, t *task.Task) (*task.Task, error)
	UpdateTask(ctx context.Context, id int64, patch task.Patch) (*task.Task, bool, error)
	DeleteTask(ctx context.Context, id int64) (bool, error)

	HealthCheck(ctx context.Context) error
	Close()
}

// SortNewestFirst orders tasks by creation time descending, newer ids first on ties.
func SortNewestFirst(tasks []*task.Task) {
	slices.SortStableFunc(tasks, func(a, b *task.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
