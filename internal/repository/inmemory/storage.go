package inmemory

import (
	"context"
	"sync"
	"time"

	"dario.cat/mergo"
	"go.uber.org/zap"

	"donezo/internal/logger"
	"donezo/internal/models/task"
	"donezo/internal/models/user"
	"donezo/internal/repository"
)

var _ repository.Storage = (*Storage)(nil)

// Storage keeps users and tasks in process memory. Task ids come from a single
// counter that only grows, so deleted ids are never handed out again.
type Storage struct {
	mtx    sync.RWMutex
	users  map[string]*user.User
	tasks  map[int64]*task.Task
	nextID int64
	now    func() time.Time
}

type Option func(*Storage)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

func NewStorage(options ...Option) *Storage {
	s := &Storage{
		users:  make(map[string]*user.User),
		tasks:  make(map[int64]*task.Task),
		nextID: 1,
		now:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: in-memory storage is healthy")
	return nil
}

func (s *Storage) Close() {}

func (s *Storage) GetUser(ctx context.Context, id string) (*user.User, bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, false, nil
	}
	return u.Clone(), true, nil
}

// GetUserByEmail scans all users; duplicates are allowed and the earliest
// created one wins.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var found *user.User
	for _, u := range s.users {
		if u.Email != email {
			continue
		}
		if found == nil || u.CreatedAt.Before(found.CreatedAt) ||
			(u.CreatedAt.Equal(found.CreatedAt) && u.ID < found.ID) {
			found = u
		}
	}
	if found == nil {
		return nil, false, nil
	}
	return found.Clone(), true, nil
}

func (s *Storage) UpsertUser(ctx context.Context, incoming *user.User) (*user.User, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	data := incoming.Clone()
	data.NormalizeAvatar()

	existing, ok := s.users[data.ID]
	if !ok {
		data.CreatedAt = s.now()
		s.users[data.ID] = data
		logger.Debug("Repository: user created", zap.String("user_id", data.ID))
		return data.Clone(), nil
	}

	merged := existing.Clone()
	if err := mergo.Merge(merged, data, mergo.WithOverride); err != nil {
		logger.Error("Repository: user merge failed", err, zap.String("user_id", data.ID))
		return nil, err
	}
	// id and createdAt never move on upsert
	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt
	merged = merged.Clone()

	s.users[data.ID] = merged
	logger.Debug("Repository: user merged", zap.String("user_id", data.ID))
	return merged.Clone(), nil
}

func (s *Storage) GetAllTasks(ctx context.Context) ([]*task.Task, error) {
	return s.collect(func(*task.Task) bool { return true }), nil
}

func (s *Storage) GetTask(ctx context.Context, id int64) (*task.Task, bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, false, nil
	}
	return t.Clone(), true, nil
}

func (s *Storage) GetTasksByOwner(ctx context.Context, ownerID string) ([]*task.Task, error) {
	return s.collect(func(t *task.Task) bool { return t.OwnerID == ownerID }), nil
}

func (s *Storage) GetTasksBySharedUser(ctx context.Context, email string) ([]*task.Task, error) {
	return s.collect(func(t *task.Task) bool { return t.IsSharedWith(email) }), nil
}

func (s *Storage) CreateTask(ctx context.Context, data *task.Task) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	created := data.Clone()
	created.ApplyDefaults()
	created.ID = s.nextID
	s.nextID++

	now := s.now()
	created.CreatedAt = now
	created.UpdatedAt = now

	s.tasks[created.ID] = created
	return created.Clone(), nil
}

func (s *Storage) UpdateTask(ctx context.Context, id int64, patch task.Patch) (*task.Task, bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.tasks[id]
	if !ok {
		return nil, false, nil
	}

	updated := existing.Clone()
	patch.Apply(updated)
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	now := s.now()
	if now.Before(existing.UpdatedAt) {
		now = existing.UpdatedAt
	}
	updated.UpdatedAt = now

	s.tasks[id] = updated
	return updated.Clone(), true, nil
}

func (s *Storage) DeleteTask(ctx context.Context, id int64) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}

func (s *Storage) collect(match func(*task.Task) bool) []*task.Task {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, t := range s.tasks {
		if match(t) {
			res = append(res, t.Clone())
		}
	}
	repository.SortNewestFirst(res)
	return res
}
