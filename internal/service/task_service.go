package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"donezo/internal/events"
	"donezo/internal/logger"
	"donezo/internal/metrics"
	"donezo/internal/models/task"
	"donezo/internal/models/user"
	"donezo/internal/repository"
)

// Query selects which tasks ListTasks returns. OwnerID and SharedWith may be
// combined, in which case tasks matching either are returned once.
type Query struct {
	OwnerID    string
	SharedWith string
	View       View
}

type TaskService struct {
	repo      repository.Storage
	publisher events.Publisher
	now       func() time.Time
}

type Option func(*TaskService)

func WithClock(now func() time.Time) Option {
	return func(s *TaskService) {
		s.now = now
	}
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *TaskService) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

func NewTaskService(repo repository.Storage, options ...Option) *TaskService {
	s := &TaskService{
		repo:      repo,
		publisher: events.Noop{},
		now:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("service health check: %w", err)
	}
	return nil
}

func (s *TaskService) UpsertUser(ctx context.Context, u *user.User) (*user.User, error) {
	if err := ValidateUser(u); err != nil {
		return nil, err
	}

	saved, err := s.repo.UpsertUser(ctx, u)
	if err != nil {
		return nil, s.internal(ctx, ResourceUser, u.ID, "upsert_user", err)
	}
	return saved, nil
}

func (s *TaskService) GetUser(ctx context.Context, id string) (*user.User, error) {
	u, ok, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, s.internal(ctx, ResourceUser, id, "get_user", err)
	}
	if !ok {
		logger.FromContext(ctx).Info("Service: user not found", zap.String("user_id", id))
		return nil, NewNotFound(ResourceUser, id)
	}
	return u, nil
}

func (s *TaskService) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	if email == "" {
		return nil, NewValidationError("email", "must not be empty")
	}

	u, ok, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, s.internal(ctx, ResourceUser, email, "get_user_by_email", err)
	}
	if !ok {
		return nil, NewNotFound(ResourceUser, email)
	}
	return u, nil
}

func (s *TaskService) ListTasks(ctx context.Context, q Query) ([]*task.Task, error) {
	var (
		tasks []*task.Task
		err   error
	)

	switch {
	case q.OwnerID != "" && q.SharedWith != "":
		tasks, err = s.ownedOrShared(ctx, q.OwnerID, q.SharedWith)
	case q.OwnerID != "":
		tasks, err = s.repo.GetTasksByOwner(ctx, q.OwnerID)
	case q.SharedWith != "":
		tasks, err = s.repo.GetTasksBySharedUser(ctx, q.SharedWith)
	default:
		tasks, err = s.repo.GetAllTasks(ctx)
	}
	if err != nil {
		return nil, s.internal(ctx, ResourceTask, "*", "list_tasks", err)
	}

	return FilterTasks(tasks, q.View, s.now()), nil
}

func (s *TaskService) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	t, ok, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, s.internal(ctx, ResourceTask, idString(id), "get_task", err)
	}
	if !ok {
		return nil, NewNotFound(ResourceTask, idString(id))
	}
	return t, nil
}

func (s *TaskService) CreateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	if err := ValidateNewTask(t); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateTask(ctx, t)
	if err != nil {
		return nil, s.internal(ctx, ResourceTask, "new", "create_task", err)
	}

	logger.FromContext(ctx).Info("Service: task created",
		zap.Int64("task_id", created.ID),
		zap.String("owner_id", created.OwnerID))

	s.publish(ctx, events.NewTaskEvent(events.TaskCreated, created, nil, s.now()))
	if len(created.SharedWith) > 0 {
		s.publish(ctx, events.NewTaskEvent(events.TaskShared, created, created.SharedWith, s.now()))
	}
	return created, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id int64, patch task.Patch) (*task.Task, error) {
	if err := ValidatePatch(patch); err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		logger.FromContext(ctx).Info("Service: empty patch, only updatedAt changes", zap.Int64("task_id", id))
	}

	// The prior share list is read outside the write, so concurrent PATCHes of
	// sharedWith may announce a recipient the other request already added.
	var sharedBefore []string
	if patch.SharedWith.Value != nil {
		before, ok, err := s.repo.GetTask(ctx, id)
		if err != nil {
			return nil, s.internal(ctx, ResourceTask, idString(id), "update_task", err)
		}
		if !ok {
			return nil, NewNotFound(ResourceTask, idString(id))
		}
		sharedBefore = before.SharedWith
	}

	updated, ok, err := s.repo.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, s.internal(ctx, ResourceTask, idString(id), "update_task", err)
	}
	if !ok {
		logger.FromContext(ctx).Info("Service: task not found", zap.Int64("task_id", id))
		return nil, NewNotFound(ResourceTask, idString(id))
	}

	s.publish(ctx, events.NewTaskEvent(events.TaskUpdated, updated, nil, s.now()))
	if added := patch.AddedShares(sharedBefore); len(added) > 0 {
		s.publish(ctx, events.NewTaskEvent(events.TaskShared, updated, added, s.now()))
	}
	return updated, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	deleted, err := s.repo.DeleteTask(ctx, id)
	if err != nil {
		return s.internal(ctx, ResourceTask, idString(id), "delete_task", err)
	}
	if !deleted {
		logger.FromContext(ctx).Info("Service: task not found", zap.Int64("task_id", id))
		return NewNotFound(ResourceTask, idString(id))
	}

	s.publish(ctx, events.TaskEvent{
		Event:      events.TaskDeleted,
		TaskID:     id,
		SharedWith: []string{},
		OccurredAt: s.now(),
	})
	return nil
}

func (s *TaskService) ownedOrShared(ctx context.Context, ownerID, email string) ([]*task.Task, error) {
	owned, err := s.repo.GetTasksByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	shared, err := s.repo.GetTasksBySharedUser(ctx, email)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(owned))
	for _, t := range owned {
		seen[t.ID] = struct{}{}
	}
	for _, t := range shared {
		if _, ok := seen[t.ID]; !ok {
			owned = append(owned, t)
		}
	}
	repository.SortNewestFirst(owned)
	return owned, nil
}

// publish never fails the caller: the mutation already happened.
func (s *TaskService) publish(ctx context.Context, event events.TaskEvent) {
	if err := s.publisher.Publish(ctx, event.Event, event); err != nil {
		metrics.IncrementTaskEvent(event.Event, "failed")
		logger.FromContext(ctx).Warn("Service: failed to publish event",
			zap.String("event", event.Event),
			zap.Int64("task_id", event.TaskID),
			zap.Error(err))
		return
	}
	metrics.IncrementTaskEvent(event.Event, "published")
}

func (s *TaskService) internal(ctx context.Context, resource Resource, id, operation string, err error) error {
	logger.FromContext(ctx).Error("Service: storage failure",
		zap.String("resource", string(resource)),
		zap.String("id", id),
		zap.String("operation", operation),
		zap.Error(err))
	return NewInternal(resource, id, operation, err)
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
