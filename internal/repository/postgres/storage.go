package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"donezo/internal/logger"
	"donezo/internal/metrics"
	"donezo/internal/models/task"
	"donezo/internal/models/user"
	"donezo/internal/repository"
)

var _ repository.Storage = (*Storage)(nil)

const slowQuery = 100 * time.Millisecond

const taskColumns = `id, title, description, priority, status, due_date, owner_id, shared_with, created_at, updated_at`
const userColumns = `id, email, name, avatar_url, created_at`

type PoolConfig struct {
	MaxConns    int32
	MinConns    int32
	IdleTimeout time.Duration
}

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string, poolCfg PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: failed to parse database config", err)
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = 5 * time.Minute
	if poolCfg.MaxConns > 0 {
		config.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		config.MinConns = poolCfg.MinConns
	}
	if poolCfg.IdleTimeout > 0 {
		config.MaxConnIdleTime = poolCfg.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: failed to create pool", err)
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Repository: ping failed", err)
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("Repository: connected to PostgreSQL",
		zap.String("host", config.ConnConfig.Host),
		zap.String("database", config.ConnConfig.Database))
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: PostgreSQL connections closed")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id string) (*user.User, bool, error) {
	defer s.observe("get_user", "users", time.Now())

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		logger.Error("Repository: failed to get user", err, zap.String("user_id", id))
		return nil, false, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, true, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	defer s.observe("get_user_by_email", "users", time.Now())

	query := `SELECT ` + userColumns + ` FROM users
			WHERE email = $1
			ORDER BY created_at, id
			LIMIT 1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		logger.Error("Repository: failed to get user by email", err)
		return nil, false, fmt.Errorf("get user by email: %w", err)
	}
	return u, true, nil
}

// UpsertUser keeps created_at and only overwrites columns that were supplied.
func (s *Storage) UpsertUser(ctx context.Context, data *user.User) (*user.User, error) {
	defer s.observe("upsert_user", "users", time.Now())

	in := data.Clone()
	in.NormalizeAvatar()

	query := `INSERT INTO users (id, email, name, avatar_url, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (id) DO UPDATE SET
				email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
				name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
				avatar_url = COALESCE(EXCLUDED.avatar_url, users.avatar_url)
			RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, query, in.ID, in.Email, in.Name, in.AvatarURL))
	if err != nil {
		logger.Error("Repository: failed to upsert user", err, zap.String("user_id", in.ID))
		return nil, fmt.Errorf("upsert user %s: %w", in.ID, err)
	}
	return u, nil
}

func (s *Storage) GetAllTasks(ctx context.Context) ([]*task.Task, error) {
	defer s.observe("get_all_tasks", "tasks", time.Now())

	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC, id DESC`
	return s.queryTasks(ctx, query)
}

func (s *Storage) GetTask(ctx context.Context, id int64) (*task.Task, bool, error) {
	defer s.observe("get_task", "tasks", time.Now())

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		logger.Error("Repository: failed to get task", err, zap.Int64("task_id", id))
		return nil, false, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, true, nil
}

func (s *Storage) GetTasksByOwner(ctx context.Context, ownerID string) ([]*task.Task, error) {
	defer s.observe("get_tasks_by_owner", "tasks", time.Now())

	query := `SELECT ` + taskColumns + ` FROM tasks
			WHERE owner_id = $1
			ORDER BY created_at DESC, id DESC`
	return s.queryTasks(ctx, query, ownerID)
}

func (s *Storage) GetTasksBySharedUser(ctx context.Context, email string) ([]*task.Task, error) {
	defer s.observe("get_tasks_by_shared_user", "tasks", time.Now())

	query := `SELECT ` + taskColumns + ` FROM tasks
			WHERE $1 = ANY(shared_with)
			ORDER BY created_at DESC, id DESC`
	return s.queryTasks(ctx, query, email)
}

func (s *Storage) CreateTask(ctx context.Context, data *task.Task) (*task.Task, error) {
	defer s.observe("create_task", "tasks", time.Now())

	in := data.Clone()
	in.ApplyDefaults()

	query := `INSERT INTO tasks
				(title, description, priority, status, due_date, owner_id, shared_with, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING ` + taskColumns

	t, err := scanTask(s.pool.QueryRow(ctx, query,
		in.Title,
		in.Description,
		string(in.Priority),
		string(in.Status),
		in.DueDate,
		in.OwnerID,
		in.SharedWith,
	))
	if err != nil {
		logger.Error("Repository: failed to create task", err, zap.String("owner_id", in.OwnerID))
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// UpdateTask sets only the supplied columns in a single statement, so the
// merge is atomic with respect to other writers of the same row.
func (s *Storage) UpdateTask(ctx context.Context, id int64, patch task.Patch) (*task.Task, bool, error) {
	defer s.observe("update_task", "tasks", time.Now())

	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title.Value != nil {
		set("title", *patch.Title.Value)
	}
	if patch.Description.Set {
		set("description", patch.Description.Value)
	}
	if patch.Priority.Value != nil {
		set("priority", string(*patch.Priority.Value))
	}
	if patch.Status.Value != nil {
		set("status", string(*patch.Status.Value))
	}
	if patch.DueDate.Set {
		set("due_date", patch.DueDate.Value)
	}
	if patch.OwnerID.Value != nil {
		set("owner_id", *patch.OwnerID.Value)
	}
	if patch.SharedWith.Value != nil {
		shared := *patch.SharedWith.Value
		if shared == nil {
			shared = []string{}
		}
		set("shared_with", shared)
	}
	sets = append(sets, "updated_at = GREATEST(NOW(), updated_at)")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), taskColumns)

	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		logger.Error("Repository: failed to update task", err, zap.Int64("task_id", id))
		return nil, false, fmt.Errorf("update task %d: %w", id, err)
	}
	return t, true, nil
}

func (s *Storage) DeleteTask(ctx context.Context, id int64) (bool, error) {
	defer s.observe("delete_task", "tasks", time.Now())

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: failed to delete task", err, zap.Int64("task_id", id))
		return false, fmt.Errorf("delete task %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Storage) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: failed to query tasks", err)
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Error("Repository: failed to scan task", err)
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func (s *Storage) observe(operation, table string, start time.Time) {
	elapsed := time.Since(start)
	metrics.RecordDBQueryDuration(operation, table, elapsed)
	if elapsed > slowQuery {
		logger.Warn("Repository: slow query",
			zap.String("operation", operation),
			zap.Duration("ms", elapsed))
	}
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t        task.Task
		priority string
		status   string
	)
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&priority,
		&status,
		&t.DueDate,
		&t.OwnerID,
		&t.SharedWith,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Priority = task.Priority(priority)
	t.Status = task.Status(status)
	if t.SharedWith == nil {
		t.SharedWith = []string{}
	}
	return &t, nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
