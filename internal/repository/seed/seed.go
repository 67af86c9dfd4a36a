// Package seed loads demo users and tasks from a YAML fixture file into any
// storage engine.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"donezo/internal/logger"
	"donezo/internal/models/task"
	"donezo/internal/models/user"
	"donezo/internal/repository"
)

type Fixtures struct {
	Users []UserFixture `yaml:"users"`
	Tasks []TaskFixture `yaml:"tasks"`
}

type UserFixture struct {
	ID        string  `yaml:"id"`
	Email     string  `yaml:"email"`
	Name      string  `yaml:"name"`
	AvatarURL *string `yaml:"avatar_url"`
}

// TaskFixture describes the due date relative to load time so demo data never
// goes stale. A negative due_in yields an overdue task.
type TaskFixture struct {
	Title       string         `yaml:"title"`
	Description *string        `yaml:"description"`
	Priority    task.Priority  `yaml:"priority"`
	Status      task.Status    `yaml:"status"`
	DueIn       *time.Duration `yaml:"due_in"`
	OwnerID     string         `yaml:"owner_id"`
	SharedWith  []string       `yaml:"shared_with"`
}

func Load(path string) (*Fixtures, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

func Parse(r io.Reader) (*Fixtures, error) {
	var fixtures Fixtures
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&fixtures); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	for i, t := range fixtures.Tasks {
		if t.Title == "" || t.OwnerID == "" {
			return nil, fmt.Errorf("seed task #%d: title and owner_id are required", i+1)
		}
		if t.Priority != "" && !t.Priority.Valid() {
			return nil, fmt.Errorf("seed task #%d: unknown priority %q", i+1, t.Priority)
		}
		if t.Status != "" && !t.Status.Valid() {
			return nil, fmt.Errorf("seed task #%d: unknown status %q", i+1, t.Status)
		}
	}
	for i, u := range fixtures.Users {
		if u.ID == "" || u.Email == "" {
			return nil, fmt.Errorf("seed user #%d: id and email are required", i+1)
		}
	}
	return &fixtures, nil
}

// Apply writes the fixtures through the regular storage contract, so ids and
// timestamps are assigned exactly as for API-created data. Users are upserted
// every time; tasks are only created while the store holds none, so restarting
// against a durable store does not duplicate them.
func Apply(ctx context.Context, storage repository.Storage, fixtures *Fixtures, now time.Time) error {
	for _, u := range fixtures.Users {
		_, err := storage.UpsertUser(ctx, &user.User{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			AvatarURL: u.AvatarURL,
		})
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}

	existing, err := storage.GetAllTasks(ctx)
	if err != nil {
		return fmt.Errorf("seed: list tasks: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("Repository: store already has tasks, skipping seed tasks",
			zap.Int("users", len(fixtures.Users)),
			zap.Int("existing_tasks", len(existing)))
		return nil
	}

	for _, f := range fixtures.Tasks {
		options := []task.TaskOption{
			task.WithDescription(f.Description),
			task.WithPriority(f.Priority),
			task.WithStatus(f.Status),
			task.WithSharedWith(f.SharedWith),
		}
		if f.DueIn != nil {
			due := now.Add(*f.DueIn)
			options = append(options, task.WithDueDate(&due))
		}

		if _, err := storage.CreateTask(ctx, task.New(f.Title, f.OwnerID, options...)); err != nil {
			return fmt.Errorf("seed task %q: %w", f.Title, err)
		}
	}

	logger.Info("Repository: seed data applied",
		zap.Int("users", len(fixtures.Users)),
		zap.Int("tasks", len(fixtures.Tasks)))
	return nil
}
