package events

import (
	"context"
	"time"

	"donezo/internal/models/task"
)

const (
	TaskCreated = "task.created"
	TaskUpdated = "task.updated"
	TaskDeleted = "task.deleted"
	TaskShared  = "task.shared"
	TaskOverdue = "task.overdue"
)

// TaskEvent is the JSON body published for every task routing key.
type TaskEvent struct {
	Event      string     `json:"event"`
	TaskID     int64      `json:"taskId"`
	OwnerID    string     `json:"ownerId"`
	Title      string     `json:"title,omitempty"`
	Status     string     `json:"status,omitempty"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	SharedWith []string   `json:"sharedWith"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// NewTaskEvent snapshots t. For task.shared the caller passes only the newly
// added emails as recipients.
func NewTaskEvent(event string, t *task.Task, recipients []string, at time.Time) TaskEvent {
	if recipients == nil {
		recipients = append([]string{}, t.SharedWith...)
	}
	return TaskEvent{
		Event:      event,
		TaskID:     t.ID,
		OwnerID:    t.OwnerID,
		Title:      t.Title,
		Status:     string(t.Status),
		DueDate:    t.DueDate,
		SharedWith: recipients,
		OccurredAt: at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close()
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

func (Noop) Close() {}
