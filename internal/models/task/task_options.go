package task

import (
	"slices"
	"time"
)

type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	return func(task *Task) {
		task.Title = title
	}
}

// WithDescription sets the description; nil clears it.
func WithDescription(description *string) TaskOption {
	return func(task *Task) {
		if description == nil {
			task.Description = nil
			return
		}
		d := *description
		task.Description = &d
	}
}

func WithPriority(priority Priority) TaskOption {
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithStatus(status Status) TaskOption {
	return func(task *Task) {
		task.Status = status
	}
}

// WithDueDate sets the due date; nil clears it.
func WithDueDate(dueDate *time.Time) TaskOption {
	return func(task *Task) {
		if dueDate == nil {
			task.DueDate = nil
			return
		}
		due := *dueDate
		task.DueDate = &due
	}
}

func WithOwner(ownerID string) TaskOption {
	return func(task *Task) {
		task.OwnerID = ownerID
	}
}

func WithSharedWith(emails []string) TaskOption {
	return func(task *Task) {
		task.SharedWith = slices.Clone(emails)
		if task.SharedWith == nil {
			task.SharedWith = []string{}
		}
	}
}
