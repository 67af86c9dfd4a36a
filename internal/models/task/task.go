package task

import (
	"slices"
	"time"
)

type Task struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description" db:"description"`
	Priority    Priority   `json:"priority" db:"priority"`
	Status      Status     `json:"status" db:"status"`
	DueDate     *time.Time `json:"dueDate" db:"due_date"`
	OwnerID     string     `json:"ownerId" db:"owner_id"`
	SharedWith  []string   `json:"sharedWith" db:"shared_with"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

type Priority string
type Status string

const PriorityLow Priority = "low"
const PriorityMedium Priority = "medium"
const PriorityHigh Priority = "high"

const StatusPending Status = "pending"
const StatusCompleted Status = "completed"

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted:
		return true
	}
	return false
}

// New builds a task with defaults applied. Timestamps and id are left for the
// storage engine to assign.
func New(title, ownerID string, options ...TaskOption) *Task {
	t := &Task{
		Title:   title,
		OwnerID: ownerID,
	}
	for _, opt := range options {
		opt(t)
	}
	t.ApplyDefaults()
	return t
}

// ApplyDefaults fills omitted fields: medium priority, pending status and an
// empty share list.
func (t *Task) ApplyDefaults() {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.SharedWith == nil {
		t.SharedWith = []string{}
	}
	if t.Description != nil && *t.Description == "" {
		t.Description = nil
	}
}

func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	c.SharedWith = slices.Clone(t.SharedWith)
	if c.SharedWith == nil {
		c.SharedWith = []string{}
	}
	return &c
}

// IsSharedWith reports an exact, case-sensitive match in SharedWith.
func (t *Task) IsSharedWith(email string) bool {
	return slices.Contains(t.SharedWith, email)
}

func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// IsOverdue reports whether a pending task was due before the given moment.
func (t *Task) IsOverdue(before time.Time) bool {
	return t.DueDate != nil && !t.IsCompleted() && t.DueDate.Before(before)
}
