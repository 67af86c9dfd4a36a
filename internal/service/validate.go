package service

import (
	"net/mail"
	"strings"

	"donezo/internal/models/task"
	"donezo/internal/models/user"
)

func ValidateUser(u *user.User) error {
	if u == nil {
		return NewValidationError("user", "required")
	}
	if strings.TrimSpace(u.ID) == "" {
		return NewValidationError("id", "must not be empty")
	}
	if strings.TrimSpace(u.Email) == "" {
		return NewValidationError("email", "must not be empty")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return NewValidationError("email", "must be a valid email address")
	}
	return nil
}

func ValidateNewTask(t *task.Task) error {
	if t == nil {
		return NewValidationError("task", "required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if strings.TrimSpace(t.OwnerID) == "" {
		return NewValidationError("ownerId", "must not be empty")
	}
	if t.Priority != "" && !t.Priority.Valid() {
		return NewValidationError("priority", "must be one of low, medium, high")
	}
	if t.Status != "" && !t.Status.Valid() {
		return NewValidationError("status", "must be one of pending, completed")
	}
	return validateSharedWith(t.SharedWith)
}

// ValidatePatch checks each supplied field. Only description and dueDate may
// be explicitly null.
func ValidatePatch(p task.Patch) error {
	if p.Title.Set {
		if p.Title.Value == nil || strings.TrimSpace(*p.Title.Value) == "" {
			return NewValidationError("title", "must not be empty")
		}
	}
	if p.Priority.Set {
		if p.Priority.Value == nil || !p.Priority.Value.Valid() {
			return NewValidationError("priority", "must be one of low, medium, high")
		}
	}
	if p.Status.Set {
		if p.Status.Value == nil || !p.Status.Value.Valid() {
			return NewValidationError("status", "must be one of pending, completed")
		}
	}
	if p.OwnerID.Set {
		if p.OwnerID.Value == nil || strings.TrimSpace(*p.OwnerID.Value) == "" {
			return NewValidationError("ownerId", "must not be empty")
		}
	}
	if p.SharedWith.Set {
		if p.SharedWith.Value == nil {
			return NewValidationError("sharedWith", "must not be null")
		}
		return validateSharedWith(*p.SharedWith.Value)
	}
	return nil
}

func validateSharedWith(emails []string) error {
	for _, email := range emails {
		if strings.TrimSpace(email) == "" {
			return NewValidationError("sharedWith", "must not contain empty entries")
		}
	}
	return nil
}
