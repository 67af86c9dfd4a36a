package service

import (
	"time"

	"donezo/internal/models/task"
)

// View is one of the dashboard filters.
type View string

const (
	ViewAll       View = "all"
	ViewToday     View = "today"
	ViewOverdue   View = "overdue"
	ViewCompleted View = "completed"
)

func ParseView(raw string) (View, error) {
	switch View(raw) {
	case "", ViewAll:
		return ViewAll, nil
	case ViewToday, ViewOverdue, ViewCompleted:
		return View(raw), nil
	}
	return "", NewValidationError("view", "must be one of all, today, overdue, completed")
}

// Match evaluates the view against now; day boundaries use now's location.
func (v View) Match(t *task.Task, now time.Time) bool {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch v {
	case ViewToday:
		if t.DueDate == nil {
			return false
		}
		return !t.DueDate.Before(startOfDay) && t.DueDate.Before(startOfDay.AddDate(0, 0, 1))
	case ViewOverdue:
		return t.IsOverdue(startOfDay)
	case ViewCompleted:
		return t.IsCompleted()
	}
	return true
}

func FilterTasks(tasks []*task.Task, view View, now time.Time) []*task.Task {
	if view == ViewAll || view == "" {
		return tasks
	}
	res := []*task.Task{}
	for _, t := range tasks {
		if view.Match(t, now) {
			res = append(res, t)
		}
	}
	return res
}
