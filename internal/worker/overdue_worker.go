package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"donezo/internal/events"
	"donezo/internal/logger"
	"donezo/internal/metrics"
	"donezo/internal/models/task"
	"donezo/internal/service"
)

const (
	defaultInterval  = 5 * time.Minute
	defaultBatchSize = 100
	DefaultDedupTTL  = 24 * time.Hour
)

type TaskLister interface {
	ListTasks(ctx context.Context, q service.Query) ([]*task.Task, error)
}

// OverdueWorker periodically announces tasks that slipped past their due day.
// Each task is announced once per due date.
type OverdueWorker struct {
	tasks     TaskLister
	publisher events.Publisher
	deduper   Deduper
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewOverdueWorker(tasks TaskLister, publisher events.Publisher, deduper Deduper, interval time.Duration, batchSize int) *OverdueWorker {
	if interval <= 0 {
		interval = defaultInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if deduper == nil {
		deduper = NewMemoryDeduper(DefaultDedupTTL)
	}
	return &OverdueWorker{
		tasks:     tasks,
		publisher: publisher,
		deduper:   deduper,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

func (w *OverdueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: overdue check started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ticker.C:
			if _, err := w.Check(ctx); err != nil {
				logger.Warn("Worker: overdue check failed", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("Worker: overdue check stopping")
			return
		}
	}
}

// Check runs a single pass and returns how many tasks were announced.
func (w *OverdueWorker) Check(ctx context.Context) (int, error) {
	start := time.Now()

	tasks, err := w.tasks.ListTasks(ctx, service.Query{View: service.ViewOverdue})
	if err != nil {
		return 0, fmt.Errorf("list overdue tasks: %w", err)
	}

	announced := 0
	for _, t := range tasks {
		if announced >= w.batchSize {
			break
		}
		if ctx.Err() != nil {
			return announced, ctx.Err()
		}
		if !w.deduper.AcquireOnce(ctx, dedupKey(t)) {
			continue
		}

		event := events.NewTaskEvent(events.TaskOverdue, t, nil, w.now())
		if err := w.publisher.Publish(ctx, events.TaskOverdue, event); err != nil {
			metrics.IncrementTaskEvent(events.TaskOverdue, "failed")
			logger.Warn("Worker: failed to publish overdue event", zap.Int64("task_id", t.ID), zap.Error(err))
			continue
		}
		metrics.IncrementTaskEvent(events.TaskOverdue, "published")
		metrics.IncrementOverdueDetected()
		announced++
	}

	logger.Info(
		"Worker: overdue check finished",
		zap.Duration("ms", time.Since(start)),
		zap.Int("checked", len(tasks)),
		zap.Int("announced", announced),
	)
	return announced, nil
}

func dedupKey(t *task.Task) string {
	var due int64
	if t.DueDate != nil {
		due = t.DueDate.Unix()
	}
	return fmt.Sprintf("overdue:%d:%d", t.ID, due)
}
