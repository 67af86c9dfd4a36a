package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"donezo/internal/events"
	"donezo/internal/models/task"
	"donezo/internal/repository/inmemory"
	"donezo/internal/service"
	"donezo/internal/worker"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.TaskEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, payload.(events.TaskEvent))
	return nil
}

func (p *recordingPublisher) Close() {}

type failingLister struct{}

func (failingLister) ListTasks(context.Context, service.Query) ([]*task.Task, error) {
	return nil, errors.New("storage down")
}

func setup(t *testing.T, now time.Time) (*service.TaskService, *inmemory.Storage) {
	t.Helper()
	clock := func() time.Time { return now }
	storage := inmemory.NewStorage(inmemory.WithClock(clock))
	return service.NewTaskService(storage, service.WithClock(clock)), storage
}

func createDue(t *testing.T, storage *inmemory.Storage, title string, due *time.Time, opts ...task.TaskOption) *task.Task {
	t.Helper()
	opts = append(opts, task.WithDueDate(due))
	created, err := storage.CreateTask(context.Background(), task.New(title, "u1", opts...))
	require.NoError(t, err)
	return created
}

func TestOverdueWorker_Check(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc, storage := setup(t, now)

	yesterday := now.AddDate(0, 0, -1)
	earlierToday := now.Add(-2 * time.Hour)
	tomorrow := now.AddDate(0, 0, 1)

	late := createDue(t, storage, "late", &yesterday, task.WithSharedWith([]string{"a@x.com"}))
	createDue(t, storage, "done", &yesterday, task.WithStatus(task.StatusCompleted))
	createDue(t, storage, "due today", &earlierToday)
	createDue(t, storage, "future", &tomorrow)
	createDue(t, storage, "no date", nil)

	publisher := &recordingPublisher{}
	w := worker.NewOverdueWorker(svc, publisher, worker.NewMemoryDeduper(time.Hour), time.Minute, 10)

	announced, err := w.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, announced)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, events.TaskOverdue, publisher.events[0].Event)
	assert.Equal(t, late.ID, publisher.events[0].TaskID)
	assert.Equal(t, []string{"a@x.com"}, publisher.events[0].SharedWith)

	announced, err = w.Check(context.Background())
	require.NoError(t, err)
	assert.Zero(t, announced, "a task is announced once per due date")
}

func TestOverdueWorker_BatchSize(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc, storage := setup(t, now)
	due := now.AddDate(0, 0, -3)
	for i := range 5 {
		createDue(t, storage, fmt.Sprintf("late %d", i), &due)
	}

	publisher := &recordingPublisher{}
	w := worker.NewOverdueWorker(svc, publisher, nil, time.Minute, 2)

	announced, err := w.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, announced)

	announced, err = w.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, announced)
}

func TestOverdueWorker_PublishFailureRetriesNextRun(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc, storage := setup(t, now)
	due := now.AddDate(0, 0, -1)
	createDue(t, storage, "late", &due)

	publisher := &recordingPublisher{err: errors.New("broker down")}
	w := worker.NewOverdueWorker(svc, publisher, worker.NewMemoryDeduper(time.Hour), time.Minute, 10)

	announced, err := w.Check(context.Background())
	require.NoError(t, err)
	assert.Zero(t, announced)
}

func TestOverdueWorker_ListError(t *testing.T) {
	w := worker.NewOverdueWorker(failingLister{}, nil, nil, 0, 0)

	_, err := w.Check(context.Background())
	assert.Error(t, err)
}

func TestOverdueWorker_StartStopsOnCancel(t *testing.T) {
	svc, _ := setup(t, time.Now())
	w := worker.NewOverdueWorker(svc, nil, nil, 10*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestMemoryDeduper(t *testing.T) {
	d := worker.NewMemoryDeduper(time.Hour)
	ctx := context.Background()

	assert.True(t, d.AcquireOnce(ctx, "k"))
	assert.False(t, d.AcquireOnce(ctx, "k"))
	assert.True(t, d.AcquireOnce(ctx, "other"))
}

func TestRedisDeduper(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := worker.NewRedisClient(fmt.Sprintf("%s:%s", host, port.Port()), "", 0)
	t.Cleanup(func() { _ = rdb.Close() })

	d := worker.NewRedisDeduper(rdb, time.Minute)
	assert.True(t, d.AcquireOnce(ctx, "overdue:1:100"))
	assert.False(t, d.AcquireOnce(ctx, "overdue:1:100"))
	assert.True(t, d.AcquireOnce(ctx, "overdue:1:200"))
}

func TestRedisDeduper_FailsOpen(t *testing.T) {
	rdb := worker.NewRedisClient("127.0.0.1:1", "", 0)
	defer rdb.Close()

	d := worker.NewRedisDeduper(rdb, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.True(t, d.AcquireOnce(ctx, "k"))
	assert.True(t, d.AcquireOnce(ctx, "k"))
}
