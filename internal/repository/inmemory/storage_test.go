package inmemory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donezo/internal/models/task"
	"donezo/internal/models/user"
	"donezo/internal/repository/inmemory"
)

// steppingClock returns a time one second later on every call.
type steppingClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func newStorage() *inmemory.Storage {
	clock := &steppingClock{cur: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return inmemory.NewStorage(inmemory.WithClock(clock.Now))
}

func strPtr(s string) *string {
	return &s
}

func TestStorage_HealthCheck(t *testing.T) {
	assert.NoError(t, newStorage().HealthCheck(context.Background()))
}

func TestStorage_CreateTaskDefaults(t *testing.T) {
	ctx := context.Background()
	storage := newStorage()

	created, err := storage.CreateTask(ctx, &task.Task{Title: "X", OwnerID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, task.PriorityMedium, created.Priority)
	assert.Equal(t, task.StatusPending, created.Status)
	assert.NotNil(t, created.SharedWith)
	assert.Empty(t, created.SharedWith)
	assert.Nil(t, created.Description)
	assert.Nil(t, created.DueDate)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
}

func TestStorage_IDsStrictlyIncreaseAcrossDeletes(t *testing.T) {
	ctx := context.Background()
	storage := newStorage()

	var last int64
	for i := range 10 {
		created, err := storage.CreateTask(ctx, task.New(fmt.Sprintf("t%d", i), "u1"))
		require.NoError(t, err)
		assert.Greater(t, created.ID, last)
		last = created.ID

		if i%2 == 0 {
			deleted, err := storage.DeleteTask(ctx, created.ID)
			require.NoError(t, err)
			require.True(t, deleted)
		}
	}

	created, err := storage.CreateTask(ctx, task.New("after", "u1"))
	require.NoError(t, err)
	assert.Equal(t, last+1, created.ID)
}

func TestStorage_UpdateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("empty update only advances updatedAt", func(t *testing.T) {
		storage := newStorage()
		created, err := storage.CreateTask(ctx, task.New("X", "u1", task.WithDescription(strPtr("d"))))
		require.NoError(t, err)

		updated, ok, err := storage.UpdateTask(ctx, created.ID, task.Patch{})
		require.NoError(t, err)
		require.True(t, ok)

		assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
		updated.UpdatedAt = created.UpdatedAt
		assert.Equal(t, created, updated)
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		storage := newStorage()
		created, err := storage.CreateTask(ctx, task.New("X", "u1", task.WithSharedWith([]string{"a@x.com"})))
		require.NoError(t, err)

		updated, ok, err := storage.UpdateTask(ctx, created.ID, task.Patch{
			Status: task.Value(task.StatusCompleted),
		})
		require.NoError(t, err)
		require.True(t, ok)

		assert.Equal(t, task.StatusCompleted, updated.Status)
		assert.Equal(t, "X", updated.Title)
		assert.Equal(t, []string{"a@x.com"}, updated.SharedWith)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	})

	t.Run("explicit null clears nullable fields", func(t *testing.T) {
		storage := newStorage()
		due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		created, err := storage.CreateTask(ctx, task.New("X", "u1",
			task.WithDescription(strPtr("d")), task.WithDueDate(&due)))
		require.NoError(t, err)

		updated, ok, err := storage.UpdateTask(ctx, created.ID, task.Patch{
			Description: task.Null[string](),
			DueDate:     task.Null[time.Time](),
		})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Nil(t, updated.Description)
		assert.Nil(t, updated.DueDate)
	})

	t.Run("missing id leaves store untouched", func(t *testing.T) {
		storage := newStorage()
		created, err := storage.CreateTask(ctx, task.New("X", "u1"))
		require.NoError(t, err)

		updated, ok, err := storage.UpdateTask(ctx, 999, task.Patch{Title: task.Value("Y")})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, updated)

		all, err := storage.GetAllTasks(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, created, all[0])
	})

	t.Run("returned records are copies", func(t *testing.T) {
		storage := newStorage()
		created, err := storage.CreateTask(ctx, task.New("X", "u1", task.WithSharedWith([]string{"a@x.com"})))
		require.NoError(t, err)

		created.Title = "mutated"
		created.SharedWith[0] = "evil@x.com"

		got, ok, err := storage.GetTask(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "X", got.Title)
		assert.Equal(t, []string{"a@x.com"}, got.SharedWith)
	})
}

func TestStorage_DeleteTaskTwice(t *testing.T) {
	ctx := context.Background()
	storage := newStorage()
	created, err := storage.CreateTask(ctx, task.New("X", "u1"))
	require.NoError(t, err)

	deleted, err := storage.DeleteTask(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = storage.DeleteTask(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, ok, err := storage.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorage_Scenario(t *testing.T) {
	ctx := context.Background()
	storage := newStorage()

	created, err := storage.CreateTask(ctx, &task.Task{Title: "X", OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, task.PriorityMedium, created.Priority)
	assert.Equal(t, task.StatusPending, created.Status)
	assert.Equal(t, []string{}, created.SharedWith)

	updated, ok, err := storage.UpdateTask(ctx, 1, task.Patch{Status: task.Value(task.StatusCompleted)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, task.StatusCompleted, updated.Status)
	assert.Equal(t, "X", updated.Title)

	deleted, err := storage.DeleteTask(ctx, 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok, err = storage.GetTask(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorage_Ordering(t *testing.T) {
	ctx := context.Background()
	storage := newStorage()

	for i := range 5 {
		owner := "u1"
		if i%2 == 1 {
			owner = "u2"
		}
		_, err := storage.CreateTask(ctx, task.New(fmt.Sprintf("t%d", i), owner))
		require.NoError(t, err)
	}

	all, err := storage.GetAllTasks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
		assert.Less(t, all[i].ID, all[i-1].ID)
	}

	owned, err := storage.GetTasksByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, owned, 3)
	assert.Equal(t, []int64{5, 3, 1}, []int64{owned[0].ID, owned[1].ID, owned[2].ID})
}

func TestStorage_OrderingTiesBrokenByID(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	storage := inmemory.NewStorage(inmemory.WithClock(func() time.Time { return fixed }))

	for i := range 3 {
		_, err := storage.CreateTask(ctx, task.New(fmt.Sprintf("t%d", i), "u1"))
		require.NoError(t, err)
	}

	all, err := storage.GetAllTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, []int64{all[0].ID, all[1].ID, all[2].ID})
}

func TestStorage_GetTasksBySharedUser(t *testing.T) {
	ctx := context.Background()
	storage := newStorage()

	_, err := storage.CreateTask(ctx, task.New("exact", "u1", task.WithSharedWith([]string{"a@x.com", "b@x.com"})))
	require.NoError(t, err)
	_, err = storage.CreateTask(ctx, task.New("case", "u1", task.WithSharedWith([]string{"A@x.com"})))
	require.NoError(t, err)
	_, err = storage.CreateTask(ctx, task.New("substring", "u1", task.WithSharedWith([]string{"aa@x.com"})))
	require.NoError(t, err)
	_, err = storage.CreateTask(ctx, task.New("none", "u1"))
	require.NoError(t, err)

	shared, err := storage.GetTasksBySharedUser(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "exact", shared[0].Title)

	shared, err = storage.GetTasksBySharedUser(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.NotNil(t, shared)
	assert.Empty(t, shared)
}

func TestStorage_UpsertUser(t *testing.T) {
	ctx := context.Background()

	t.Run("create then merge", func(t *testing.T) {
		storage := newStorage()

		first, err := storage.UpsertUser(ctx, &user.User{ID: "u1", Email: "a@x.com", Name: "Ann", AvatarURL: strPtr("http://img/1")})
		require.NoError(t, err)
		assert.False(t, first.CreatedAt.IsZero())

		second, err := storage.UpsertUser(ctx, &user.User{ID: "u1", Email: "a@x.com", Name: "Annie"})
		require.NoError(t, err)

		assert.Equal(t, "u1", second.ID)
		assert.Equal(t, "Annie", second.Name)
		assert.Equal(t, first.CreatedAt, second.CreatedAt)
		require.NotNil(t, second.AvatarURL)
		assert.Equal(t, "http://img/1", *second.AvatarURL)

		got, ok, err := storage.GetUser(ctx, "u1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, second, got)
	})

	t.Run("avatar normalized to null", func(t *testing.T) {
		storage := newStorage()

		created, err := storage.UpsertUser(ctx, &user.User{ID: "u1", Email: "a@x.com", AvatarURL: strPtr("")})
		require.NoError(t, err)
		assert.Nil(t, created.AvatarURL)
	})

	t.Run("createdAt in payload is ignored", func(t *testing.T) {
		storage := newStorage()
		first, err := storage.UpsertUser(ctx, &user.User{ID: "u1", Email: "a@x.com"})
		require.NoError(t, err)

		second, err := storage.UpsertUser(ctx, &user.User{ID: "u1", Email: "a@x.com", CreatedAt: time.Unix(0, 0)})
		require.NoError(t, err)
		assert.Equal(t, first.CreatedAt, second.CreatedAt)
	})
}

func TestStorage_GetUserByEmail(t *testing.T) {
	ctx := context.Background()
	storage := newStorage()

	_, ok, err := storage.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = storage.UpsertUser(ctx, &user.User{ID: "first", Email: "a@x.com"})
	require.NoError(t, err)
	_, err = storage.UpsertUser(ctx, &user.User{ID: "second", Email: "a@x.com"})
	require.NoError(t, err)

	got, ok, err := storage.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", got.ID)
}

func TestStorage_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()

	const n = 50
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := storage.CreateTask(ctx, task.New(fmt.Sprintf("t%d", i), "u1"))
			assert.NoError(t, err)
			ids <- created.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}
