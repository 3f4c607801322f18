package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/tasktrack/pkg/model"
)

// opener returns a fresh handle on the same underlying store each time it is called.
type opener func() Storage

// testContract exercises behaviour every backend must share. newStore is
// called once per subtest and must return an opener for an empty store.
func testContract(t *testing.T, newStore func(t *testing.T) opener) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -3)
	future := now.AddDate(0, 0, 3)

	t.Run("add assigns id and get returns it", func(t *testing.T) {
		open := newStore(t)
		s := open()
		task := model.NewTask("Write report")
		id, err := s.Add(task)
		require.NoError(t, err)
		require.NotEmpty(t, id)
		assert.Equal(t, id, task.ID)

		got, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, "Write report", got.Title)
	})

	t.Run("get unknown id", func(t *testing.T) {
		open := newStore(t)
		s := open()
		_, err := s.Get("missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("add rejects invalid and duplicate tasks", func(t *testing.T) {
		open := newStore(t)
		s := open()
		_, err := s.Add(&model.Task{Title: " ", Priority: model.PriorityLow, Status: model.StatusTodo})
		assert.ErrorIs(t, err, model.ErrInvalidArgument)

		task := model.NewTask("a")
		task.ID = "fixed"
		_, err = s.Add(task)
		require.NoError(t, err)
		dup := model.NewTask("b")
		dup.ID = "fixed"
		_, err = s.Add(dup)
		assert.ErrorIs(t, err, ErrDuplicateID)
	})

	t.Run("update merges only set fields", func(t *testing.T) {
		open := newStore(t)
		s := open()
		task := model.NewTask("Keep title")
		task.Description = "keep description"
		task.Tags = []string{"home"}
		id, err := s.Add(task)
		require.NoError(t, err)

		ok, err := s.Update(id, model.WithPriority(model.PriorityHigh))
		require.NoError(t, err)
		require.True(t, ok)

		got, err := open().Get(id)
		require.NoError(t, err)
		assert.Equal(t, model.PriorityHigh, got.Priority)
		assert.Equal(t, "Keep title", got.Title)
		assert.Equal(t, "keep description", got.Description)
		assert.Equal(t, model.StatusTodo, got.Status)
		assert.Equal(t, []string{"home"}, got.Tags)

		ok, err = s.Update("missing", model.WithStatus(model.StatusDone))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("save flushes in-place mutations", func(t *testing.T) {
		open := newStore(t)
		s := open()
		id, err := s.Add(model.NewTask("Mutate me"))
		require.NoError(t, err)

		task, err := s.Get(id)
		require.NoError(t, err)
		task.MarkAsDone(now)
		task.AddTag("finished")
		require.NoError(t, s.Save())

		got, err := open().Get(id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusDone, got.Status)
		require.NotNil(t, got.CompletedAt)
		assert.True(t, got.CompletedAt.Equal(now))
		assert.True(t, got.HasTag("finished"))
	})

	t.Run("delete", func(t *testing.T) {
		open := newStore(t)
		s := open()
		id, err := s.Add(model.NewTask("Delete me"))
		require.NoError(t, err)

		ok, err := s.Delete(id)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Delete(id)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = open().Get(id)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("queries", func(t *testing.T) {
		open := newStore(t)
		s := open()
		mk := func(title string, p model.Priority, st model.Status, due *time.Time) string {
			task := model.NewTask(title)
			task.Priority = p
			task.Status = st
			task.DueDate = due
			id, err := s.Add(task)
			require.NoError(t, err)
			return id
		}
		late := mk("late", model.PriorityHigh, model.StatusTodo, &past)
		mk("late but done", model.PriorityLow, model.StatusDone, &past)
		mk("upcoming", model.PriorityLow, model.StatusInProgress, &future)
		mk("undated", model.PriorityMedium, model.StatusTodo, nil)

		all, err := s.All()
		require.NoError(t, err)
		assert.Equal(t, []string{"late", "late but done", "upcoming", "undated"}, titles(all))

		todo, err := s.ByStatus(model.StatusTodo)
		require.NoError(t, err)
		assert.Equal(t, []string{"late", "undated"}, titles(todo))

		low, err := s.ByPriority(model.PriorityLow)
		require.NoError(t, err)
		assert.Equal(t, []string{"late but done", "upcoming"}, titles(low))

		overdue, err := s.Overdue(now)
		require.NoError(t, err)
		require.Len(t, overdue, 1)
		assert.Equal(t, late, overdue[0].ID)
	})

	t.Run("due date round trip", func(t *testing.T) {
		open := newStore(t)
		s := open()
		due, err := model.ParseDueDate("2025-03-10")
		require.NoError(t, err)
		task := model.NewTask("dated")
		task.DueDate = &due
		id, err := s.Add(task)
		require.NoError(t, err)

		got, err := open().Get(id)
		require.NoError(t, err)
		require.NotNil(t, got.DueDate)
		assert.True(t, got.DueDate.Equal(due), "got %v, want %v", got.DueDate, due)
	})
}

func titles(tasks []*model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}
