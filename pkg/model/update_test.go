package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskUpdateApply(t *testing.T) {
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	task := &Task{
		ID:          "t1",
		Title:       "Original",
		Description: "keep me",
		Priority:    PriorityLow,
		Status:      StatusTodo,
		Tags:        []string{"a"},
	}

	WithPriority(PriorityHigh).Apply(task)
	assert.Equal(t, PriorityHigh, task.Priority)
	assert.Equal(t, "Original", task.Title)
	assert.Equal(t, "keep me", task.Description)
	assert.Equal(t, StatusTodo, task.Status)

	WithDueDate(due).Apply(task)
	require.NotNil(t, task.DueDate)
	assert.True(t, task.DueDate.Equal(due))

	WithStatus(StatusAbandoned).Apply(task)
	assert.Equal(t, StatusAbandoned, task.Status)
	assert.Equal(t, PriorityHigh, task.Priority, "status update keeps priority")

	WithTags("x", "x", "y").Apply(task)
	assert.Equal(t, []string{"x", "y"}, task.Tags)
}

func TestTaskUpdateIsEmpty(t *testing.T) {
	assert.True(t, TaskUpdate{}.IsEmpty())
	assert.False(t, WithStatus(StatusDone).IsEmpty())
	assert.False(t, WithTags().IsEmpty(), "clearing tags is a change")
}

func TestParseDueDate(t *testing.T) {
	got, err := ParseDueDate("2025-03-10")
	require.NoError(t, err)
	want := time.Date(2025, 3, 10, 23, 59, 59, 999999999, time.Local)
	assert.True(t, got.Equal(want), "got %v, want %v", got, want)

	for _, in := range []string{"10/03/2025", "2025-13-01", "tomorrow", ""} {
		_, err := ParseDueDate(in)
		assert.ErrorIs(t, err, ErrInvalidDate, "ParseDueDate(%q)", in)
	}
}
