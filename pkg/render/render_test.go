package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/tasktrack/pkg/manager"
	"github.com/harrisonrobin/tasktrack/pkg/model"
)

var now = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

func task(id, title string, p model.Priority, s model.Status) *model.Task {
	return &model.Task{
		ID:        id,
		Title:     title,
		Priority:  p,
		Status:    s,
		CreatedAt: now.Add(-48 * time.Hour),
	}
}

func TestTasks(t *testing.T) {
	late := task("0123456789abcdef", "water plants", model.PriorityHigh, model.StatusTodo)
	due := now.AddDate(0, 0, -1)
	late.DueDate = &due
	late.Tags = []string{"home", "garden"}

	done := task("fedcba98", "file taxes", model.PriorityLow, model.StatusDone)

	var buf bytes.Buffer
	require.NoError(t, Tasks(&buf, []*model.Task{late, done}, now))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	assert.True(t, strings.HasPrefix(lines[0], "! 01234567 "), lines[0])
	assert.Contains(t, lines[0], "high")
	assert.Contains(t, lines[0], "2025-03-19")
	assert.Contains(t, lines[0], "water plants")
	assert.Contains(t, lines[0], "+home +garden")
	assert.NotContains(t, lines[0], "89abcdef")

	assert.True(t, strings.HasPrefix(lines[1], "  fedcba98 done"), lines[1])
	assert.Contains(t, lines[1], " - ")
}

func TestTasksEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Tasks(&buf, nil, now))
	assert.Equal(t, "No tasks.\n", buf.String())
}

func TestDetails(t *testing.T) {
	tk := task("abc", "write report", model.PriorityMedium, model.StatusDone)
	tk.Description = "quarterly numbers"
	completed := now.Add(-time.Hour)
	tk.CompletedAt = &completed
	due := now.AddDate(0, 0, -3)
	tk.DueDate = &due

	var buf bytes.Buffer
	require.NoError(t, Details(&buf, tk, now))
	out := buf.String()

	assert.Contains(t, out, "quarterly numbers")
	assert.Contains(t, out, "medium")
	assert.Contains(t, out, "Completed:")
	assert.NotContains(t, out, "(overdue)", "done tasks are never overdue")
	assert.NotContains(t, out, "Tags:")
}

func TestStatistics(t *testing.T) {
	s := manager.Statistics{
		Total: 3,
		ByStatus: map[model.Status]int{
			model.StatusTodo: 2,
			model.StatusDone: 1,
		},
		ByPriority: map[model.Priority]int{
			model.PriorityHigh: 1,
			model.PriorityLow:  2,
		},
		Overdue:           1,
		CompletedLastWeek: 1,
	}

	var buf bytes.Buffer
	require.NoError(t, Statistics(&buf, s))
	out := buf.String()

	assert.Contains(t, out, "Total: 3")
	assert.Contains(t, out, "abandoned")
	assert.Contains(t, out, "Overdue: 1")
	assert.Less(t, strings.Index(out, "high"), strings.Index(out, "low"), "priorities print highest first")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", ShortID("abc"))
	assert.Equal(t, "12345678", ShortID("123456789"))
}
