package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/tasktrack/pkg/model"
	"github.com/harrisonrobin/tasktrack/pkg/storage"
)

func sampleTasks() []*model.Task {
	created := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	due := time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC)
	completed := time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC)
	return []*model.Task{
		{
			ID:          "a1",
			Title:       "Buy milk, eggs",
			Description: "semi-skimmed",
			Priority:    model.PriorityLow,
			Status:      model.StatusDone,
			DueDate:     &due,
			Tags:        []string{"shop", "home"},
			CreatedAt:   created,
			CompletedAt: &completed,
		},
		{
			ID:        "b2",
			Title:     "Renew passport",
			Priority:  model.PriorityHigh,
			Status:    model.StatusTodo,
			CreatedAt: created,
		},
	}
}

func assertSameTasks(t *testing.T, want, got []*model.Task) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Title, g.Title)
		assert.Equal(t, w.Description, g.Description)
		assert.Equal(t, w.Priority, g.Priority)
		assert.Equal(t, w.Status, g.Status)
		assert.Equal(t, w.Tags, g.Tags)
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt))
		if w.DueDate == nil {
			assert.Nil(t, g.DueDate)
		} else {
			require.NotNil(t, g.DueDate)
			assert.True(t, w.DueDate.Equal(*g.DueDate))
		}
		if w.CompletedAt == nil {
			assert.Nil(t, g.CompletedAt)
		} else {
			require.NotNil(t, g.CompletedAt)
			assert.True(t, w.CompletedAt.Equal(*g.CompletedAt))
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, format, sampleTasks()))

			got, err := Read(&buf, format)
			require.NoError(t, err)
			assertSameTasks(t, sampleTasks(), got)
		})
	}
}

func TestReadRejectsInvalid(t *testing.T) {
	_, err := Read(strings.NewReader(`{"version":1,"tasks":[{"id":"x","title":"t","priority":9,"status":"todo","created_at":"2025-01-01T00:00:00Z"}]}`), FormatJSON)
	assert.ErrorIs(t, err, storage.ErrCorrupt)

	_, err = Read(strings.NewReader("version: 1\ntasks:\n  - id: x\n    title: t\n    priority: 2\n    status: later\n"), FormatYAML)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = Read(strings.NewReader("id,title\n"), FormatCSV)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "CSV", sampleTasks()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"a1", "Buy milk, eggs", "done", "1", "2025-03-10", "shop;home", "2025-03-09T18:00:00Z"}, records[1])
	assert.Equal(t, []string{"b2", "Renew passport", "todo", "3", "", "", ""}, records[2])
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatPDF, sampleTasks()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "docx", sampleTasks())
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
