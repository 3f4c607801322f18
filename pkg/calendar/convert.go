package calendar

import (
	"fmt"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/tasktrack/pkg/model"
)

// Google Calendar event color IDs.
const (
	colorTomato = "11"
	colorBanana = "5"
	colorBasil  = "10"
)

var priorityColor = map[model.Priority]string{
	model.PriorityHigh:   colorTomato,
	model.PriorityMedium: colorBanana,
	model.PriorityLow:    colorBasil,
}

const (
	prefixDone       = "✓"
	prefixAbandoned  = "✗"
	prefixInProgress = "‣"
	prefixOverdue    = "!"
)

// ConvertTask builds the all-day event mirroring task on its due date.
func ConvertTask(task *model.Task, now time.Time) (*gcal.Event, error) {
	if task == nil {
		return nil, fmt.Errorf("could not convert nil task")
	}
	if task.DueDate == nil {
		return nil, fmt.Errorf("task %s has no due date", task.ID)
	}

	summary := task.Title
	if prefix := summaryPrefix(task, now); prefix != "" {
		summary = prefix + " " + task.Title
	}

	day := task.DueDate.Local()
	start := day.Format(model.DateLayout)
	end := day.AddDate(0, 0, 1).Format(model.DateLayout)

	return &gcal.Event{
		Summary:     summary,
		Description: describe(task),
		ColorId:     priorityColor[task.Priority],
		Start:       &gcal.EventDateTime{Date: start},
		End:         &gcal.EventDateTime{Date: end},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{
				TaskIDProperty: task.ID,
			},
		},
	}, nil
}

func summaryPrefix(task *model.Task, now time.Time) string {
	switch task.Status {
	case model.StatusDone:
		return prefixDone
	case model.StatusAbandoned:
		return prefixAbandoned
	case model.StatusInProgress:
		return prefixInProgress
	}
	if task.IsOverdue(now) {
		return prefixOverdue
	}
	return ""
}

func describe(task *model.Task) string {
	var b strings.Builder

	if len(task.Tags) > 0 {
		for _, tag := range task.Tags {
			fmt.Fprintf(&b, "#%s ", tag)
		}
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Status: %s\n", task.Status)
	fmt.Fprintf(&b, "Priority: %s\n", task.Priority)
	fmt.Fprintf(&b, "ID: %s\n", task.ID)

	if task.Description != "" {
		b.WriteString("\nNotes:\n")
		b.WriteString(task.Description)
		b.WriteString("\n")
	}
	return b.String()
}

// EventNeedsUpdate returns a patch holding the fields of target that differ
// from existing, or nil when they already match.
func EventNeedsUpdate(existing, target *gcal.Event) *gcal.Event {
	patch := &gcal.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}
	if !sameDay(existing.Start, target.Start) || !sameDay(existing.End, target.End) {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch
	}
	return nil
}

// sameDay compares all-day dates. A timed event never matches an all-day one.
func sameDay(a, b *gcal.EventDateTime) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Date == b.Date && a.DateTime == b.DateTime
}
