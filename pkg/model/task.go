package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Priority ranks how urgent a task is. The integer values are the ones users type.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// Priorities lists every priority in ascending order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority maps an integer to a Priority.
func ParsePriority(v int) (Priority, error) {
	p := Priority(v)
	if !p.Valid() {
		return 0, fmt.Errorf("%w: priority must be between %d and %d, got %d",
			ErrInvalidArgument, PriorityLow, PriorityHigh, v)
	}
	return p, nil
}

// ParsePriorityName accepts "low", "medium" or "high" in any case.
func ParsePriorityName(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	}
	return 0, fmt.Errorf("%w: unknown priority %q", ErrInvalidArgument, s)
}

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusAbandoned  Status = "abandoned"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone, StatusAbandoned}

// ParseStatus maps a user-supplied token to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q, must be one of: todo, in_progress, done, abandoned",
			ErrInvalidArgument, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Task is a single tracked unit of work.
type Task struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Priority    Priority   `json:"priority" yaml:"priority"`
	Status      Status     `json:"status" yaml:"status"`
	DueDate     *time.Time `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Tags        []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// NewTask returns a TODO task of medium priority. The ID is left for storage to assign.
func NewTask(title string) *Task {
	return &Task{
		Title:     title,
		Priority:  PriorityMedium,
		Status:    StatusTodo,
		CreatedAt: time.Now(),
	}
}

// IsOverdue reports whether the due date has passed and the task is not done.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusDone {
		return false
	}
	return t.DueDate.Before(now)
}

// IsOverdueByMoreThanDays reports whether the task is overdue and more than
// n×24h have elapsed since its due date. Calendar days are not counted.
func (t *Task) IsOverdueByMoreThanDays(now time.Time, n int) bool {
	if !t.IsOverdue(now) {
		return false
	}
	return now.Sub(*t.DueDate) > time.Duration(n)*24*time.Hour
}

// IsResolved reports whether the task reached a terminal status.
func (t *Task) IsResolved() bool {
	return t.Status == StatusDone || t.Status == StatusAbandoned
}

// MarkAsDone moves the task to DONE and stamps the completion time.
// Calling it on a task that is already done re-stamps CompletedAt.
func (t *Task) MarkAsDone(now time.Time) {
	t.Status = StatusDone
	t.CompletedAt = &now
}

// CompletedWithin reports whether CompletedAt falls strictly after now-d.
func (t *Task) CompletedWithin(now time.Time, d time.Duration) bool {
	if t.CompletedAt == nil {
		return false
	}
	return t.CompletedAt.After(now.Add(-d))
}

// HasTag compares tag after trimming surrounding space, as AddTag stores it.
func (t *Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, strings.TrimSpace(tag))
}

// AddTag adds tag unless it is blank or already present.
func (t *Task) AddTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" || t.HasTag(tag) {
		return
	}
	t.Tags = append(t.Tags, tag)
}

// RemoveTag removes tag and reports whether it was present.
func (t *Task) RemoveTag(tag string) bool {
	i := slices.Index(t.Tags, strings.TrimSpace(tag))
	if i < 0 {
		return false
	}
	t.Tags = slices.Delete(t.Tags, i, i+1)
	return true
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	c.Tags = slices.Clone(t.Tags)
	return &c
}

// Validate checks the fields a stored task must always satisfy.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: invalid priority %d", ErrInvalidArgument, int(t.Priority))
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", ErrInvalidArgument, t.Status)
	}
	return nil
}
