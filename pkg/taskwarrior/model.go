package taskwarrior

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/tasktrack/pkg/model"
)

const (
	PENDING   = "pending"
	COMPLETED = "completed"
	WAITING   = "waiting"
	DELETED   = "deleted"
	RECURRING = "recurring"
)

type CustomTime struct {
	time.Time
}

const taskwarriorTimeLayout = "20060102T150405Z" // YYYYMMDDTHHMMSSZ, 'Z' indicates UTC

// UnmarshalJSON implements the json.Unmarshaler interface for CustomTime.
func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "0" {
		ct.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(taskwarriorTimeLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse Taskwarrior time string '%s': %w", s, err)
	}
	ct.Time = t
	return nil
}

// MarshalJSON implements the json.Marshaler interface for CustomTime.
func (ct CustomTime) MarshalJSON() ([]byte, error) {
	if ct.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + ct.Time.Format(taskwarriorTimeLayout) + `"`), nil
}

// set reports whether ct holds a real timestamp.
func (ct *CustomTime) set() bool {
	return ct != nil && !ct.Time.IsZero()
}

type Annotation struct {
	Description string      `json:"description"`
	Entry       *CustomTime `json:"entry"`
}

// Task is one record of `task export`.
type Task struct {
	UUID        string       `json:"uuid"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	Priority    string       `json:"priority,omitempty"`
	Project     string       `json:"project,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Entry       *CustomTime  `json:"entry,omitempty"`
	Due         *CustomTime  `json:"due,omitempty"`
	Scheduled   *CustomTime  `json:"scheduled,omitempty"`
	Start       *CustomTime  `json:"start,omitempty"`
	End         *CustomTime  `json:"end,omitempty"`
}

// ToTask maps a Taskwarrior record onto a tracked task. The project, when
// present, becomes a "project:<name>" tag.
func (t Task) ToTask() *model.Task {
	out := &model.Task{
		ID:       t.UUID,
		Title:    strings.TrimSpace(t.Description),
		Priority: mapPriority(t.Priority),
		Status:   mapStatus(t),
	}

	if t.Entry.set() {
		out.CreatedAt = t.Entry.Time
	}
	if t.Due.set() {
		due := t.Due.Time.Local()
		out.DueDate = &due
	}
	if out.Status == model.StatusDone && t.End.set() {
		end := t.End.Time.Local()
		out.CompletedAt = &end
	}

	for _, tag := range t.Tags {
		out.AddTag(tag)
	}
	if t.Project != "" {
		out.AddTag("project:" + t.Project)
	}

	notes := make([]string, 0, len(t.Annotations))
	for _, a := range t.Annotations {
		if d := strings.TrimSpace(a.Description); d != "" {
			notes = append(notes, d)
		}
	}
	out.Description = strings.Join(notes, "\n")

	return out
}

func mapStatus(t Task) model.Status {
	switch t.Status {
	case COMPLETED:
		return model.StatusDone
	case DELETED:
		return model.StatusAbandoned
	case PENDING:
		if t.Start.set() {
			return model.StatusInProgress
		}
		return model.StatusTodo
	default:
		return model.StatusTodo
	}
}

func mapPriority(p string) model.Priority {
	switch strings.ToUpper(p) {
	case "H":
		return model.PriorityHigh
	case "L":
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

// ToTasks maps records with ToTask, skipping recurrence templates and
// records without a description.
func ToTasks(tasks []Task) []*model.Task {
	out := make([]*model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == RECURRING || strings.TrimSpace(t.Description) == "" {
			continue
		}
		out = append(out, t.ToTask())
	}
	return out
}
