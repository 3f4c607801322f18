// Package render prints tasks and statistics for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/tasktrack/pkg/manager"
	"github.com/harrisonrobin/tasktrack/pkg/model"
)

const shortIDLen = 8

type styles struct {
	priority  map[model.Priority]lipgloss.Style
	done      lipgloss.Style
	abandoned lipgloss.Style
	overdue   lipgloss.Style
	label     lipgloss.Style
	tag       lipgloss.Style
}

// newStyles binds styles to w so that color is dropped when w is not a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		priority: map[model.Priority]lipgloss.Style{
			model.PriorityHigh:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			model.PriorityMedium: r.NewStyle().Foreground(lipgloss.Color("11")),
			model.PriorityLow:    r.NewStyle().Foreground(lipgloss.Color("10")),
		},
		done:      r.NewStyle().Faint(true),
		abandoned: r.NewStyle().Strikethrough(true),
		overdue:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		label:     r.NewStyle().Bold(true),
		tag:       r.NewStyle().Foreground(lipgloss.Color("12")),
	}
}

// ShortID returns the leading part of id used in listings.
func ShortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// Tasks prints one line per task.
func Tasks(w io.Writer, tasks []*model.Task, now time.Time) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks.")
		return err
	}
	st := newStyles(w)
	for _, t := range tasks {
		if _, err := fmt.Fprintln(w, taskLine(st, t, now)); err != nil {
			return err
		}
	}
	return nil
}

func taskLine(st styles, t *model.Task, now time.Time) string {
	mark := " "
	if t.IsOverdue(now) {
		mark = st.overdue.Render("!")
	}

	due := "-"
	if t.DueDate != nil {
		due = t.DueDate.Format(model.DateLayout)
	}

	title := t.Title
	switch t.Status {
	case model.StatusDone:
		title = st.done.Render(title)
	case model.StatusAbandoned:
		title = st.abandoned.Render(title)
	}

	line := fmt.Sprintf("%s %-8s %-11s %s %-10s %s",
		mark,
		ShortID(t.ID),
		t.Status,
		st.priority[t.Priority].Render(fmt.Sprintf("%-6s", t.Priority)),
		due,
		title,
	)
	if len(t.Tags) > 0 {
		line += " " + st.tag.Render(formatTags(t.Tags))
	}
	return line
}

// Details prints every field of a task.
func Details(w io.Writer, t *model.Task, now time.Time) error {
	st := newStyles(w)
	var b strings.Builder

	row := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", st.label.Render(fmt.Sprintf("%-12s", label+":")), value)
	}

	row("ID", t.ID)
	row("Title", t.Title)
	if t.Description != "" {
		row("Description", t.Description)
	}
	row("Priority", st.priority[t.Priority].Render(t.Priority.String()))
	row("Status", string(t.Status))
	if t.DueDate != nil {
		due := t.DueDate.Format(model.DateLayout)
		if t.IsOverdue(now) {
			due += " " + st.overdue.Render("(overdue)")
		}
		row("Due", due)
	}
	if len(t.Tags) > 0 {
		row("Tags", st.tag.Render(formatTags(t.Tags)))
	}
	row("Created", t.CreatedAt.Format(time.DateTime))
	if t.CompletedAt != nil {
		row("Completed", t.CompletedAt.Format(time.DateTime))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Statistics prints counts grouped by status and priority.
func Statistics(w io.Writer, s manager.Statistics) error {
	st := newStyles(w)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %d\n", st.label.Render("Total:"), s.Total)

	fmt.Fprintln(&b, st.label.Render("By status:"))
	for _, status := range model.Statuses {
		fmt.Fprintf(&b, "  %-12s %d\n", status, s.ByStatus[status])
	}

	fmt.Fprintln(&b, st.label.Render("By priority:"))
	for i := len(model.Priorities) - 1; i >= 0; i-- {
		p := model.Priorities[i]
		name := st.priority[p].Render(fmt.Sprintf("%-12s", p))
		fmt.Fprintf(&b, "  %s %d\n", name, s.ByPriority[p])
	}

	overdue := fmt.Sprint(s.Overdue)
	if s.Overdue > 0 {
		overdue = st.overdue.Render(overdue)
	}
	fmt.Fprintf(&b, "%s %s\n", st.label.Render("Overdue:"), overdue)
	fmt.Fprintf(&b, "%s %d\n", st.label.Render("Done in last 7 days:"), s.CompletedLastWeek)

	_, err := io.WriteString(w, b.String())
	return err
}

func formatTags(tags []string) string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = "+" + t
	}
	return strings.Join(out, " ")
}
