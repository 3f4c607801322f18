// Package orgmode imports task headlines from Org-mode files.
package orgmode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/harrisonrobin/tasktrack/pkg/model"
)

var (
	headlineRegex = regexp.MustCompile(`^\*+\s+(?:([A-Z]+)\s+)?(?:\[#([A-Z])\]\s*)?(.*?)(?:\s+(:[\w@#%:]+:))?\s*$`)
	deadlineRegex = regexp.MustCompile(`DEADLINE:\s+<(\d{4}-\d{2}-\d{2})[^>]*>`)
	closedRegex   = regexp.MustCompile(`CLOSED:\s+\[(\d{4}-\d{2}-\d{2})(?:\s+[A-Za-z]{2,3})?(?:\s+(\d{2}:\d{2}))?\]`)
	idRegex       = regexp.MustCompile(`^:ID:\s+(\S+)`)
	drawerRegex   = regexp.MustCompile(`^:[A-Z_]+:`)
)

var keywordStatus = map[string]model.Status{
	"TODO":      model.StatusTodo,
	"NEXT":      model.StatusTodo,
	"WAITING":   model.StatusTodo,
	"STARTED":   model.StatusInProgress,
	"DONE":      model.StatusDone,
	"CANCELLED": model.StatusAbandoned,
	"CANCELED":  model.StatusAbandoned,
}

var cookiePriority = map[string]model.Priority{
	"A": model.PriorityHigh,
	"B": model.PriorityMedium,
	"C": model.PriorityLow,
}

// ParseFiles parses multiple Org-mode files and returns their tasks in order.
func ParseFiles(filePaths []string) ([]*model.Task, error) {
	var allTasks []*model.Task
	for _, filePath := range filePaths {
		tasks, err := parseFile(filePath)
		if err != nil {
			return nil, err
		}
		allTasks = append(allTasks, tasks...)
	}
	return allTasks, nil
}

func parseFile(filePath string) ([]*model.Task, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	tasks, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	return tasks, nil
}

// Parse returns one task per headline that carries a known TODO keyword.
// Headlines without a keyword end the current task and are skipped.
func Parse(r io.Reader) ([]*model.Task, error) {
	scanner := bufio.NewScanner(r)
	var tasks []*model.Task
	var current *model.Task
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Description = strings.TrimSpace(strings.Join(body, "\n"))
		tasks = append(tasks, current)
		current, body = nil, nil
	}

	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(raw, "*") {
			if m := headlineRegex.FindStringSubmatch(raw); m != nil {
				flush()
				current = newTask(m)
				continue
			}
		}
		if current == nil {
			continue
		}

		planning := false
		if m := deadlineRegex.FindStringSubmatch(line); m != nil {
			if d, err := model.ParseDueDate(m[1]); err == nil {
				current.DueDate = &d
			}
			planning = true
		}
		if m := closedRegex.FindStringSubmatch(line); m != nil {
			if c, ok := parseClosed(m[1], m[2]); ok && current.Status == model.StatusDone {
				current.CompletedAt = &c
			}
			planning = true
		}
		if planning || strings.HasPrefix(line, "SCHEDULED:") {
			continue
		}

		if m := idRegex.FindStringSubmatch(line); m != nil {
			current.ID = m[1]
			continue
		}
		if drawerRegex.MatchString(line) {
			continue
		}
		body = append(body, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// newTask builds a task from a headline match, or returns nil when the
// headline has no known keyword.
func newTask(m []string) *model.Task {
	status, ok := keywordStatus[m[1]]
	if !ok {
		return nil
	}
	title := strings.TrimSpace(m[3])
	if title == "" {
		return nil
	}

	task := model.NewTask(title)
	task.Status = status
	if p, ok := cookiePriority[m[2]]; ok {
		task.Priority = p
	}
	for _, tag := range strings.Split(strings.Trim(m[4], ":"), ":") {
		task.AddTag(tag)
	}
	return task
}

func parseClosed(date, clock string) (time.Time, bool) {
	layout, value := model.DateLayout, date
	if clock != "" {
		layout, value = model.DateLayout+" 15:04", date+" "+clock
	}
	t, err := time.ParseInLocation(layout, value, time.Local)
	return t, err == nil
}

// FilterByTag keeps the tasks that carry tag.
func FilterByTag(tasks []*model.Task, tag string) []*model.Task {
	var filtered []*model.Task
	for _, task := range tasks {
		if task.HasTag(tag) {
			filtered = append(filtered, task)
		}
	}
	return filtered
}
