// Package manager implements task lifecycle operations on top of a Storage.
package manager

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harrisonrobin/tasktrack/pkg/logging"
	"github.com/harrisonrobin/tasktrack/pkg/model"
	"github.com/harrisonrobin/tasktrack/pkg/storage"
)

var ErrStoreNil = errors.New("task store is nil")

// AbandonAfterDays is how long past its due date a task may sit before the
// sweep abandons it.
const AbandonAfterDays = 7

// Manager is a stateless façade over one Storage.
type Manager struct {
	store  storage.Storage
	now    func() time.Time
	logger *log.Logger
}

type Option func(*Manager)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func New(store storage.Storage, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	m := &Manager{
		store:  store,
		now:    time.Now,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Open builds a Manager on the storage backend at location.
func Open(backend, location string, opts ...Option) (*Manager, error) {
	store, err := storage.Open(backend, location)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	return New(store, opts...)
}

func (m *Manager) Close() error {
	return m.store.Close()
}

// CreateTask validates its inputs, stores a new task and returns its ID.
// An empty dueDate means no due date.
func (m *Manager) CreateTask(title, description string, priority int, dueDate string, tags []string) (string, error) {
	p, err := model.ParsePriority(priority)
	if err != nil {
		return "", err
	}

	var due *time.Time
	if strings.TrimSpace(dueDate) != "" {
		d, err := model.ParseDueDate(dueDate)
		if err != nil {
			return "", err
		}
		due = &d
	}

	task := model.NewTask(strings.TrimSpace(title))
	task.Description = description
	task.Priority = p
	task.DueDate = due
	task.CreatedAt = m.now()
	for _, tag := range tags {
		task.AddTag(tag)
	}

	id, err := m.store.Add(task)
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	m.logger.Debug("task created", "id", id, "priority", p)
	return id, nil
}

// ListFilter selects tasks for ListTasks. At most one filter applies, in
// the order Overdue, Status, Priority.
type ListFilter struct {
	Status   string
	Priority *int
	Overdue  bool
}

func (m *Manager) ListTasks(f ListFilter) ([]*model.Task, error) {
	if f.Overdue {
		return m.store.Overdue(m.now())
	}

	if f.Status != "" {
		st, err := model.ParseStatus(f.Status)
		if err != nil {
			return nil, err
		}
		return m.store.ByStatus(st)
	}

	if f.Priority != nil {
		p, err := model.ParsePriority(*f.Priority)
		if err != nil {
			return nil, err
		}
		return m.store.ByPriority(p)
	}

	return m.store.All()
}

// UpdateTaskStatus sets the status of a task. Moving to done also stamps
// the completion time. It returns false when the task does not exist.
func (m *Manager) UpdateTaskStatus(id, status string) (bool, error) {
	st, err := model.ParseStatus(status)
	if err != nil {
		return false, err
	}

	task, err := m.lookup(id)
	if err != nil || task == nil {
		return false, err
	}

	task.Status = st
	if st == model.StatusDone {
		task.MarkAsDone(m.now())
	}
	if err := m.store.Save(); err != nil {
		return false, fmt.Errorf("save task %s: %w", id, err)
	}
	m.logger.Debug("task status updated", "id", id, "status", st)
	return true, nil
}

func (m *Manager) UpdateTaskPriority(id string, priority int) (bool, error) {
	p, err := model.ParsePriority(priority)
	if err != nil {
		return false, err
	}
	return m.update(id, model.WithPriority(p))
}

func (m *Manager) UpdateTaskDueDate(id, dueDate string) (bool, error) {
	d, err := model.ParseDueDate(dueDate)
	if err != nil {
		return false, err
	}
	return m.update(id, model.WithDueDate(d))
}

func (m *Manager) DeleteTask(id string) (bool, error) {
	ok, err := m.store.Delete(id)
	if err != nil {
		return false, fmt.Errorf("delete task %s: %w", id, err)
	}
	if ok {
		m.logger.Debug("task deleted", "id", id)
	}
	return ok, nil
}

// GetTaskDetails returns nil without error when the task does not exist.
func (m *Manager) GetTaskDetails(id string) (*model.Task, error) {
	return m.lookup(id)
}

func (m *Manager) AddTagToTask(id, tag string) (bool, error) {
	task, err := m.lookup(id)
	if err != nil || task == nil {
		return false, err
	}
	task.AddTag(tag)
	if err := m.store.Save(); err != nil {
		return false, fmt.Errorf("save task %s: %w", id, err)
	}
	return true, nil
}

// RemoveTagFromTask persists only when the tag was actually present.
func (m *Manager) RemoveTagFromTask(id, tag string) (bool, error) {
	task, err := m.lookup(id)
	if err != nil || task == nil {
		return false, err
	}
	if !task.RemoveTag(tag) {
		return false, nil
	}
	if err := m.store.Save(); err != nil {
		return false, fmt.Errorf("save task %s: %w", id, err)
	}
	return true, nil
}

// AbandonOverdueTasks abandons every unresolved task that is more than
// AbandonAfterDays overdue. High priority tasks are never abandoned.
// It returns how many tasks were abandoned.
func (m *Manager) AbandonOverdueTasks() (int, error) {
	tasks, err := m.store.All()
	if err != nil {
		return 0, fmt.Errorf("list tasks: %w", err)
	}

	now := m.now()
	abandoned := 0
	for _, task := range tasks {
		overdue := task.IsOverdueByMoreThanDays(now, AbandonAfterDays)
		resolved := task.IsResolved()
		high := task.Priority == model.PriorityHigh

		if !overdue || resolved || high {
			continue
		}
		ok, err := m.store.Update(task.ID, model.WithStatus(model.StatusAbandoned))
		if err != nil {
			return abandoned, fmt.Errorf("abandon task %s: %w", task.ID, err)
		}
		if ok {
			abandoned++
			m.logger.Info("task abandoned", "id", task.ID, "title", task.Title, "due", task.DueDate.Format(model.DateLayout))
		}
	}
	return abandoned, nil
}

// ImportTasks adds prepared tasks, e.g. from an importer. Tasks without an
// ID get a fresh one. A task whose ID is already stored, or repeats an
// earlier task of the same batch, is skipped. The whole batch is validated
// before anything is stored. It returns how many tasks were added.
func (m *Manager) ImportTasks(tasks []*model.Task) (int, error) {
	for _, task := range tasks {
		if task == nil {
			return 0, fmt.Errorf("%w: nil task", model.ErrInvalidArgument)
		}
		if err := task.Validate(); err != nil {
			return 0, fmt.Errorf("import task %q: %w", task.Title, err)
		}
	}

	seen := make(map[string]bool, len(tasks))
	added := 0
	for _, task := range tasks {
		if task.ID != "" {
			if seen[task.ID] {
				m.logger.Debug("duplicate task skipped", "id", task.ID, "title", task.Title)
				continue
			}
			seen[task.ID] = true
			existing, err := m.lookup(task.ID)
			if err != nil {
				return added, err
			}
			if existing != nil {
				m.logger.Debug("stored task skipped", "id", task.ID)
				continue
			}
		}
		if task.CreatedAt.IsZero() {
			task.CreatedAt = m.now()
		}
		if _, err := m.store.Add(task); err != nil {
			return added, fmt.Errorf("import task %q: %w", task.Title, err)
		}
		added++
	}
	m.logger.Debug("tasks imported", "count", added, "skipped", len(tasks)-added)
	return added, nil
}

func (m *Manager) update(id string, u model.TaskUpdate) (bool, error) {
	ok, err := m.store.Update(id, u)
	if err != nil {
		return false, fmt.Errorf("update task %s: %w", id, err)
	}
	return ok, nil
}

// lookup returns nil, nil when the task does not exist.
func (m *Manager) lookup(id string) (*model.Task, error) {
	task, err := m.store.Get(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}
