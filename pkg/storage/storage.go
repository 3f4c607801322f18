// Package storage persists tasks. A Storage hands out live task pointers:
// callers may mutate a task returned by Get or All and then call Save.
package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/tasktrack/pkg/model"
)

var (
	ErrNotFound       = errors.New("task not found")
	ErrDuplicateID    = errors.New("task id already exists")
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrCorrupt        = errors.New("task store is corrupt")
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Storage is a mapping from task ID to task.
type Storage interface {
	// Add stores a new task, assigning an ID when it has none.
	Add(task *model.Task) (string, error)
	// Get returns ErrNotFound when no task has the given ID.
	Get(id string) (*model.Task, error)
	// Update merges u into the stored task and persists it. It returns
	// false when no task has the given ID.
	Update(id string, u model.TaskUpdate) (bool, error)
	Delete(id string) (bool, error)
	// All returns every task in creation order.
	All() ([]*model.Task, error)
	ByStatus(status model.Status) ([]*model.Task, error)
	ByPriority(priority model.Priority) ([]*model.Task, error)
	Overdue(now time.Time) ([]*model.Task, error)
	// Save flushes in-place mutations of handed-out tasks.
	Save() error
	Close() error
}

// Open returns the Storage for backend. location is a file path for the
// json and sqlite backends and a DSN for mysql.
func Open(backend, location string) (Storage, error) {
	switch backend {
	case BackendJSON, "":
		s, err := NewFileStore(location)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := NewSQLiteStore(location)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMySQL:
		s, err := NewMySQLStore(location)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

// prepareNew validates a task about to be added and assigns its ID.
func prepareNew(task *model.Task) error {
	if task == nil {
		return fmt.Errorf("%w: nil task", model.ErrInvalidArgument)
	}
	if err := task.Validate(); err != nil {
		return err
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	return nil
}

func filter(tasks []*model.Task, keep func(*model.Task) bool) []*model.Task {
	out := make([]*model.Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
