package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/harrisonrobin/tasktrack/pkg/model"
)

const fileVersion = 1

type document struct {
	Version int           `json:"version"`
	Tasks   []*model.Task `json:"tasks"`
}

// FileStore keeps every task in a single JSON document. Each mutation
// rewrites the whole file.
type FileStore struct {
	Path  string
	tasks []*model.Task
}

// NewFileStore opens the store at path. A missing file is an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty store path", model.ErrInvalidArgument)
	}
	s := &FileStore{Path: path}

	if _, err := os.Stat(path); err == nil {
		if err := s.Load(); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat task store %s: %w", path, err)
	}

	return s, nil
}

// Load replaces the in-memory tasks with the file contents.
func (s *FileStore) Load() error {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return fmt.Errorf("read task store: %w", err)
	}
	tasks, err := ReadDocument(data)
	if err != nil {
		return fmt.Errorf("%s: %w", s.Path, err)
	}
	s.tasks = tasks
	return nil
}

// Save writes every task to a temporary file next to the store and renames
// it into place.
func (s *FileStore) Save() error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+"-*")
	if err != nil {
		return fmt.Errorf("create task store: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := WriteDocument(f, s.tasks); err != nil {
		f.Close()
		return fmt.Errorf("write task store: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write task store: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("replace task store: %w", err)
	}
	return nil
}

// ReadDocument decodes a task document after checking it against the
// document schema. Blank input is an empty list.
func ReadDocument(data []byte) ([]*model.Task, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if err := validateDocument(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return doc.Tasks, nil
}

// WriteDocument encodes tasks as a versioned document with 2-space indentation.
func WriteDocument(w io.Writer, tasks []*model.Task) error {
	doc := document{Version: fileVersion, Tasks: tasks}
	if doc.Tasks == nil {
		doc.Tasks = []*model.Task{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) Add(task *model.Task) (string, error) {
	if err := prepareNew(task); err != nil {
		return "", err
	}
	if s.index(task.ID) >= 0 {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, task.ID)
	}
	s.tasks = append(s.tasks, task)
	if err := s.Save(); err != nil {
		s.tasks = s.tasks[:len(s.tasks)-1]
		return "", err
	}
	return task.ID, nil
}

func (s *FileStore) Get(id string) (*model.Task, error) {
	i := s.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.tasks[i], nil
}

func (s *FileStore) Update(id string, u model.TaskUpdate) (bool, error) {
	i := s.index(id)
	if i < 0 {
		return false, nil
	}
	task := s.tasks[i]
	prev := *task.Clone()
	u.Apply(task)
	if err := s.Save(); err != nil {
		*task = prev
		return false, err
	}
	return true, nil
}

func (s *FileStore) Delete(id string) (bool, error) {
	i := s.index(id)
	if i < 0 {
		return false, nil
	}
	prev := s.tasks
	s.tasks = slices.Delete(slices.Clone(s.tasks), i, i+1)
	if err := s.Save(); err != nil {
		s.tasks = prev
		return false, err
	}
	return true, nil
}

func (s *FileStore) All() ([]*model.Task, error) {
	return slices.Clone(s.tasks), nil
}

func (s *FileStore) ByStatus(status model.Status) ([]*model.Task, error) {
	return filter(s.tasks, func(t *model.Task) bool { return t.Status == status }), nil
}

func (s *FileStore) ByPriority(priority model.Priority) ([]*model.Task, error) {
	return filter(s.tasks, func(t *model.Task) bool { return t.Priority == priority }), nil
}

func (s *FileStore) Overdue(now time.Time) ([]*model.Task, error) {
	return filter(s.tasks, func(t *model.Task) bool { return t.IsOverdue(now) }), nil
}

func (s *FileStore) index(id string) int {
	return slices.IndexFunc(s.tasks, func(t *model.Task) bool { return t.ID == id })
}
