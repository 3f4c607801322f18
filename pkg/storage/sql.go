package storage

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrisonrobin/tasktrack/pkg/model"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_mysql.sql
var mysqlSchema string

const taskColumns = `id, title, description, priority, status, due_date, tags, created_at, completed_at`

type dialect struct {
	driver string
	schema string
	upsert string
}

var (
	sqliteDialect = dialect{
		driver: "sqlite3",
		schema: sqliteSchema,
		upsert: `INSERT INTO tasks (` + taskColumns + `)
			VALUES (:id, :title, :description, :priority, :status, :due_date, :tags, :created_at, :completed_at)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				priority = excluded.priority,
				status = excluded.status,
				due_date = excluded.due_date,
				tags = excluded.tags,
				completed_at = excluded.completed_at`,
	}
	mysqlDialect = dialect{
		driver: "mysql",
		schema: mysqlSchema,
		upsert: `INSERT INTO tasks (` + taskColumns + `)
			VALUES (:id, :title, :description, :priority, :status, :due_date, :tags, :created_at, :completed_at)
			ON DUPLICATE KEY UPDATE
				title = VALUES(title),
				description = VALUES(description),
				priority = VALUES(priority),
				status = VALUES(status),
				due_date = VALUES(due_date),
				tags = VALUES(tags),
				completed_at = VALUES(completed_at)`,
	}
)

type taskRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Priority    int            `db:"priority"`
	Status      string         `db:"status"`
	DueDate     sql.NullString `db:"due_date"`
	Tags        string         `db:"tags"`
	CreatedAt   string         `db:"created_at"`
	CompletedAt sql.NullString `db:"completed_at"`
}

// SQLStore keeps tasks in a relational database. Tasks handed out by Get
// and the listing methods are tracked so Save can write back in-place
// mutations in a single transaction.
type SQLStore struct {
	db      *sqlx.DB
	dialect dialect
	loaded  map[string]*model.Task
}

// NewSQLiteStore opens (and creates if needed) a SQLite database at path.
func NewSQLiteStore(path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", model.ErrInvalidArgument)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	return openSQL(sqliteDialect, path+"?_fk=1")
}

// NewMySQLStore connects to a MySQL server using a go-sql-driver DSN.
func NewMySQLStore(dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty mysql dsn", model.ErrInvalidArgument)
	}
	return openSQL(mysqlDialect, dsn)
}

func openSQL(d dialect, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s database: %w", d.driver, err)
	}

	for _, stmt := range strings.Split(d.schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
	}

	return &SQLStore{db: db, dialect: d, loaded: make(map[string]*model.Task)}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Add(task *model.Task) (string, error) {
	if err := prepareNew(task); err != nil {
		return "", err
	}

	var n int
	if err := s.db.Get(&n, s.db.Rebind(`SELECT COUNT(*) FROM tasks WHERE id = ?`), task.ID); err != nil {
		return "", fmt.Errorf("check task id: %w", err)
	}
	if n > 0 {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, task.ID)
	}

	row, err := toRow(task)
	if err != nil {
		return "", err
	}
	if _, err := s.db.NamedExec(s.dialect.upsert, row); err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	s.loaded[task.ID] = task
	return task.ID, nil
}

func (s *SQLStore) Get(id string) (*model.Task, error) {
	if t, ok := s.loaded[id]; ok {
		return t, nil
	}

	var row taskRow
	err := s.db.Get(&row, s.db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return s.track(row)
}

func (s *SQLStore) Update(id string, u model.TaskUpdate) (bool, error) {
	task, err := s.Get(id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	next := task.Clone()
	u.Apply(next)
	row, err := toRow(next)
	if err != nil {
		return false, err
	}
	if _, err := s.db.NamedExec(s.dialect.upsert, row); err != nil {
		return false, fmt.Errorf("update task %s: %w", id, err)
	}
	*task = *next
	return true, nil
}

func (s *SQLStore) Delete(id string) (bool, error) {
	res, err := s.db.Exec(s.db.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("delete task %s: %w", id, err)
	}
	delete(s.loaded, id)
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLStore) All() ([]*model.Task, error) {
	return s.query(`SELECT ` + taskColumns + ` FROM tasks ORDER BY seq`)
}

func (s *SQLStore) ByStatus(status model.Status) ([]*model.Task, error) {
	return s.query(`SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY seq`, string(status))
}

func (s *SQLStore) ByPriority(priority model.Priority) ([]*model.Task, error) {
	return s.query(`SELECT `+taskColumns+` FROM tasks WHERE priority = ? ORDER BY seq`, int(priority))
}

func (s *SQLStore) Overdue(now time.Time) ([]*model.Task, error) {
	candidates, err := s.query(`SELECT `+taskColumns+` FROM tasks
		WHERE due_date IS NOT NULL AND status <> ? ORDER BY seq`, string(model.StatusDone))
	if err != nil {
		return nil, err
	}
	return filter(candidates, func(t *model.Task) bool { return t.IsOverdue(now) }), nil
}

// Save writes every tracked task back in one transaction.
func (s *SQLStore) Save() error {
	if len(s.loaded) == 0 {
		return nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for id, task := range s.loaded {
		row, err := toRow(task)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExec(s.dialect.upsert, row); err != nil {
			return fmt.Errorf("save task %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *SQLStore) query(q string, args ...any) ([]*model.Task, error) {
	var rows []taskRow
	if err := s.db.Select(&rows, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	tasks := make([]*model.Task, 0, len(rows))
	for _, row := range rows {
		t, err := s.track(row)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// track returns the already-tracked task for row, or decodes and tracks it.
func (s *SQLStore) track(row taskRow) (*model.Task, error) {
	if t, ok := s.loaded[row.ID]; ok {
		return t, nil
	}
	t, err := fromRow(row)
	if err != nil {
		return nil, err
	}
	s.loaded[t.ID] = t
	return t, nil
}

func toRow(t *model.Task) (taskRow, error) {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return taskRow{}, fmt.Errorf("encode tags: %w", err)
	}
	return taskRow{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    int(t.Priority),
		Status:      string(t.Status),
		DueDate:     formatTime(t.DueDate),
		Tags:        string(encoded),
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
		CompletedAt: formatTime(t.CompletedAt),
	}, nil
}

func fromRow(row taskRow) (*model.Task, error) {
	t := &model.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Priority:    model.Priority(row.Priority),
		Status:      model.Status(row.Status),
	}
	if err := json.Unmarshal([]byte(row.Tags), &t.Tags); err != nil {
		return nil, fmt.Errorf("%w: tags of task %s: %w", ErrCorrupt, row.ID, err)
	}
	if len(t.Tags) == 0 {
		t.Tags = nil
	}

	created, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: created_at of task %s: %w", ErrCorrupt, row.ID, err)
	}
	t.CreatedAt = created.Local()

	if t.DueDate, err = parseTime(row.DueDate); err != nil {
		return nil, fmt.Errorf("%w: due_date of task %s: %w", ErrCorrupt, row.ID, err)
	}
	if t.CompletedAt, err = parseTime(row.CompletedAt); err != nil {
		return nil, fmt.Errorf("%w: completed_at of task %s: %w", ErrCorrupt, row.ID, err)
	}
	return t, nil
}

func formatTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, err
	}
	t = t.Local()
	return &t, nil
}
