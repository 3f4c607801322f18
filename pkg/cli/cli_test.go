package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/tasktrack/pkg/export"
	"github.com/harrisonrobin/tasktrack/pkg/model"
)

// isolate points configuration at a temp dir and clears env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TASKTRACK_CONFIG", filepath.Join(dir, "config.toml"))
	for _, k := range []string{"TASKTRACK_BACKEND", "TASKTRACK_STORE", "TASKTRACK_DSN", "TASKTRACK_CALENDAR", "TASKTRACK_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "tasktrack %s", strings.Join(args, " "))
	return out
}

func createdID(t *testing.T, out string) string {
	t.Helper()
	id, ok := strings.CutPrefix(strings.TrimSpace(out), "Created task ")
	require.True(t, ok, out)
	return id
}

func TestTaskLifecycle(t *testing.T) {
	dir := isolate(t)
	store := filepath.Join(dir, "tasks.json")
	tomorrow := time.Now().AddDate(0, 0, 1).Format(model.DateLayout)

	id := createdID(t, mustRun(t, "--store", store, "add", "Buy", "milk", "-p", "3", "--due", tomorrow, "-t", "shop"))

	out := mustRun(t, "--store", store, "list")
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "+shop")

	out = mustRun(t, "--store", store, "show", id[:8])
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, tomorrow)

	out = mustRun(t, "--store", store, "status", id, "done")
	assert.Contains(t, out, "Updated")

	out = mustRun(t, "--store", store, "list", "--status", "done", "--json")
	tasks, err := export.Read(strings.NewReader(out), export.FormatJSON)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.StatusDone, tasks[0].Status)
	assert.NotNil(t, tasks[0].CompletedAt)

	out = mustRun(t, "--store", store, "tag", "rm", id, "nope")
	assert.Contains(t, out, "has no tag")

	out = mustRun(t, "--store", store, "stats", "--json")
	var stats struct {
		Total    int            `json:"total"`
		ByStatus map[string]int `json:"by_status"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.ByStatus["done"])

	out = mustRun(t, "--store", store, "delete", id)
	assert.Contains(t, out, "Deleted")
	out = mustRun(t, "--store", store, "list")
	assert.Equal(t, "No tasks.\n", out)
}

func TestErrors(t *testing.T) {
	dir := isolate(t)
	store := filepath.Join(dir, "tasks.json")
	id := createdID(t, mustRun(t, "--store", store, "add", "x"))

	_, err := run(t, "--store", store, "status", "does-not-exist", "done")
	assert.ErrorIs(t, err, errNotFound)

	_, err = run(t, "--store", store, "priority", id, "high")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = run(t, "--store", store, "priority", id, "7")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = run(t, "--store", store, "add", "y", "--due", "tomorrow")
	assert.ErrorIs(t, err, model.ErrInvalidDate)

	_, err = run(t, "--store", store, "list", "--status", "later")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = run(t, "--store", store, "export", "--format", "docx")
	assert.ErrorIs(t, err, export.ErrUnknownFormat)
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := isolate(t)
	src := filepath.Join(dir, "src.json")
	dst := filepath.Join(dir, "dst.db")
	backup := filepath.Join(dir, "backup.yaml")

	mustRun(t, "--store", src, "add", "one", "-t", "a")
	mustRun(t, "--store", src, "add", "two", "-p", "1")
	mustRun(t, "--store", src, "export", "-f", "yaml", "-o", backup)

	out := mustRun(t, "--backend", "sqlite", "--store", dst, "import", "--from", "yaml", backup)
	assert.Contains(t, out, "Imported 2 tasks (0 skipped)")

	out = mustRun(t, "--backend", "sqlite", "--store", dst, "import", "--from", "yaml", backup)
	assert.Contains(t, out, "Imported 0 tasks (2 skipped)")

	out = mustRun(t, "--backend", "sqlite", "--store", dst, "list", "--priority", "1")
	assert.Contains(t, out, "two")
	assert.NotContains(t, out, "one")
}

func TestImportOrg(t *testing.T) {
	dir := isolate(t)
	store := filepath.Join(dir, "tasks.json")
	org := filepath.Join(dir, "todo.org")
	require.NoError(t, os.WriteFile(org, []byte("* TODO [#A] Call plumber :home:\n  DEADLINE: <2030-01-02 Wed>\n* DONE Old thing\n"), 0600))

	out := mustRun(t, "--store", store, "import", "--from", "org", org)
	assert.Contains(t, out, "Imported 2 tasks")

	out = mustRun(t, "--store", store, "list", "--priority", "3")
	assert.Contains(t, out, "Call plumber")
	assert.Contains(t, out, "2030-01-02")

	_, err := run(t, "--store", store, "import", "--from", "org")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestImportOrgRepeatedIDAcrossFiles(t *testing.T) {
	dir := isolate(t)
	store := filepath.Join(dir, "tasks.json")
	a := filepath.Join(dir, "a.org")
	b := filepath.Join(dir, "b.org")
	entry := "* TODO Shared\n  :PROPERTIES:\n  :ID: shared-1\n  :END:\n"
	require.NoError(t, os.WriteFile(a, []byte(entry), 0600))
	require.NoError(t, os.WriteFile(b, []byte(entry+"* TODO Only in b\n"), 0600))

	out := mustRun(t, "--store", store, "import", "--from", "org", a, b)
	assert.Contains(t, out, "Imported 2 tasks (1 skipped)")
}

func TestImportTaskwarriorFile(t *testing.T) {
	dir := isolate(t)
	store := filepath.Join(dir, "tasks.json")
	file := filepath.Join(dir, "export.json")
	data := `[{"uuid":"5b0e3f10-0000-4000-8000-000000000001","description":"Fix bike","status":"pending","priority":"H","due":"20300101T120000Z"}]`
	require.NoError(t, os.WriteFile(file, []byte(data), 0600))

	out := mustRun(t, "--store", store, "import", "--from", "taskwarrior", file)
	assert.Contains(t, out, "Imported 1 tasks")

	out = mustRun(t, "--store", store, "show", "5b0e3f10")
	assert.Contains(t, out, "Fix bike")
	assert.Contains(t, out, "high")
}

func TestConfigSetCalendar(t *testing.T) {
	dir := isolate(t)

	out := mustRun(t, "config", "set-calendar", "Work")
	assert.Contains(t, out, "Work")

	data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `calendar = "Work"`)

	out = mustRun(t, "--store", filepath.Join(dir, "t.json"), "config", "show")
	assert.Contains(t, out, "calendar  = Work")
	assert.Contains(t, out, "backend   = json")
}

func TestMaskDSN(t *testing.T) {
	got := maskDSN("bob:secret@tcp(db:3306)/tasks?parseTime=true")
	assert.NotContains(t, got, "secret")
	assert.Contains(t, got, "bob:****@tcp(db:3306)/tasks")
	assert.Equal(t, "(unparsable dsn)", maskDSN("bob:secret@tcp(db:3306)"))
}
