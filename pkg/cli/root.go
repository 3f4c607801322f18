// Package cli wires the task manager, importers, exporters and calendar
// sync into the tasktrack command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasktrack/pkg/config"
	"github.com/harrisonrobin/tasktrack/pkg/logging"
	"github.com/harrisonrobin/tasktrack/pkg/manager"
	"github.com/harrisonrobin/tasktrack/pkg/model"
)

var errNotFound = errors.New("task not found")

// app carries global flags and the state resolved from them.
type app struct {
	backend  string
	store    string
	logLevel string

	cfg    *config.Config
	logger *log.Logger
	now    func() time.Time
}

// NewRootCmd builds the tasktrack command tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{now: time.Now}

	root := &cobra.Command{
		Use:   "tasktrack",
		Short: "A personal task tracker",
		Long: `tasktrack keeps a list of tasks with priorities, due dates and tags.

Tasks live in a JSON file by default; SQLite and MySQL are also supported.
Tasks with due dates can be mirrored to a Google Calendar.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.backend, "backend", "", "storage backend: json, sqlite or mysql (overrides config)")
	root.PersistentFlags().StringVar(&a.store, "store", "", "store file path, or DSN for mysql (overrides config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		a.addCmd(),
		a.listCmd(),
		a.showCmd(),
		a.statusCmd(),
		a.priorityCmd(),
		a.dueCmd(),
		a.deleteCmd(),
		a.tagCmd(),
		a.statsCmd(),
		a.abandonCmd(),
		a.importCmd(),
		a.exportCmd(),
		a.syncCmd(),
		a.authCmd(),
		a.configCmd(),
	)
	return root
}

// Execute runs the root command and reports the error on stderr.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// setup resolves configuration: defaults, then the config file, then
// environment, then flags.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.backend != "" {
		cfg.Backend = strings.ToLower(a.backend)
	}
	if a.store != "" {
		if cfg.Backend == "mysql" {
			cfg.DSN = a.store
		} else {
			cfg.StorePath = a.store
		}
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	opts := logging.DefaultOptions()
	opts.Level = logging.ParseLevel(cfg.LogLevel)
	a.logger = logging.New(cmd.ErrOrStderr(), opts)
	return nil
}

func (a *app) openManager() (*manager.Manager, error) {
	location, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("opening store", "backend", a.cfg.Backend, "location", location)
	return manager.Open(a.cfg.Backend, location,
		manager.WithLogger(a.logger),
		manager.WithClock(a.now),
	)
}

// withManager opens the store for the duration of fn.
func (a *app) withManager(fn func(m *manager.Manager) error) error {
	m, err := a.openManager()
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			a.logger.Warn("could not close store", "err", err)
		}
	}()
	return fn(m)
}

// resolveID accepts a full ID or an unambiguous prefix of one, as printed
// by list.
func resolveID(m *manager.Manager, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("%w: empty task id", model.ErrInvalidArgument)
	}
	task, err := m.GetTaskDetails(id)
	if err != nil {
		return "", err
	}
	if task != nil {
		return id, nil
	}

	all, err := m.ListTasks(manager.ListFilter{})
	if err != nil {
		return "", err
	}
	var matches []string
	for _, t := range all {
		if strings.HasPrefix(t.ID, id) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", errNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: id prefix %q matches %d tasks", model.ErrInvalidArgument, id, len(matches))
	}
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", errNotFound, id)
}
