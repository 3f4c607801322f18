package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasktrack/pkg/export"
	"github.com/harrisonrobin/tasktrack/pkg/manager"
	"github.com/harrisonrobin/tasktrack/pkg/model"
	"github.com/harrisonrobin/tasktrack/pkg/render"
)

func (a *app) addCmd() *cobra.Command {
	var (
		description string
		priority    int
		due         string
		tags        []string
	)
	cmd := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(func(m *manager.Manager) error {
				id, err := m.CreateTask(strings.Join(args, " "), description, priority, due, tags)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "longer description")
	cmd.Flags().IntVarP(&priority, "priority", "p", int(model.PriorityMedium), "priority: 1 low, 2 medium, 3 high")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "tag, may be repeated")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var (
		status   string
		priority int
		overdue  bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks. At most one filter applies: --overdue wins over --status,
which wins over --priority.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := manager.ListFilter{Status: status, Overdue: overdue}
			if cmd.Flags().Changed("priority") {
				f.Priority = &priority
			}
			return a.withManager(func(m *manager.Manager) error {
				tasks, err := m.ListTasks(f)
				if err != nil {
					return err
				}
				if asJSON {
					return export.Write(cmd.OutOrStdout(), export.FormatJSON, tasks)
				}
				return render.Tasks(cmd.OutOrStdout(), tasks, a.now())
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only tasks with this status")
	cmd.Flags().IntVar(&priority, "priority", 0, "only tasks with this priority")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only overdue tasks")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show every field of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(func(m *manager.Manager) error {
				id, err := resolveID(m, args[0])
				if err != nil {
					return err
				}
				task, err := m.GetTaskDetails(id)
				if err != nil {
					return err
				}
				if task == nil {
					return notFound(id)
				}
				return render.Details(cmd.OutOrStdout(), task, a.now())
			})
		},
	}
}

// mutateCmd builds a command that resolves an ID and applies op to it.
func (a *app) mutateCmd(use, short string, nargs int, done string, op func(m *manager.Manager, id string, args []string) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(func(m *manager.Manager) error {
				id, err := resolveID(m, args[0])
				if err != nil {
					return err
				}
				ok, err := op(m, id, args[1:])
				if err != nil {
					return err
				}
				if !ok {
					return notFound(id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, render.ShortID(id))
				return nil
			})
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return a.mutateCmd("status ID STATUS", "Set the status: todo, in_progress, done or abandoned", 2, "Updated",
		func(m *manager.Manager, id string, args []string) (bool, error) {
			return m.UpdateTaskStatus(id, args[0])
		})
}

func (a *app) priorityCmd() *cobra.Command {
	return a.mutateCmd("priority ID N", "Set the priority: 1 low, 2 medium, 3 high", 2, "Updated",
		func(m *manager.Manager, id string, args []string) (bool, error) {
			p, err := strconv.Atoi(args[0])
			if err != nil {
				return false, fmt.Errorf("%w: priority must be a number, got %q", model.ErrInvalidArgument, args[0])
			}
			return m.UpdateTaskPriority(id, p)
		})
}

func (a *app) dueCmd() *cobra.Command {
	return a.mutateCmd("due ID DATE", "Set the due date (YYYY-MM-DD)", 2, "Updated",
		func(m *manager.Manager, id string, args []string) (bool, error) {
			return m.UpdateTaskDueDate(id, args[0])
		})
}

func (a *app) deleteCmd() *cobra.Command {
	return a.mutateCmd("delete ID", "Delete a task", 1, "Deleted",
		func(m *manager.Manager, id string, _ []string) (bool, error) {
			return m.DeleteTask(id)
		})
}

func (a *app) tagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Add or remove tags",
	}
	cmd.AddCommand(
		a.mutateCmd("add ID TAG", "Add a tag to a task", 2, "Tagged",
			func(m *manager.Manager, id string, args []string) (bool, error) {
				return m.AddTagToTask(id, args[0])
			}),
		a.tagRemoveCmd(),
	)
	return cmd
}

// tagRemoveCmd differs from mutateCmd: a missing tag is not a missing task.
func (a *app) tagRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID TAG",
		Aliases: []string{"remove"},
		Short:   "Remove a tag from a task",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(func(m *manager.Manager) error {
				id, err := resolveID(m, args[0])
				if err != nil {
					return err
				}
				ok, err := m.RemoveTagFromTask(id, args[1])
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "Task %s has no tag %q\n", render.ShortID(id), args[1])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Untagged %s\n", render.ShortID(id))
				return nil
			})
		},
	}
}
