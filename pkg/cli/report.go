package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasktrack/pkg/export"
	"github.com/harrisonrobin/tasktrack/pkg/manager"
	"github.com/harrisonrobin/tasktrack/pkg/model"
	"github.com/harrisonrobin/tasktrack/pkg/orgmode"
	"github.com/harrisonrobin/tasktrack/pkg/render"
	"github.com/harrisonrobin/tasktrack/pkg/taskwarrior"
)

func (a *app) statsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show task counts by status and priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withManager(func(m *manager.Manager) error {
				stats, err := m.GetStatistics()
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(stats)
				}
				return render.Statistics(cmd.OutOrStdout(), stats)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) abandonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abandon",
		Short: fmt.Sprintf("Abandon tasks more than %d days overdue, except high priority ones", manager.AbandonAfterDays),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withManager(func(m *manager.Manager) error {
				n, err := m.AbandonOverdueTasks()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Abandoned %d tasks\n", n)
				return nil
			})
		},
	}
}

const (
	sourceTaskwarrior = "taskwarrior"
	sourceOrg         = "org"
)

func (a *app) importCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "import [FILE...]",
		Short: "Import tasks from Taskwarrior, Org-mode or a json/yaml backup",
		Long: `Import tasks. Sources:
  taskwarrior  a 'task export' file, or runs 'task export' when no FILE is given
  org          one or more Org-mode files
  json, yaml   a backup written by 'tasktrack export'; reads stdin without FILE

Tasks whose ID is already stored, or repeats within the import, are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := a.readImport(cmd, strings.ToLower(from), args)
			if err != nil {
				return err
			}
			return a.withManager(func(m *manager.Manager) error {
				n, err := m.ImportTasks(tasks)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks (%d skipped)\n", n, len(tasks)-n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "source: taskwarrior, org, json or yaml")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func (a *app) readImport(cmd *cobra.Command, from string, args []string) ([]*model.Task, error) {
	switch from {
	case sourceTaskwarrior:
		client := taskwarrior.NewClient()
		var raw []taskwarrior.Task
		var err error
		if len(args) == 0 {
			raw, err = client.GetTasks(cmd.Context(), nil)
		} else {
			err = readFile(args[0], func(r io.Reader) error {
				raw, err = client.ParseExport(r)
				return err
			})
		}
		if err != nil {
			return nil, err
		}
		return taskwarrior.ToTasks(raw), nil

	case sourceOrg:
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: org import needs at least one file", model.ErrInvalidArgument)
		}
		return orgmode.ParseFiles(args)

	case export.FormatJSON, export.FormatYAML:
		if len(args) == 0 || args[0] == "-" {
			return export.Read(cmd.InOrStdin(), from)
		}
		var tasks []*model.Task
		err := readFile(args[0], func(r io.Reader) error {
			var err error
			tasks, err = export.Read(r, from)
			return err
		})
		return tasks, err
	}
	return nil, fmt.Errorf("%w: unknown import source %q", model.ErrInvalidArgument, from)
}

func readFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}

func (a *app) exportCmd() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every task as json, yaml, csv or pdf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withManager(func(m *manager.Manager) error {
				tasks, err := m.ListTasks(manager.ListFilter{})
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					return export.Write(cmd.OutOrStdout(), format, tasks)
				}

				f, err := os.OpenFile(output, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
				if err != nil {
					return err
				}
				if err := export.Write(f, format, tasks); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				a.logger.Info("exported tasks", "count", len(tasks), "format", format, "path", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatJSON, "format: "+strings.Join(export.Formats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
