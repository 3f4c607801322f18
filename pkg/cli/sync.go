package cli

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasktrack/pkg/auth"
	"github.com/harrisonrobin/tasktrack/pkg/calendar"
	"github.com/harrisonrobin/tasktrack/pkg/config"
	"github.com/harrisonrobin/tasktrack/pkg/manager"
	"github.com/harrisonrobin/tasktrack/pkg/storage"
)

func (a *app) syncCmd() *cobra.Command {
	var calendarName string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror tasks with due dates to Google Calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := a.cfg.Calendar
			if calendarName != "" {
				name = calendarName
			}

			flow, err := auth.NewFlow(a.logger)
			if err != nil {
				return err
			}
			flow.Out = cmd.OutOrStdout()

			client, err := calendar.NewClient(cmd.Context(), flow, name)
			if err != nil {
				return fmt.Errorf("error creating Google Calendar client: %w", err)
			}

			indexPath, err := calendar.DefaultIndexPath()
			if err != nil {
				return err
			}
			idx, err := calendar.NewEventIndex(indexPath)
			if err != nil {
				return fmt.Errorf("failed to load event index: %w", err)
			}

			return a.withManager(func(m *manager.Manager) error {
				tasks, err := m.ListTasks(manager.ListFilter{})
				if err != nil {
					return err
				}
				report, err := calendar.NewSyncer(client, idx, a.logger).Sync(cmd.Context(), tasks)
				fmt.Fprintf(cmd.OutOrStdout(), "Synced to %q: %s\n", name, report)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&calendarName, "calendar", "", "Google Calendar name to sync with (overrides config)")
	return cmd
}

func (a *app) authCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Calendar, replacing any cached token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow, err := auth.NewFlow(a.logger)
			if err != nil {
				return err
			}
			flow.Out = cmd.OutOrStdout()
			if err := flow.Reset(); err != nil {
				return err
			}
			if _, err := flow.CalendarService(cmd.Context()); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authentication successful! Token saved to %s\n", flow.TokenPath())
			return nil
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set-calendar NAME",
			Short: "Set the default Google Calendar name",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := config.GetConfigPath()
				if err != nil {
					return err
				}
				cfg, err := config.LoadFile(path)
				if err != nil {
					return err
				}
				cfg.Calendar = args[0]
				if err := config.SaveFile(path, cfg); err != nil {
					return fmt.Errorf("error saving config: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Default calendar set to: %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the resolved configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				location, err := a.cfg.Location()
				if err != nil {
					return err
				}
				if a.cfg.Backend == storage.BackendMySQL {
					location = maskDSN(location)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "backend   = %s\n", a.cfg.Backend)
				fmt.Fprintf(out, "location  = %s\n", location)
				fmt.Fprintf(out, "calendar  = %s\n", a.cfg.Calendar)
				fmt.Fprintf(out, "log_level = %s\n", a.cfg.LogLevel)
				return nil
			},
		},
	)
	return cmd
}

// maskDSN hides the password of a MySQL DSN.
func maskDSN(dsn string) string {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "(unparsable dsn)"
	}
	if c.Passwd != "" {
		c.Passwd = "****"
	}
	return c.FormatDSN()
}
