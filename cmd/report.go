package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"timetracker/internal/config"
	"timetracker/internal/core/clock"
	"timetracker/internal/storage"

	"github.com/spf13/cobra"
)

var historyLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running timer and today's totals",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "List recent time entries",
	Example: `  timetracker history --limit 20`,
	Args:    cobra.NoArgs,
	RunE:    runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
	rootCmd.AddCommand(statusCmd, projectsCmd, historyCmd)
}

// openReadStore opens the database for a one-shot command without writing to it.
func openReadStore() (*storage.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := setupLogger(config.LoggingConfig{Level: "error", Format: cfg.Logging.Format})
	store, err := storage.OpenReadOnly(cfg.Database.Path, clock.System(), logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openReadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()

	out := cmd.OutOrStdout()
	open, err := store.CurrentOpenEntry(ctx)
	if err != nil {
		return err
	}
	if open == nil {
		fmt.Fprintln(out, "Not tracking")
	} else {
		fmt.Fprintf(out, "Tracking %s for %s\n", open.ProjectName, clock.Elapsed(now, open.StartTime).Round(time.Second))
	}

	today, err := store.TodayTotal(ctx, now)
	if err != nil {
		return err
	}
	week, err := store.WeekTotal(ctx, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Today: %s\nLast 7 days: %s\n", today.Round(time.Minute), week.Round(time.Minute))
	return nil
}

func runProjects(cmd *cobra.Command, args []string) error {
	store, err := openReadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	projects, err := store.ListProjects(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tNAME\tCOLOR")
	for _, project := range projects {
		fmt.Fprintf(writer, "%d\t%s\t%s\n", project.ID, project.Name, project.Color)
	}
	return writer.Flush()
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", historyLimit)
	}
	store, err := openReadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := store.RecentEntries(ctx, historyLimit)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "START\tEND\tPROJECT\tDURATION")
	for _, entry := range entries {
		end := ""
		if entry.EndTime != nil {
			end = entry.EndTime.Local().Format(time.DateTime)
		}
		var seconds int64
		if entry.Duration != nil {
			seconds = *entry.Duration
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			entry.StartTime.Local().Format(time.DateTime), end, entry.ProjectName, time.Duration(seconds)*time.Second)
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No entries yet")
	}
	return nil
}
