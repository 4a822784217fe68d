package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/transcriptd/internal/progress"
)

var statusDBPath string

// statusCmd reports progress store contents
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show processing counts and recent sync runs",
	Long: `Report how many transcripts have been processed by terminal status,
plus the most recent sync runs from the audit log.

Examples:
  tsd status
  tsd status --db ./processing.db`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusDBPath, "db", "", "progress database path (overrides config)")
}

// runStatus handles the status command
func runStatus(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if statusDBPath != "" {
		cfg.Store.Path = statusDBPath
	}

	store, err := progress.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to open progress store: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()

	counts, err := store.StatusCounts(ctx)
	if err != nil {
		return err
	}

	total := 0
	statuses := make([]string, 0, len(counts))
	for status, n := range counts {
		total += n
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	fmt.Printf("Processed transcripts: %d\n", total)
	for _, status := range statuses {
		fmt.Printf("  %-8s %d\n", status, counts[status])
	}

	runs, err := store.RecentRuns(ctx, 5)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}

	fmt.Println("\nRecent runs:")
	for _, run := range runs {
		fmt.Printf("  %s  discovered=%d succeeded=%d failed=%d (%.1fs)\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Discovered, run.Succeeded, run.Failed,
			run.CompletedAt.Sub(run.StartedAt).Seconds())
	}
	return nil
}
