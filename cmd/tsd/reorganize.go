package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/transcriptd/internal/mapping"
)

var (
	reorganizeDir   string
	reorganizeApply bool
)

// reorganizeCmd sorts flat transcript exports into series folders
var reorganizeCmd = &cobra.Command{
	Use:   "reorganize",
	Short: "Sort flat transcript exports into client and series folders",
	Long: `Classify transcript files sitting flat in a "My Meetings" folder and
move them into per-client and per-series subfolders next to it.
Classification uses an ordered keyword cascade over the filename. The
default is a preview; pass --apply to move files. A file already present
at its destination is skipped and the flat duplicate is deleted.

Examples:
  # Preview the plan
  tsd reorganize --dir ./transcripts

  # Execute the moves
  tsd reorganize --dir ./transcripts --apply`,
	RunE: runReorganize,
}

func init() {
	reorganizeCmd.Flags().StringVar(&reorganizeDir, "dir", "./transcripts", "transcripts root containing a 'My Meetings' folder")
	reorganizeCmd.Flags().BoolVar(&reorganizeApply, "apply", false, "execute the moves instead of previewing")
}

// runReorganize handles the reorganize command
func runReorganize(cmd *cobra.Command, args []string) error {
	_, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	sourceDir := filepath.Join(reorganizeDir, "My Meetings")
	classifier := mapping.NewClassifier()

	plan, err := classifier.PlanReorganization(sourceDir)
	if err != nil {
		return err
	}
	if plan.Total() == 0 {
		fmt.Printf("No transcript files found in %s\n", sourceDir)
		return nil
	}

	fmt.Printf("Found %d transcript files in %s\n\n", plan.Total(), sourceDir)
	for _, folder := range plan.FolderNames() {
		files := plan.Folders[folder]
		fmt.Printf("  %s/ (%d files)\n", folder, len(files))
		for i, name := range files {
			if i == 3 {
				fmt.Printf("    ... and %d more\n", len(files)-3)
				break
			}
			fmt.Printf("    - %s\n", name)
		}
		fmt.Println()
	}
	fmt.Printf("Total: %d files -> %d folders\n", plan.Total(), len(plan.Folders))

	if !reorganizeApply {
		fmt.Println("\nPreview only. Re-run with --apply to move files.")
		return nil
	}

	result, err := mapping.ApplyPlan(plan, reorganizeDir, logger)
	if err != nil {
		return err
	}
	fmt.Printf("\nDone. Moved %d, skipped %d duplicates.\n", result.Moved, result.Skipped)
	return nil
}
