package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/transcriptd/internal/config"
	"github.com/fyrsmithlabs/transcriptd/internal/mapping"
	"github.com/fyrsmithlabs/transcriptd/internal/memory"
	"github.com/fyrsmithlabs/transcriptd/internal/progress"
	"github.com/fyrsmithlabs/transcriptd/internal/summarize"
	syncsvc "github.com/fyrsmithlabs/transcriptd/internal/sync"
)

var (
	syncTranscriptsDir string
	syncDBPath         string
	syncLimit          int
	syncDryRun         bool
)

// syncCmd runs one sync pass over the transcript tree
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Process new transcripts into client memory",
	Long: `Discover unprocessed transcript files, extract structured meeting
data from each, and record one observation per transcript against the
resolved client entity. Already-processed files are skipped.

Examples:
  # Process everything new
  tsd sync

  # Preview what would be processed
  tsd sync --dry-run

  # Process at most 10 files from a custom tree
  tsd sync --transcripts-dir ~/transcripts --limit 10`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncTranscriptsDir, "transcripts-dir", "", "transcripts directory (overrides config)")
	syncCmd.Flags().StringVar(&syncDBPath, "db", "", "progress database path (overrides config)")
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "max transcripts to process, 0 for no limit")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "list unprocessed transcripts without processing")
}

// runSync handles the sync command
func runSync(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if syncTranscriptsDir != "" {
		cfg.Transcripts.Dir = syncTranscriptsDir
	}
	if syncDBPath != "" {
		cfg.Store.Path = syncDBPath
	}

	store, err := progress.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to open progress store: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()

	// Dry runs stop at discovery and the processed-set filter; no API
	// key or sink is needed.
	if syncDryRun {
		files, err := syncsvc.DiscoverTranscripts(cfg.Transcripts.Dir, cfg.Transcripts.Extension)
		if err != nil {
			return err
		}
		unprocessed, err := store.Unprocessed(ctx, files)
		if err != nil {
			return err
		}
		fmt.Printf("Would process %d transcripts:\n", len(unprocessed))
		for i, f := range unprocessed {
			if i == 20 {
				fmt.Printf("  ... and %d more\n", len(unprocessed)-20)
				break
			}
			fmt.Printf("  %s\n", f)
		}
		return nil
	}

	mapper, err := mapping.Load(cfg.Mapping.Path)
	if err != nil {
		return fmt.Errorf("failed to load client mapping: %w", err)
	}

	summarizer, err := newSummarizer(cfg)
	if err != nil {
		return err
	}

	sink, err := newSink(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	svc, err := syncsvc.NewService(syncsvc.Config{
		TranscriptsDir: cfg.Transcripts.Dir,
		Extension:      cfg.Transcripts.Extension,
	}, store, mapper, summarizer, sink, logger)
	if err != nil {
		return err
	}

	result, err := svc.Run(ctx, syncsvc.RunOptions{Limit: syncLimit})
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d transcripts: %d succeeded, %d failed (%.1fs)\n",
		result.Total, result.Success, result.Failed, result.DurationSeconds)
	return nil
}

// newSummarizer builds the extraction client, wrapped with retries when
// configured.
func newSummarizer(cfg *config.Config) (summarize.Client, error) {
	client, err := summarize.NewClient(summarize.Config{
		APIKey:   cfg.Summarizer.APIKey.Value(),
		Model:    cfg.Summarizer.Model,
		BaseURL:  cfg.Summarizer.BaseURL,
		Timeout:  cfg.Summarizer.Timeout.Duration(),
		MaxChars: cfg.Summarizer.MaxChars,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create summarizer: %w", err)
	}
	if cfg.Summarizer.MaxRetries > 0 {
		return summarize.WithRetry(client, cfg.Summarizer.MaxRetries), nil
	}
	return client, nil
}

// newSink builds the configured memory sink.
func newSink(cfg *config.Config, logger *zap.Logger) (memory.Sink, error) {
	switch cfg.Memory.Mode {
	case config.MemoryModeHTTP:
		return memory.NewHTTPSink(cfg.Memory.Endpoint, cfg.Memory.Context, logger)
	default:
		return memory.NewBatchFileSink(cfg.Memory.BatchPath, cfg.Memory.Context, logger), nil
	}
}
