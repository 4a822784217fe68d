// Package main implements the tsd CLI for transcript intake operations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/transcriptd/internal/config"
	"github.com/fyrsmithlabs/transcriptd/internal/logging"
)

var (
	// configPath is an optional YAML config file; env vars still override
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tsd",
	Short: "Transcript intake and memory sync pipeline",
	Long: `tsd syncs meeting transcripts into client memory entities.
It discovers transcript files, resolves the client each meeting belongs
to, extracts structured meeting data via the Anthropic API, and records
one observation per transcript against the client's memory entity.
Processing is idempotent: files are tracked in a local SQLite store and
never processed twice.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(reorganizeCmd)
	rootCmd.AddCommand(statusCmd)
}

// loadConfigAndLogger loads configuration and builds the process logger.
func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return cfg, logger, nil
}
