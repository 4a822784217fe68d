// Package config provides configuration loading for transcriptd.
//
// Configuration is loaded from an optional YAML file, then overridden by
// environment variables, with hardcoded defaults filling the gaps.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete transcriptd configuration.
type Config struct {
	Transcripts TranscriptsConfig `koanf:"transcripts"`
	Store       StoreConfig       `koanf:"store"`
	Mapping     MappingConfig     `koanf:"mapping"`
	Summarizer  SummarizerConfig  `koanf:"summarizer"`
	Memory      MemoryConfig      `koanf:"memory"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// TranscriptsConfig describes the transcript source directory.
type TranscriptsConfig struct {
	Dir       string `koanf:"dir"`
	Extension string `koanf:"extension"`
}

// StoreConfig holds progress store configuration.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// MappingConfig points at the client mapping document.
type MappingConfig struct {
	Path string `koanf:"path"`
}

// SummarizerConfig holds the summarization service configuration.
type SummarizerConfig struct {
	APIKey     Secret   `koanf:"api_key"`
	Model      string   `koanf:"model"`
	BaseURL    string   `koanf:"base_url"`
	Timeout    Duration `koanf:"timeout"`
	MaxChars   int      `koanf:"max_chars"`
	MaxRetries int      `koanf:"max_retries"`
}

// MemoryConfig selects the memory sink delivery mode.
type MemoryConfig struct {
	// Mode is "batch" (full-replace JSON document on disk) or
	// "http" (immediate per-entity upsert against Endpoint).
	Mode      string `koanf:"mode"`
	BatchPath string `koanf:"batch_path"`
	Endpoint  string `koanf:"endpoint"`
	Context   string `koanf:"context"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Memory sink modes.
const (
	MemoryModeBatch = "batch"
	MemoryModeHTTP  = "http"
)

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Transcripts.Dir == "" {
		cfg.Transcripts.Dir = "./transcripts"
	}
	if cfg.Transcripts.Extension == "" {
		cfg.Transcripts.Extension = ".txt"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./processing.db"
	}
	if cfg.Mapping.Path == "" {
		cfg.Mapping.Path = "./config/client_mapping.json"
	}
	if cfg.Summarizer.Model == "" {
		cfg.Summarizer.Model = "claude-3-haiku-20240307"
	}
	if cfg.Summarizer.BaseURL == "" {
		cfg.Summarizer.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Summarizer.Timeout == 0 {
		cfg.Summarizer.Timeout = Duration(60 * time.Second)
	}
	if cfg.Summarizer.MaxChars == 0 {
		cfg.Summarizer.MaxChars = 50000
	}
	if cfg.Memory.Mode == "" {
		cfg.Memory.Mode = MemoryModeBatch
	}
	if cfg.Memory.BatchPath == "" {
		cfg.Memory.BatchPath = "./memory_batch.json"
	}
	if cfg.Memory.Context == "" {
		cfg.Memory.Context = "work-planning"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Transcripts.Dir == "" {
		return errors.New("transcripts dir is required")
	}
	if c.Transcripts.Extension == "" || c.Transcripts.Extension[0] != '.' {
		return fmt.Errorf("transcript extension must start with '.': %q", c.Transcripts.Extension)
	}
	if c.Store.Path == "" {
		return errors.New("store path is required")
	}
	if c.Summarizer.Timeout.Duration() <= 0 {
		return errors.New("summarizer timeout must be positive")
	}
	if c.Summarizer.MaxChars <= 0 {
		return fmt.Errorf("summarizer max_chars must be positive, got %d", c.Summarizer.MaxChars)
	}
	if c.Summarizer.MaxRetries < 0 {
		return fmt.Errorf("summarizer max_retries must be >= 0, got %d", c.Summarizer.MaxRetries)
	}
	switch c.Memory.Mode {
	case MemoryModeBatch:
		if c.Memory.BatchPath == "" {
			return errors.New("memory batch_path required in batch mode")
		}
	case MemoryModeHTTP:
		if c.Memory.Endpoint == "" {
			return errors.New("memory endpoint required in http mode")
		}
	default:
		return fmt.Errorf("memory mode must be %q or %q, got %q", MemoryModeBatch, MemoryModeHTTP, c.Memory.Mode)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}
