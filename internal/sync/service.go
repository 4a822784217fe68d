// Package sync coordinates the transcript intake pipeline: discover
// candidate files, filter against the progress store, resolve client
// identity, summarize, build and deliver the observation, and record a
// terminal status per file.
//
// Processing is single-threaded and sequential. The bottleneck is a
// rate-limited external API and a single sink, and per-file isolation
// already bounds the blast radius of one failure. One Service owns the
// progress store for the duration of a run; concurrent services against
// the same store are undefined.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/transcriptd/internal/mapping"
	"github.com/fyrsmithlabs/transcriptd/internal/memory"
	"github.com/fyrsmithlabs/transcriptd/internal/progress"
	"github.com/fyrsmithlabs/transcriptd/internal/summarize"
)

const instrumentationName = "github.com/fyrsmithlabs/transcriptd/internal/sync"

// ProgressStore is the subset of the progress store the orchestrator
// depends on.
type ProgressStore interface {
	Unprocessed(ctx context.Context, candidates []string) ([]string, error)
	MarkProcessed(ctx context.Context, rec progress.Record) error
	RecordRun(ctx context.Context, stats progress.RunStats) error
}

// Config configures the sync service.
type Config struct {
	// TranscriptsDir is the root of the transcript source tree.
	TranscriptsDir string

	// Extension selects transcript files during discovery (".txt").
	Extension string
}

// RunOptions tunes a single invocation.
type RunOptions struct {
	// Limit caps how many unprocessed candidates are attempted, in
	// enumeration order. Zero means no limit.
	Limit int
}

// Result is the aggregate outcome of one run.
type Result struct {
	RunID           string    `json:"run_id"`
	Started         time.Time `json:"started"`
	Completed       time.Time `json:"completed"`
	DurationSeconds float64   `json:"duration_seconds"`
	Total           int       `json:"total"`
	Success         int       `json:"success"`
	Failed          int       `json:"failed"`
}

// Service runs the sync pipeline.
type Service struct {
	config     Config
	store      ProgressStore
	mapper     *mapping.Mapping
	summarizer summarize.Client
	sink       memory.Sink
	logger     *zap.Logger

	tracer       trace.Tracer
	meter        metric.Meter
	filesCounter metric.Int64Counter
}

// NewService creates a sync service. All collaborators except the
// logger are required.
func NewService(cfg Config, store ProgressStore, mapper *mapping.Mapping, summarizer summarize.Client, sink memory.Sink, logger *zap.Logger) (*Service, error) {
	if cfg.TranscriptsDir == "" {
		return nil, errors.New("transcripts dir is required")
	}
	if cfg.Extension == "" {
		cfg.Extension = ".txt"
	}
	if store == nil {
		return nil, errors.New("progress store is required")
	}
	if mapper == nil {
		return nil, errors.New("client mapping is required")
	}
	if summarizer == nil {
		return nil, errors.New("summarizer client is required")
	}
	if sink == nil {
		return nil, errors.New("memory sink is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		config:     cfg,
		store:      store,
		mapper:     mapper,
		summarizer: summarizer,
		sink:       sink,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *Service) initMetrics() {
	var err error
	s.filesCounter, err = s.meter.Int64Counter(
		"transcriptd.sync.files_total",
		metric.WithDescription("Transcript files reaching a terminal status"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		s.logger.Warn("failed to create files counter", zap.Error(err))
	}
}

// DiscoverTranscripts enumerates all transcript files under root,
// recursively, by extension. Enumeration order is the walk order,
// stable within a run. A missing root yields an empty list.
func DiscoverTranscripts(root, extension string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) == extension {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to enumerate transcripts: %w", err)
	}
	return files, nil
}

// Discover enumerates the service's transcript source tree.
func (s *Service) Discover(ctx context.Context) ([]string, error) {
	return DiscoverTranscripts(s.config.TranscriptsDir, s.config.Extension)
}

// Candidates returns the unprocessed transcript files, in enumeration
// order. Used directly for dry runs.
func (s *Service) Candidates(ctx context.Context) ([]string, error) {
	files, err := s.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.Unprocessed(ctx, files)
}

// Run executes one sync pass. Failures local to one file never cross
// the per-file boundary; storage failures abort the run.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "sync.run")
	defer span.End()

	runID := uuid.New().String()
	started := time.Now()
	log := s.logger.With(zap.String("run_id", runID))

	candidates, err := s.Candidates(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if opts.Limit > 0 && len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	log.Info("starting sync", zap.Int("candidates", len(candidates)))

	var success, failed int
	var runErr error
	for _, path := range candidates {
		// Interruption takes effect between files only; the per-file
		// upsert is atomic either way.
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		ok, err := s.processOne(ctx, log, path)
		if err != nil {
			// Only storage failures escape processOne; losing track of
			// processed state is worse than stopping.
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			runErr = err
			break
		}
		if ok {
			success++
		} else {
			failed++
		}
	}

	completed := time.Now()
	result := &Result{
		RunID:           runID,
		Started:         started,
		Completed:       completed,
		DurationSeconds: completed.Sub(started).Seconds(),
		Total:           len(candidates),
		Success:         success,
		Failed:          failed,
	}

	if err := s.store.RecordRun(ctx, progress.RunStats{
		StartedAt:   started,
		CompletedAt: completed,
		Discovered:  len(candidates),
		Succeeded:   success,
		Failed:      failed,
	}); err != nil && runErr == nil {
		runErr = err
	}

	log.Info("sync complete",
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
		zap.Float64("duration_seconds", result.DurationSeconds),
	)

	return result, runErr
}

// processOne takes a single file from discovery to a terminal status.
// The returned bool reports success; the returned error is non-nil only
// for storage failures, which must abort the run.
func (s *Service) processOne(ctx context.Context, log *zap.Logger, path string) (bool, error) {
	filename := filepath.Base(path)
	log.Debug("processing transcript", zap.String("path", path))

	fields, client, fileErr := s.attempt(ctx, path, filename)
	if fileErr != nil {
		log.Warn("transcript processing failed",
			zap.String("path", path),
			zap.Error(fileErr),
		)
		s.countFile(ctx, "error")
		return false, s.store.MarkProcessed(ctx, progress.Record{
			Path:         path,
			Filename:     filename,
			MeetingDate:  "unknown",
			ClientEntity: "unknown",
			Status:       progress.ErrorStatus(fileErr.Error()),
		})
	}

	if fields.IsEmpty() {
		log.Info("no data extracted", zap.String("path", path))
		s.countFile(ctx, "empty")
		return false, s.store.MarkProcessed(ctx, progress.Record{
			Path:         path,
			Filename:     filename,
			MeetingDate:  "unknown",
			ClientEntity: client,
			Status:       progress.StatusEmpty,
		})
	}

	meetingDate := fields.Date
	if meetingDate == "" {
		if d, ok := mapping.ExtractDate(filename); ok {
			meetingDate = d
		} else {
			meetingDate = "unknown"
		}
	}

	log.Info("processed transcript",
		zap.String("path", path),
		zap.String("client", client),
		zap.String("meeting_date", meetingDate),
	)
	s.countFile(ctx, "success")
	return true, s.store.MarkProcessed(ctx, progress.Record{
		Path:         path,
		Filename:     filename,
		MeetingDate:  meetingDate,
		ClientEntity: client,
		Status:       progress.StatusSuccess,
	})
}

// attempt performs the fallible steps for one file: identity
// resolution, summarization, observation delivery. Panics are converted
// to per-file errors so one bad file cannot abort the run.
func (s *Service) attempt(ctx context.Context, path, filename string) (fields summarize.Fields, client string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	// The containing folder is the meeting series; fall back to
	// filename keywords when the series is unmapped.
	series := filepath.Base(filepath.Dir(path))
	client = s.mapper.Resolve(series)
	if client == s.mapper.Default() {
		client = s.mapper.ResolveFilename(filename)
	}

	content, readErr := os.ReadFile(path)
	if readErr != nil {
		return summarize.Fields{}, client, fmt.Errorf("read transcript: %w", readErr)
	}

	fields, sumErr := s.summarizer.Summarize(ctx, string(content))
	if sumErr != nil {
		return summarize.Fields{}, client, fmt.Errorf("summarize: %w", sumErr)
	}
	if fields.IsEmpty() {
		return fields, client, nil
	}

	entity := memory.FormatEntityName(client)
	observation := memory.BuildObservation(fields)
	if sinkErr := s.sink.Record(ctx, entity, observation); sinkErr != nil {
		return summarize.Fields{}, client, fmt.Errorf("record observation: %w", sinkErr)
	}

	return fields, client, nil
}

// countFile records one terminal file status on the metrics counter.
func (s *Service) countFile(ctx context.Context, status string) {
	if s.filesCounter != nil {
		s.filesCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", status),
		))
	}
}
