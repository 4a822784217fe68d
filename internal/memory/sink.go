// internal/memory/sink.go
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// entityType is the fixed type recorded for every upserted entity.
const entityType = "client"

// Sink accepts entity-keyed observations for the external memory store.
//
// Implementations are append-only queues: Record never reads back or
// reconciles prior state in the collaborator.
type Sink interface {
	// Record queues one observation under the given entity key and
	// makes it durable (or delivered) before returning.
	Record(ctx context.Context, entity, observation string) error

	// Close releases sink resources. Idempotent.
	Close() error
}

// batchEntity is one entity in the persisted batch document.
type batchEntity struct {
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`
}

// batchDocument is the full batch file shape, replaced on every flush.
type batchDocument struct {
	Context  string        `json:"context"`
	Entities []batchEntity `json:"entities"`
}

// BatchFileSink accumulates observations per entity and rewrites the
// whole batch document on every Record (write-through, full replace).
// A crash loses at most the in-flight observation; everything recorded
// earlier is already on disk.
type BatchFileSink struct {
	path         string
	contextLabel string
	logger       *zap.Logger

	mu           sync.Mutex
	order        []string
	observations map[string][]string
	closed       bool
}

// NewBatchFileSink creates a batch-file sink writing to path.
func NewBatchFileSink(path, contextLabel string, logger *zap.Logger) *BatchFileSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchFileSink{
		path:         path,
		contextLabel: contextLabel,
		logger:       logger,
		observations: make(map[string][]string),
	}
}

// Record queues the observation and flushes the full document to disk.
func (s *BatchFileSink) Record(ctx context.Context, entity, observation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("sink is closed")
	}

	if _, ok := s.observations[entity]; !ok {
		s.order = append(s.order, entity)
	}
	s.observations[entity] = append(s.observations[entity], observation)

	if err := s.flushLocked(); err != nil {
		return err
	}

	s.logger.Debug("recorded observation",
		zap.String("entity", entity),
		zap.Int("entity_observations", len(s.observations[entity])),
	)
	return nil
}

// flushLocked writes the batch document via temp-file rename so readers
// never observe a partial document. Caller holds s.mu.
func (s *BatchFileSink) flushLocked() error {
	doc := batchDocument{
		Context:  s.contextLabel,
		Entities: make([]batchEntity, 0, len(s.order)),
	}
	for _, name := range s.order {
		doc.Entities = append(doc.Entities, batchEntity{
			Name:         name,
			EntityType:   entityType,
			Observations: s.observations[name],
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal batch document: %w", err)
	}

	tmp := fmt.Sprintf("%s.tmp.%d", s.path, time.Now().UnixNano())
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create batch directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write batch file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace batch file: %w", err)
	}
	return nil
}

// Close marks the sink closed. The last flushed document remains on
// disk.
func (s *BatchFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Sink = (*BatchFileSink)(nil)
