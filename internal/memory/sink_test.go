package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readBatch(t *testing.T, path string) batchDocument {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc batchDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestBatchFileSink_WriteThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory_batch.json")
	sink := NewBatchFileSink(path, "work-planning", nil)
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, "Asurion", "2025-01-15: Discussed Roadmap."))

	// Every Record is durable on its own.
	doc := readBatch(t, path)
	assert.Equal(t, "work-planning", doc.Context)
	require.Len(t, doc.Entities, 1)
	assert.Equal(t, "Asurion", doc.Entities[0].Name)
	assert.Equal(t, "client", doc.Entities[0].EntityType)
	assert.Equal(t, []string{"2025-01-15: Discussed Roadmap."}, doc.Entities[0].Observations)
}

func TestBatchFileSink_FullReplaceAccumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory_batch.json")
	sink := NewBatchFileSink(path, "work-planning", nil)
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, "Asurion", "first"))
	require.NoError(t, sink.Record(ctx, "General_Catalyst", "second"))
	require.NoError(t, sink.Record(ctx, "Asurion", "third"))

	doc := readBatch(t, path)
	require.Len(t, doc.Entities, 2)
	// Entity order follows first appearance.
	assert.Equal(t, "Asurion", doc.Entities[0].Name)
	assert.Equal(t, []string{"first", "third"}, doc.Entities[0].Observations)
	assert.Equal(t, "General_Catalyst", doc.Entities[1].Name)
	assert.Equal(t, []string{"second"}, doc.Entities[1].Observations)

	// No leftover temp files from the rename dance.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBatchFileSink_ClosedRejectsRecord(t *testing.T) {
	sink := NewBatchFileSink(filepath.Join(t.TempDir(), "b.json"), "ctx", nil)
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close(), "close is idempotent")

	err := sink.Record(context.Background(), "X", "obs")
	require.Error(t, err)
}

func TestHTTPSink_Upserts(t *testing.T) {
	var received upsertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	sink, err := NewHTTPSink(srv.URL, "work-planning", nil)
	require.NoError(t, err)

	require.NoError(t, sink.Record(context.Background(), "Asurion", "2025-01-15: note"))
	assert.Equal(t, "Asurion", received.Name)
	assert.Equal(t, "client", received.EntityType)
	assert.Equal(t, []string{"2025-01-15: note"}, received.Observations)
	assert.Equal(t, "work-planning", received.Context)
}

func TestHTTPSink_RejectedUpsert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	sink, err := NewHTTPSink(srv.URL, "", nil)
	require.NoError(t, err)

	err = sink.Record(context.Background(), "Asurion", "obs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewHTTPSink_RequiresEndpoint(t *testing.T) {
	_, err := NewHTTPSink("", "", nil)
	require.Error(t, err)
}
