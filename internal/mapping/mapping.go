// Package mapping resolves transcript files to stable client/project
// identities.
//
// The steady-state resolver (Mapping) works from a static JSON document
// loaded once at startup: an exact meeting-series table, an ordered list
// of filename keyword patterns, and a default label. The richer ordered
// rule cascade used by bulk reorganization lives in classify.go.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrInvalidMapping indicates a missing or malformed client mapping
// document. Fatal at startup, never per-file.
var ErrInvalidMapping = errors.New("invalid client mapping")

// PatternRule maps a filename keyword to a client label. Rules are
// evaluated in document order; the first match wins.
type PatternRule struct {
	Keyword string
	Client  string
}

// Mapping resolves meeting series and filenames to client labels.
// It is immutable after Load and safe for concurrent use.
type Mapping struct {
	series   map[string]string
	patterns []PatternRule
	fallback string
}

// mappingDocument is the on-disk JSON shape. filename_patterns is kept
// raw so its key order can be preserved during decode.
type mappingDocument struct {
	Series   map[string]string `json:"meeting_series_to_client"`
	Patterns json.RawMessage   `json:"filename_patterns"`
	Default  string            `json:"default_client"`
}

// Load reads and parses the client mapping document at path.
func Load(path string) (*Mapping, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	return Parse(content)
}

// Parse parses a client mapping document.
func Parse(content []byte) (*Mapping, error) {
	var doc mappingDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	patterns, err := decodeOrderedPatterns(doc.Patterns)
	if err != nil {
		return nil, fmt.Errorf("%w: filename_patterns: %v", ErrInvalidMapping, err)
	}

	m := &Mapping{
		series:   doc.Series,
		patterns: patterns,
		fallback: doc.Default,
	}
	if m.series == nil {
		m.series = map[string]string{}
	}
	if m.fallback == "" {
		m.fallback = "Other"
	}
	return m, nil
}

// decodeOrderedPatterns walks the raw JSON object token by token so that
// rule precedence follows document order. encoding/json maps discard
// order, which would make first-match-wins nondeterministic.
func decodeOrderedPatterns(raw json.RawMessage) ([]PatternRule, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(string(raw)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var rules []PatternRule
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", keyTok)
		}

		var client string
		if err := dec.Decode(&client); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", key, err)
		}
		rules = append(rules, PatternRule{Keyword: key, Client: client})
	}

	// Consume closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Default returns the configured fallback label.
func (m *Mapping) Default() string {
	return m.fallback
}

// Resolve maps a meeting series (containing-folder name) to a client
// label. Unknown series resolve to the default label.
func (m *Mapping) Resolve(series string) string {
	if client, ok := m.series[series]; ok {
		return client
	}
	return m.fallback
}

// ResolveFilename maps a filename to a client label using the ordered
// keyword patterns, case-insensitively. The first matching keyword wins;
// no match resolves to the default label.
func (m *Mapping) ResolveFilename(filename string) string {
	lower := strings.ToLower(filename)
	for _, rule := range m.patterns {
		if strings.Contains(lower, strings.ToLower(rule.Keyword)) {
			return rule.Client
		}
	}
	return m.fallback
}
