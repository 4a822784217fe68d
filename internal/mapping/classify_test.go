package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDate(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		ok       bool
	}{
		{"Asurion x Section 2025-09-22 12_31 transcript.txt", "2025-09-22", true},
		{"Meeting 2025-01-05 transcript.txt", "2025-01-05", true},
		{"2024-12-31-notes.txt", "2024-12-31", true},
		{"no-date-here.txt", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ExtractDate(tt.filename)
		assert.Equal(t, tt.ok, ok, tt.filename)
		assert.Equal(t, tt.want, got, tt.filename)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"All Hands 2025-09-22 12_31 transcript.txt", "All Hands"},
		{"Kyra & Alli 1x1 2025-03-01 09_00 transcript.txt", "Kyra & Alli 1x1"},
		{"Some Meeting transcript.txt", "Some Meeting"},
		{"Untitled.txt", "Untitled.txt"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractTitle(tt.filename), tt.filename)
	}
}

func TestClassify_Cascade(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		filename string
		want     string
	}{
		// 1. client keyword containment
		{"Asurion x Section 2025-09-22 12_31 transcript.txt", "Asurion"},
		{"Zoom_ HatCo x Section AI 2025-05-02 10_00 transcript.txt", "General Catalyst"},
		{"L'Oreal brainstorm 2025-02-02 11_00 transcript.txt", "L'Oreal"},
		{"Martech 101 2025-04-10 14_00 transcript.txt", "Horizon"},
		// 2. personal keywords
		{"Celebration of Life planning 2025-06-07 13_00 transcript.txt", "Personal"},
		// 3. recurring series by exact title
		{"All Hands 2025-09-22 12_31 transcript.txt", "All Hands"},
		{"AIT Consulting Weekly 2025-08-11 10_00 transcript.txt", "AIT Consulting Weekly"},
		// 4. fallback
		{"Coffee chat with Jordan 2025-07-01 15_00 transcript.txt", "Individual Meetings"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.filename), tt.filename)
	}
}

func TestClassify_ClientRuleBeatsSeries(t *testing.T) {
	// A filename that contains a client keyword and also matches a
	// recurring series title resolves via the client rule; the cascade
	// never reaches the series check.
	c := NewClassifier()
	got := c.Classify("All Hands asurion 2025-09-22 12_31 transcript.txt")
	assert.Equal(t, "Asurion", got)
}

func TestClassify_RuleOrderWithinTable(t *testing.T) {
	c := &Classifier{
		ClientRules: []KeywordRule{
			{"First", []string{"shared"}},
			{"Second", []string{"shared"}},
		},
		FallbackLabel: "Fallback",
	}
	assert.Equal(t, "First", c.Classify("shared keyword meeting.txt"))
}
