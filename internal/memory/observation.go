// Package memory composes observations from summary fields and delivers
// them to the external memory sink.
//
// The sink is an append-only queue from this package's point of view:
// there is no read-modify-write and no entity-exists check. Consistency
// is the collaborator's concern.
package memory

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/transcriptd/internal/summarize"
)

// maxTopics bounds how many main topics one observation mentions.
const maxTopics = 3

// BuildObservation composes one compact natural-language note from
// summary fields. Assembly order is fixed: date prefix, topics sentence,
// first key-context item verbatim, follow-up sentence. Omitted segments
// contribute nothing, so the output never carries stray separators.
//
// Fields are assumed single-line; embedded newlines are not sanitized
// here.
func BuildObservation(fields summarize.Fields) string {
	var parts []string

	date := fields.Date
	if date == "" {
		date = "Unknown date"
	}
	parts = append(parts, date+":")

	if len(fields.MainTopics) > 0 {
		topics := fields.MainTopics
		if len(topics) > maxTopics {
			topics = topics[:maxTopics]
		}
		parts = append(parts, fmt.Sprintf("Discussed %s.", strings.Join(topics, ", ")))
	}

	if len(fields.KeyContext) > 0 {
		parts = append(parts, fields.KeyContext[0])
	}

	if len(fields.ImpliedWork) > 0 {
		parts = append(parts, fmt.Sprintf("Potential follow-up: %s", fields.ImpliedWork[0]))
	}

	return strings.Join(parts, " ")
}

// FormatEntityName converts a client label into the sink's entity key:
// every space becomes an underscore.
func FormatEntityName(label string) string {
	return strings.ReplaceAll(label, " ", "_")
}
