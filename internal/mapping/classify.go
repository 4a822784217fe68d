// internal/mapping/classify.go
package mapping

import (
	"regexp"
	"strings"
)

// dateTokenRE matches a YYYY-MM-DD date anywhere in a filename.
var dateTokenRE = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)

// titleDateRE matches a space-delimited date token used to split a
// filename into title and date portions.
var titleDateRE = regexp.MustCompile(` (\d{4}-\d{2}-\d{2}) `)

// ExtractDate returns the first YYYY-MM-DD token in filename, if any.
func ExtractDate(filename string) (string, bool) {
	m := dateTokenRE.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractTitle returns the meeting title portion of a filename:
// everything before a space-delimited YYYY-MM-DD token, trimmed. When no
// date token is present, a trailing " transcript.txt" suffix is stripped
// instead.
func ExtractTitle(filename string) string {
	if loc := titleDateRE.FindStringIndex(filename); loc != nil {
		return strings.TrimSpace(filename[:loc[0]])
	}
	return strings.TrimSpace(strings.TrimSuffix(filename, " transcript.txt"))
}

// KeywordRule pairs a target folder label with the filename keywords
// that select it.
type KeywordRule struct {
	Label    string
	Keywords []string
}

// Classifier assigns a raw transcript filename to a target folder with
// no folder context, via an ordered rule cascade:
//
//  1. client/project keyword containment (ranked, first match wins)
//  2. personal/family keywords -> PersonalLabel
//  3. exact recurring-series title match
//  4. FallbackLabel
//
// Rule order is load-bearing: reordering changes historical
// classifications, so the cascade is kept data-driven and evaluated
// strictly in sequence.
type Classifier struct {
	ClientRules      []KeywordRule
	PersonalKeywords []string
	RecurringSeries  []string
	PersonalLabel    string
	FallbackLabel    string
}

// NewClassifier returns a classifier with the production rule tables.
func NewClassifier() *Classifier {
	return &Classifier{
		ClientRules:      defaultClientRules,
		PersonalKeywords: defaultPersonalKeywords,
		RecurringSeries:  defaultRecurringSeries,
		PersonalLabel:    "Personal",
		FallbackLabel:    "Individual Meetings",
	}
}

// Classify returns the target folder label for a transcript filename.
func (c *Classifier) Classify(filename string) string {
	title := ExtractTitle(filename)
	lower := strings.ToLower(filename)

	for _, rule := range c.ClientRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Label
			}
		}
	}

	for _, kw := range c.PersonalKeywords {
		if strings.Contains(lower, kw) {
			return c.PersonalLabel
		}
	}

	for _, series := range c.RecurringSeries {
		if title == series || strings.TrimRight(title, " ") == series {
			return series
		}
	}

	return c.FallbackLabel
}

// defaultClientRules is the ranked client/project keyword table. First
// match wins; keywords are matched against the lowercased filename.
var defaultClientRules = []KeywordRule{
	{"Asurion", []string{"asurion", "section x asurion", "asurion x section"}},
	{"ABI", []string{"abi ", "abi_", " abi", "ab inbev"}},
	{"General Catalyst", []string{
		"general catalyst", " gc ", "gc x section", "gc prep", "gc event",
		"gc leaders", "gc functional", "gc ai for leaders", "gc internal",
		"zoom_ hatco x section ai", "zoom_ imco x section ai",
		"zoom_ ir x section ai", "zoom_ hr x section ai",
		"zoom_ gc capital x section ai", "zoom_ marketing x section ai",
		"zoom_ legal & compliance x section ai",
		"zoom_ operations x section ai",
		"zoom _ gcw ai champions x section",
		"hatco prompt file",
	}},
	{"Havas", []string{"havas"}},
	{"HP", []string{"hp x section", "hp+section", "hp ai summit"}},
	{"L'Oreal", []string{"l'oreal", "loreal"}},
	{"Comcast", []string{"comcast"}},
	{"Autodesk", []string{"autodesk"}},
	{"Horizon", []string{"horizon", "martech 101"}},
	{"DeckSense", []string{"decksense", "deck sense", "wireframe review",
		"design sprint", "feature prioritization", "ui review"}},
	{"OpenAI", []string{"openai", "open ai", "oai partner"}},
	{"10x AI", []string{"10x ai"}},
	{"Builder", []string{"builder in a day", "building llm automations",
		"building agentic workflows"}},
	{"Unilever", []string{"unilever"}},
	{"BSWH", []string{"bswh"}},
}

// defaultPersonalKeywords select personal/family meetings.
var defaultPersonalKeywords = []string{
	"pa nkwate", "funeral", "ojukwu", "maryland wake", "maryland funeral",
	"fotemah", "celebration of life",
}

// defaultRecurringSeries are meeting titles that recur often enough to
// warrant their own folder. Matched exactly against the extracted title.
var defaultRecurringSeries = []string{
	"All Hands",
	"AIT Consulting Weekly",
	"Weekly Proposal Review",
	"Kyra & Alli 1x1",
	"Lauren _ Kyra 1_1",
	"Kyra _ Mary 1_1",
	"Kyra __ Tom Monday Check In",
	"Tom _ Kyra_ Working Session",
	"Education Team Weekly",
	"AI Transformation Lead Bootcamp Biweekly Sync",
	"Direct to Employee Experiences Weekly",
	"Enterprise Workshops Weekly",
	"Company Lunch & Learn",
}
