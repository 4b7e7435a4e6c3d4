package classify

import (
	"regexp"
	"strings"
)

// QueryKind is the result of query triage.
type QueryKind int

const (
	// Casual queries get a canned conversational response without retrieval.
	Casual QueryKind = iota
	// Technical queries warrant semantic retrieval over the failure corpus.
	Technical
)

func (k QueryKind) String() string {
	if k == Technical {
		return "technical"
	}
	return "casual"
}

// technicalKeywords is the failure/repair vocabulary that marks a query as
// technical. Matching is case-insensitive substring containment.
var technicalKeywords = []string{
	"failure", "fail", "error", "defect", "issue", "problem", "broken",
	"leak", "test", "station", "code", "serial", "part", "material",
	"action", "fix", "repair", "replace", "malfunction", "fault",
	"overheating", "not working", "doesn't work", "stopped",
	"diagnostic", "troubleshoot", "debug", "ncr", "duplicate",
	"recurring", "reoccurring", "common", "frequent", "match", "using",
}

var (
	// A run of 3-10 digits, optionally followed by a 3-digit suffix.
	codePattern = regexp.MustCompile(`\b\d{3,10}(?:-\d{3})?\b`)
	// "station 12", "station12"
	stationPattern = regexp.MustCompile(`(?i)station\s*\d+`)
	// Part numbers are longer runs: 7-10 digits plus optional 3-digit suffix.
	partPattern = regexp.MustCompile(`\b\d{7,10}(?:-\d{3})?\b`)
)

// Classify decides whether a raw query warrants retrieval. It is pure and
// deterministic: keywords, numeric-code patterns, and station references are
// technical; everything else (including empty or very short input) is casual.
func Classify(text string) QueryKind {
	lower := strings.ToLower(text)

	for _, kw := range technicalKeywords {
		if strings.Contains(lower, kw) {
			return Technical
		}
	}

	if codePattern.MatchString(lower) {
		return Technical
	}

	if stationPattern.MatchString(text) {
		return Technical
	}

	return Casual
}

// ExtractPartNumbers pulls part-number-shaped tokens out of a query, in
// order of appearance, duplicates preserved. The result biases retrieval
// filtering only; it never rejects a query.
func ExtractPartNumbers(text string) []string {
	return partPattern.FindAllString(text, -1)
}
