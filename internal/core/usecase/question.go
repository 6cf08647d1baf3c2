package usecase

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hydrointel-my/infobanjir-rag/internal/core/domain"
)

var (
	stateNamePatterns = buildStateNamePatterns()
	todayPattern      = regexp.MustCompile(`\btoday\b`)
	betweenPattern    = regexp.MustCompile(`between\s+(\d{4}-\d{2}-\d{2})\s+and\s+(\d{4}-\d{2}-\d{2})`)
	fromToPattern     = regexp.MustCompile(`from\s+(\d{4}-\d{2}-\d{2})\s+to\s+(\d{4}-\d{2}-\d{2})`)
	bareDatePattern   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

type statePattern struct {
	code    string
	pattern *regexp.Regexp
}

func buildStateNamePatterns() []statePattern {
	names := make([]string, 0, len(domain.StateNameToCode))
	for name := range domain.StateNameToCode {
		names = append(names, name)
	}
	sort.Strings(names)

	patterns := make([]statePattern, 0, len(names))
	for _, name := range names {
		patterns = append(patterns, statePattern{
			code:    domain.StateNameToCode[name],
			pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`),
		})
	}
	return patterns
}

// InferState scans a free-text question for a known state. Whole-word
// state names win regardless of corpus contents; failing that, any
// state code already present in the corpus matches as a substring.
// Returns "" when nothing matches, in which case callers must not
// filter by state.
func InferState(question string, docs []domain.Document) string {
	q := strings.ToLower(question)
	for _, sp := range stateNamePatterns {
		if sp.pattern.MatchString(q) {
			return sp.code
		}
	}

	codes := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if doc.State != "" {
			codes[strings.ToUpper(doc.State)] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(codes))
	for code := range codes {
		sorted = append(sorted, code)
	}
	sort.Strings(sorted)
	for _, code := range sorted {
		if strings.Contains(q, strings.ToLower(code)) {
			return code
		}
	}
	return ""
}

// InferDateRange extracts an inclusive [from, to] recorded_date
// constraint from the question. "today" maps to the current UTC date as
// both bounds; explicit ranges and a single bare date follow; otherwise
// no constraint.
func InferDateRange(question string, now time.Time) (string, string) {
	q := strings.ToLower(question)

	if todayPattern.MatchString(q) {
		today := now.UTC().Format("2006-01-02")
		return today, today
	}
	if m := betweenPattern.FindStringSubmatch(q); m != nil {
		return m[1], m[2]
	}
	if m := fromToPattern.FindStringSubmatch(q); m != nil {
		return m[1], m[2]
	}
	if date := bareDatePattern.FindString(q); date != "" {
		return date, date
	}
	return "", ""
}
