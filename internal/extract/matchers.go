package extract

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/gradebook-relay/constants"
	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

var (
	scoreKeywords  = []string{"score:", "nilai:", "grade:"}
	statusKeywords = []string{"status:", "result:"}
)

// DefaultMatchers returns the matchers in priority order: identifier, score, status.
func DefaultMatchers(identifierKeywords []string) []FieldMatcher {
	return []FieldMatcher{
		NewIdentifierMatcher(identifierKeywords),
		ScoreMatcher{},
		StatusMatcher{},
	}
}

// IdentifierMatcher picks the student/record ID off lines such as "NIM: 12345, Budi".
type IdentifierMatcher struct {
	keywords []string
}

func NewIdentifierMatcher(keywords []string) IdentifierMatcher {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return IdentifierMatcher{keywords: lowered}
}

func (IdentifierMatcher) Field() string { return "identifier" }

func (m IdentifierMatcher) Matches(line string) bool {
	return containsAny(line, m.keywords)
}

func (IdentifierMatcher) Apply(line string, rec entity.LogRecord) (entity.LogRecord, bool) {
	rest, ok := afterColon(line)
	if !ok {
		return rec, false
	}
	first, _, _ := strings.Cut(rest, ",")
	tokens := strings.Fields(first)
	if len(tokens) == 0 {
		return rec, false
	}
	rec.Identifier = tokens[0]
	return rec, true
}

// ScoreMatcher reads a numeric score and derives the pass/fail status from it.
type ScoreMatcher struct{}

func (ScoreMatcher) Field() string { return "score" }

func (ScoreMatcher) Matches(line string) bool {
	return containsAny(line, scoreKeywords)
}

func (ScoreMatcher) Apply(line string, rec entity.LogRecord) (entity.LogRecord, bool) {
	rest, ok := afterColon(line)
	if !ok {
		return rec, false
	}
	tokens := strings.Fields(rest)
	if len(tokens) == 0 {
		return rec, false
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, tokens[0])
	if digits == "" {
		return rec, false
	}
	score, err := strconv.Atoi(digits)
	if err != nil {
		return rec, false
	}
	rec.Score = entity.ScoreOf(score)
	rec.Status = string(constants.StatusForScore(score))
	return rec, true
}

// StatusMatcher copies an explicit status verbatim, overriding any derived one.
type StatusMatcher struct{}

func (StatusMatcher) Field() string { return "status" }

func (StatusMatcher) Matches(line string) bool {
	return containsAny(line, statusKeywords)
}

func (StatusMatcher) Apply(line string, rec entity.LogRecord) (entity.LogRecord, bool) {
	rest, ok := afterColon(line)
	if !ok {
		return rec, false
	}
	status := strings.TrimSpace(rest)
	if status == "" {
		return rec, false
	}
	rec.Status = status
	return rec, true
}

func containsAny(line string, keywords []string) bool {
	lower := strings.ToLower(line)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// afterColon returns the text following the first ':' with surrounding space removed.
func afterColon(line string) (string, bool) {
	_, rest, found := strings.Cut(line, ":")
	if !found {
		return "", false
	}
	return strings.TrimFunc(rest, unicode.IsSpace), true
}
