package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

func TestMatcherPredicates(t *testing.T) {
	t.Parallel()

	id := NewIdentifierMatcher([]string{" NIM: ", "nrp:", ""})
	tests := []struct {
		line    string
		matcher FieldMatcher
		want    bool
	}{
		{"NIM: 1", id, true},
		{"nim: 1", id, true},
		{"Nrp: 1", id, true},
		{"name: Budi", id, false},
		{"Score: 1", ScoreMatcher{}, true},
		{"NILAI: 1", ScoreMatcher{}, true},
		{"final grade: A", ScoreMatcher{}, true},
		{"scored 10", ScoreMatcher{}, false},
		{"Status: ok", StatusMatcher{}, true},
		{"RESULT: ok", StatusMatcher{}, true},
		{"results 3", StatusMatcher{}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.matcher.Matches(tt.line), "%s on %q", tt.matcher.Field(), tt.line)
	}
}

func TestMatcherApplyDoesNotTouchOtherFields(t *testing.T) {
	t.Parallel()

	base := entity.LogRecord{Identifier: "keep", Score: entity.ScoreOf(1), Status: "keep", Timestamp: "ts", Filename: "f"}

	got, ok := StatusMatcher{}.Apply("status: new", base)
	assert.True(t, ok)
	assert.Equal(t, "new", got.Status)
	assert.Equal(t, "keep", got.Identifier)
	assert.Equal(t, entity.ScoreOf(1), got.Score)
	assert.Equal(t, "keep", base.Status, "input record must not be mutated")
}

func TestDefaultMatchersOrder(t *testing.T) {
	t.Parallel()

	var fields []string
	for _, m := range DefaultMatchers([]string{"nim:"}) {
		fields = append(fields, m.Field())
	}
	assert.Equal(t, []string{"identifier", "score", "status"}, fields)
}
