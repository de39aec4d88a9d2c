package extract

import (
	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

// FieldMatcher is one predicate + extractor pair over a single trimmed log line.
// Matches must be side-effect free; Apply returns the record with its field
// updated, and false when the line matched but carried nothing usable.
type FieldMatcher interface {
	Field() string
	Matches(line string) bool
	Apply(line string, rec entity.LogRecord) (entity.LogRecord, bool)
}

// FieldExtractor turns raw log text into a LogRecord. Implementations are total.
type FieldExtractor interface {
	Extract(text, filename string) entity.LogRecord
}
