package extract

import (
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/gradebook-relay/constants"
	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

// Config holds the deployment-specific parts of the scanner.
type Config struct {
	IdentifierKeywords []string // default nim:, nrp:
}

// Extractor scans a log line by line and lets each matcher update the record.
// Later lines overwrite earlier values.
type Extractor struct {
	logger   *slog.Logger
	matchers []FieldMatcher
	now      func() time.Time
}

type Option func(*Extractor)

// WithMatchers replaces the default matcher list.
func WithMatchers(m ...FieldMatcher) Option {
	return func(e *Extractor) {
		if len(m) > 0 {
			e.matchers = m
		}
	}
}

// WithClock sets the clock used for the record timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.IdentifierKeywords) == 0 {
		cfg.IdentifierKeywords = []string{"nim:", "nrp:"}
	}
	e := &Extractor{
		logger:   logger,
		matchers: DefaultMatchers(cfg.IdentifierKeywords),
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract never fails: unusable lines leave the record as it was.
func (e *Extractor) Extract(text, filename string) entity.LogRecord {
	rec := entity.NewLogRecord(filename, e.now().Format(constants.RecordTimeLayout))

	lines := strings.Split(text, "\n")
	hits := map[string]int{}
	for n, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		for _, m := range e.matchers {
			if !m.Matches(line) {
				continue
			}
			next, ok := m.Apply(line, rec)
			if !ok {
				e.logger.Debug("extract.line.skipped", "field", m.Field(), "line", n+1)
				continue
			}
			rec = next
			hits[m.Field()]++
		}
	}

	e.logger.Info("extract.ok",
		"filename", filename,
		"lines", len(lines),
		"identifier", rec.Identifier,
		"score", rec.Score.String(),
		"status", rec.Status,
		"matches", hits,
	)
	return rec
}
