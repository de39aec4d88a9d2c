package entity

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/joseph-ayodele/gradebook-relay/constants"
)

// LogRecord is the structured result of parsing one log file.
// Every field always carries a value; constants.NotAvailable marks missing data.
type LogRecord struct {
	Identifier string `json:"identifier"`
	Score      Score  `json:"score"`
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	Filename   string `json:"filename"`
}

// NewLogRecord returns a record holding only sentinels plus the given filename and timestamp.
func NewLogRecord(filename, timestamp string) LogRecord {
	return LogRecord{
		Identifier: constants.NotAvailable,
		Score:      Score{},
		Status:     constants.NotAvailable,
		Timestamp:  timestamp,
		Filename:   filename,
	}
}

// Score is an integer score or, when the log had none, the "N/A" sentinel.
type Score struct {
	Value int
	Valid bool
}

// ScoreOf returns a present score.
func ScoreOf(v int) Score {
	return Score{Value: v, Valid: true}
}

// String renders the score the way it appears in the sheet and email.
func (s Score) String() string {
	if !s.Valid {
		return constants.NotAvailable
	}
	return strconv.Itoa(s.Value)
}

// Cell returns the value to hand to a spreadsheet: an int, or the sentinel string.
func (s Score) Cell() any {
	if !s.Valid {
		return constants.NotAvailable
	}
	return s.Value
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return json.Marshal(constants.NotAvailable)
	}
	return []byte(strconv.Itoa(s.Value)), nil
}

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str != constants.NotAvailable {
			return fmt.Errorf("score: unexpected string %q", str)
		}
		*s = Score{}
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*s = Score{}
		return nil
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}
	*s = ScoreOf(v)
	return nil
}
