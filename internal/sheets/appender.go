package sheets

import (
	"context"
	"errors"
	"strings"

	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

// SheetAppender appends one record as a new row and returns the range it landed in.
type SheetAppender interface {
	AppendRow(ctx context.Context, sheetID string, rec entity.LogRecord) (string, error)
}

// Headers name the row columns, in order.
var Headers = []string{"Timestamp", "Identifier", "Score", "Status", "Filename"}

// RowValues flattens a record into the column order of Headers.
func RowValues(rec entity.LogRecord) []any {
	return []any{rec.Timestamp, rec.Identifier, rec.Score.Cell(), rec.Status, rec.Filename}
}

func checkSheetID(sheetID string) error {
	if strings.TrimSpace(sheetID) == "" {
		return errors.New("sheet id is empty")
	}
	return nil
}
