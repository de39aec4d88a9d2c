package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/sheets/v4"

	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

// GoogleAppender appends rows through the Sheets values.append endpoint.
type GoogleAppender struct {
	svc       *sheets.Service
	cellRange string
	logger    *slog.Logger
}

func NewGoogleAppender(svc *sheets.Service, cellRange string, logger *slog.Logger) *GoogleAppender {
	if logger == nil {
		logger = slog.Default()
	}
	if cellRange == "" {
		cellRange = "A:E"
	}
	return &GoogleAppender{svc: svc, cellRange: cellRange, logger: logger}
}

func (g *GoogleAppender) AppendRow(ctx context.Context, sheetID string, rec entity.LogRecord) (string, error) {
	if err := checkSheetID(sheetID); err != nil {
		return "", err
	}
	body := &sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         [][]any{RowValues(rec)},
	}
	resp, err := g.svc.Spreadsheets.Values.Append(sheetID, g.cellRange, body).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("sheets append: %w", err)
	}

	updated := ""
	if resp.Updates != nil {
		updated = resp.Updates.UpdatedRange
	}
	g.logger.Info("sheets.append.ok", "sheet_id", sheetID, "updated_range", updated)
	return updated, nil
}
