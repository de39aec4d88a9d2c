package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

// XLSXAppender keeps one workbook per sheet id under dir and appends rows to it.
// Used when no Google account is available (local runs, the watch command).
type XLSXAppender struct {
	dir    string
	sheet  string
	logger *slog.Logger

	mu sync.Mutex
}

func NewXLSXAppender(dir, sheet string, logger *slog.Logger) *XLSXAppender {
	if logger == nil {
		logger = slog.Default()
	}
	if sheet == "" {
		sheet = "Sheet1"
	}
	return &XLSXAppender{dir: dir, sheet: sheet, logger: logger}
}

// Path returns the workbook file backing sheetID.
func (x *XLSXAppender) Path(sheetID string) string {
	return filepath.Join(x.dir, sheetID+".xlsx")
}

func (x *XLSXAppender) AppendRow(_ context.Context, sheetID string, rec entity.LogRecord) (string, error) {
	if err := checkSheetID(sheetID); err != nil {
		return "", err
	}
	if strings.ContainsAny(sheetID, `/\`) || strings.Contains(sheetID, "..") {
		return "", fmt.Errorf("invalid sheet id %q", sheetID)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	path := x.Path(sheetID)
	f, err := x.open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(x.sheet)
	if err != nil {
		return "", fmt.Errorf("read rows: %w", err)
	}
	row := len(rows) + 1

	start, _ := excelize.CoordinatesToCellName(1, row)
	values := RowValues(rec)
	if err := f.SetSheetRow(x.sheet, start, &values); err != nil {
		return "", fmt.Errorf("xlsx row: %w", err)
	}
	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return "", fmt.Errorf("create workbook dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("xlsx write: %w", err)
	}

	end, _ := excelize.CoordinatesToCellName(len(values), row)
	updated := fmt.Sprintf("%s!%s:%s", x.sheet, start, end)
	x.logger.Info("sheets.xlsx.ok", "path", path, "updated_range", updated)
	return updated, nil
}

// open loads an existing workbook or starts a new one with the header row.
func (x *XLSXAppender) open(path string) (*excelize.File, error) {
	f, err := excelize.OpenFile(path)
	if err == nil {
		if idx, _ := f.GetSheetIndex(x.sheet); idx == -1 {
			if _, err := f.NewSheet(x.sheet); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}

	f = excelize.NewFile()
	if idx, _ := f.GetSheetIndex(x.sheet); idx == -1 {
		if _, err := f.NewSheet(x.sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(x.sheet)
	f.SetActiveSheet(activeIndex)
	if x.sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(x.sheet, cell, h)
	}
	_ = f.SetColWidth(x.sheet, "A", "A", 20) // timestamp
	_ = f.SetColWidth(x.sheet, "B", "B", 16) // identifier
	_ = f.SetColWidth(x.sheet, "C", "C", 8)  // score
	_ = f.SetColWidth(x.sheet, "D", "D", 14) // status
	_ = f.SetColWidth(x.sheet, "E", "E", 40) // filename
	return f, nil
}
