package sheets

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

func sampleRecord() entity.LogRecord {
	return entity.LogRecord{
		Identifier: "12345",
		Score:      entity.ScoreOf(85),
		Status:     "Lulus",
		Timestamp:  "2026-10-19 08:30:00",
		Filename:   "logs/run.log",
	}
}

func TestRowValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []any{"2026-10-19 08:30:00", "12345", 85, "Lulus", "logs/run.log"}, RowValues(sampleRecord()))

	empty := entity.NewLogRecord("a.log", "2026-10-19 08:30:00")
	assert.Equal(t, []any{"2026-10-19 08:30:00", "N/A", "N/A", "N/A", "a.log"}, RowValues(empty))
	assert.Len(t, RowValues(empty), len(Headers))
}

func TestGoogleAppender(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		path    string
		query   map[string]string
		payload sheets.ValueRange
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		query = map[string]string{
			"valueInputOption": r.URL.Query().Get("valueInputOption"),
			"insertDataOption": r.URL.Query().Get("insertDataOption"),
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &payload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-1","updates":{"updatedRange":"Sheet1!A7:E7","updatedRows":1}}`)
	}))
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	updated, err := NewGoogleAppender(svc, "", nil).AppendRow(context.Background(), "sheet-1", sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, "Sheet1!A7:E7", updated)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasSuffix(path, ":append"), path)
	assert.Contains(t, path, "/spreadsheets/sheet-1/values/")
	assert.Equal(t, "USER_ENTERED", query["valueInputOption"])
	assert.Equal(t, "INSERT_ROWS", query["insertDataOption"])
	require.Len(t, payload.Values, 1)
	assert.Equal(t, []any{"2026-10-19 08:30:00", "12345", float64(85), "Lulus", "logs/run.log"}, payload.Values[0])
}

func TestGoogleAppenderAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"The caller does not have permission"}}`)
	}))
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	_, err = NewGoogleAppender(svc, "A:E", nil).AppendRow(context.Background(), "sheet-1", sampleRecord())
	assert.ErrorContains(t, err, "permission")

	_, err = NewGoogleAppender(svc, "A:E", nil).AppendRow(context.Background(), " ", sampleRecord())
	assert.ErrorContains(t, err, "sheet id is empty")
}

func TestXLSXAppender(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	app := NewXLSXAppender(dir, "Grades", nil)

	first, err := app.AppendRow(context.Background(), "grades", sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, "Grades!A2:E2", first)

	second := entity.NewLogRecord("b.log", "2026-10-19 09:00:00")
	updated, err := app.AppendRow(context.Background(), "grades", second)
	require.NoError(t, err)
	assert.Equal(t, "Grades!A3:E3", updated)

	f, err := excelize.OpenFile(filepath.Join(dir, "grades.xlsx"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Grades")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, []string{"2026-10-19 08:30:00", "12345", "85", "Lulus", "logs/run.log"}, rows[1])
	assert.Equal(t, []string{"2026-10-19 09:00:00", "N/A", "N/A", "N/A", "b.log"}, rows[2])

	_, err = app.AppendRow(context.Background(), "../escape", sampleRecord())
	assert.Error(t, err)
}

func TestSQLAppenderSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := OpenDB(ctx, DriverSQLite, filepath.Join(t.TempDir(), "rows.db"), nil)
	require.NoError(t, err)

	app, err := NewSQLAppender(ctx, db, DriverSQLite, "sheet_rows", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	updated, err := app.AppendRow(ctx, "sheet-1", sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, "sheet_rows#1", updated)

	updated, err = app.AppendRow(ctx, "sheet-1", entity.NewLogRecord("b.log", "2026-10-19 09:00:00"))
	require.NoError(t, err)
	assert.Equal(t, "sheet_rows#2", updated)

	var identifier, score string
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT identifier, score FROM sheet_rows WHERE id = 2").Scan(&identifier, &score))
	assert.Equal(t, "N/A", identifier)
	assert.Equal(t, "N/A", score)

	// an existing table is reused
	_, err = NewSQLAppender(ctx, db, DriverSQLite, "sheet_rows", nil)
	require.NoError(t, err)
}

func TestSQLAppenderRejectsBadInput(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, err := OpenDB(ctx, "oracle", "x", nil)
	assert.ErrorContains(t, err, "unsupported")

	db, err := OpenDB(ctx, DriverSQLite, filepath.Join(t.TempDir(), "rows.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = NewSQLAppender(ctx, db, DriverSQLite, "rows; DROP TABLE x", nil)
	assert.ErrorContains(t, err, "invalid table name")
}
