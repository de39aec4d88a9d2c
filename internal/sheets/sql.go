package sheets

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

// Supported SQL drivers.
const (
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// OpenDB opens a database/sql handle for the pgx (Postgres) or sqlite driver.
func OpenDB(ctx context.Context, driver, dsn string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch driver {
	case DriverPgx:
		cc, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse dsn: %w", err)
		}
		cc.RuntimeParams["application_name"] = "gradebook-relay"
		db := stdlib.OpenDB(*cc)
		db.SetMaxOpenConns(2)

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("connect: %w", err)
		}
		logger.Debug("sheets.sql.connected", "driver", driver)
		return db, nil
	case DriverSQLite:
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// a single writer keeps SQLite from reporting SQLITE_BUSY
		db.SetMaxOpenConns(1)
		logger.Debug("sheets.sql.connected", "driver", driver)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

// SQLAppender records rows in a database table. The sheet id becomes a column
// so one table can hold several logical sheets.
type SQLAppender struct {
	db     *sql.DB
	driver string
	table  string
	logger *slog.Logger
}

// NewSQLAppender wraps db and creates table when it is missing.
func NewSQLAppender(ctx context.Context, db *sql.DB, driver, table string, logger *slog.Logger) (*SQLAppender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	a := &SQLAppender{db: db, driver: driver, table: table, logger: logger}
	if _, err := db.ExecContext(ctx, a.createStmt()); err != nil {
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	return a, nil
}

func (a *SQLAppender) createStmt() string {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if a.driver == DriverPgx {
		id = "BIGSERIAL PRIMARY KEY"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id %s,
	sheet_id TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	identifier TEXT NOT NULL,
	score TEXT NOT NULL,
	status TEXT NOT NULL,
	filename TEXT NOT NULL
)`, a.table, id)
}

func (a *SQLAppender) insertStmt() string {
	ph := []any{"?", "?", "?", "?", "?", "?"}
	if a.driver == DriverPgx {
		ph = []any{"$1", "$2", "$3", "$4", "$5", "$6"}
	}
	return fmt.Sprintf(
		"INSERT INTO %s (sheet_id, recorded_at, identifier, score, status, filename) VALUES (%s, %s, %s, %s, %s, %s) RETURNING id",
		append([]any{a.table}, ph...)...,
	)
}

func (a *SQLAppender) AppendRow(ctx context.Context, sheetID string, rec entity.LogRecord) (string, error) {
	if err := checkSheetID(sheetID); err != nil {
		return "", err
	}
	var id int64
	err := a.db.QueryRowContext(ctx, a.insertStmt(),
		sheetID, rec.Timestamp, rec.Identifier, rec.Score.String(), rec.Status, rec.Filename,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert row: %w", err)
	}
	updated := fmt.Sprintf("%s#%d", a.table, id)
	a.logger.Info("sheets.sql.ok", "sheet_id", sheetID, "updated_range", updated)
	return updated, nil
}

// Close releases the underlying database handle.
func (a *SQLAppender) Close() error {
	return a.db.Close()
}
