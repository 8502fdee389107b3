// Package journal persists the append-only execution and health records
// that outlive a single process: every Fill the paper engine produces,
// and every component health transition, written to SQLite so a
// post-mortem after an invariant-violation halt has something durable to
// read.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"probedge/internal/models"
)

// Journal is the SQLite-backed append-only store for Fills and health
// transitions.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if necessary) the journal database at path and
// ensures its schema exists.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	j := &Journal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing journal schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS fills (
		id TEXT PRIMARY KEY,
		client_order_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		qty INTEGER NOT NULL,
		price REAL NOT NULL,
		ts DATETIME NOT NULL,
		reason TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);
	CREATE INDEX IF NOT EXISTS idx_fills_ts ON fills(ts);

	CREATE TABLE IF NOT EXISTS health_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts DATETIME NOT NULL,
		component TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_health_component ON health_log(component);
	CREATE INDEX IF NOT EXISTS idx_health_ts ON health_log(ts);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordFill appends one Fill. Fill IDs are unique (uuid-generated by the
// paper engine), so a duplicate RecordFill for an already-journaled fill
// fails loudly rather than silently overwriting a historical row.
func (j *Journal) RecordFill(ctx context.Context, fill models.Fill) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO fills (id, client_order_id, symbol, side, qty, price, ts, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, fill.ID, fill.ClientOrderID, fill.Symbol, string(fill.Side), fill.Qty, fill.Price, fill.TS, string(fill.Reason))
	if err != nil {
		return fmt.Errorf("recording fill %s: %w", fill.ID, err)
	}
	return nil
}

// FillFilter narrows a Fills query.
type FillFilter struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// Fills returns journaled fills matching filter, most recent first.
func (j *Journal) Fills(ctx context.Context, filter FillFilter) ([]models.Fill, error) {
	query := "SELECT id, client_order_id, symbol, side, qty, price, ts, reason FROM fills WHERE 1=1"
	var args []interface{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		query += " AND ts >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND ts <= ?"
		args = append(args, filter.EndDate)
	}
	query += " ORDER BY ts DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying fills: %w", err)
	}
	defer rows.Close()

	var fills []models.Fill
	for rows.Next() {
		var f models.Fill
		var side, reason string
		if err := rows.Scan(&f.ID, &f.ClientOrderID, &f.Symbol, &side, &f.Qty, &f.Price, &f.TS, &reason); err != nil {
			return nil, fmt.Errorf("scanning fill: %w", err)
		}
		f.Side = models.OrderSide(side)
		f.Reason = models.ExitReason(reason)
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// RecordHealth appends a component health transition for post-mortem
// review after an invariant-violation halt.
func (j *Journal) RecordHealth(ctx context.Context, ts time.Time, component string, status models.HeartbeatStatus, message string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO health_log (ts, component, status, message) VALUES (?, ?, ?, ?)
	`, ts, component, string(status), message)
	if err != nil {
		return fmt.Errorf("recording health transition for %s: %w", component, err)
	}
	return nil
}
