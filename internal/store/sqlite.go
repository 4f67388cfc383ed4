package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ HistoryStore = (*SQLiteStore)(nil)

const createStrategiesTable = `
CREATE TABLE IF NOT EXISTS strategies (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	date_created TEXT NOT NULL,
	name         TEXT NOT NULL,
	parameters   TEXT NOT NULL,
	total_return REAL NOT NULL,
	sharpe_ratio REAL,
	max_drawdown REAL NOT NULL,
	tickers      TEXT NOT NULL,
	start_date   TEXT NOT NULL,
	end_date     TEXT NOT NULL
)`

// SQLiteStore implements HistoryStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, ensures the
// schema exists, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if _, err := db.Exec(createStrategiesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating strategies table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts a record and fills in its ID and creation time. An
// undefined Sharpe ratio is stored as NULL.
func (s *SQLiteStore) Append(ctx context.Context, rec *Record) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("encoding parameters: %w", err)
	}
	tickers, err := json.Marshal(rec.Tickers)
	if err != nil {
		return fmt.Errorf("encoding tickers: %w", err)
	}

	var sharpe sql.NullFloat64
	if rec.Metrics.SharpeDefined() {
		sharpe = sql.NullFloat64{Float64: rec.Metrics.SharpeRatio, Valid: true}
	}

	created := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO strategies
			(date_created, name, parameters, total_return, sharpe_ratio,
			 max_drawdown, tickers, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.Format(time.RFC3339),
		rec.Name,
		string(params),
		rec.Metrics.TotalReturn,
		sharpe,
		rec.Metrics.MaxDrawdown,
		string(tickers),
		rec.StartDate.UTC().Format(time.RFC3339),
		rec.EndDate.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting run record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted id: %w", err)
	}
	rec.ID = id
	rec.DateCreated = created
	return nil
}

// ListRecent returns the most recent records, newest first, up to limit.
// A non-positive limit returns nothing.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date_created, name, parameters, total_return,
		       sharpe_ratio, max_drawdown, tickers, start_date, end_date
		FROM strategies
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying run records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec           Record
			created       string
			params        string
			sharpe        sql.NullFloat64
			tickers       string
			startD, endD  string
		)
		if err := rows.Scan(&rec.ID, &created, &rec.Name, &params,
			&rec.Metrics.TotalReturn, &sharpe, &rec.Metrics.MaxDrawdown,
			&tickers, &startD, &endD); err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}

		if rec.DateCreated, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parsing date_created: %w", err)
		}
		if rec.StartDate, err = time.Parse(time.RFC3339, startD); err != nil {
			return nil, fmt.Errorf("parsing start_date: %w", err)
		}
		if rec.EndDate, err = time.Parse(time.RFC3339, endD); err != nil {
			return nil, fmt.Errorf("parsing end_date: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
			return nil, fmt.Errorf("decoding parameters: %w", err)
		}
		if err := json.Unmarshal([]byte(tickers), &rec.Tickers); err != nil {
			return nil, fmt.Errorf("decoding tickers: %w", err)
		}

		if sharpe.Valid {
			rec.Metrics.SharpeRatio = sharpe.Float64
		} else {
			rec.Metrics.SharpeRatio = math.NaN()
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}
