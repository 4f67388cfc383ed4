// Package store persists bar data and completed run results. Bars live in
// Parquet files on disk; run history lives in a SQLite database.
package store

import (
	"context"
	"time"

	"quantbt/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars, merged with any already stored.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the symbol within [start, end], sorted by
	// timestamp.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored bars.
	ListSymbols(ctx context.Context) ([]string, error)
}

// Record is one completed backtest or optimisation run.
type Record struct {
	ID          int64
	DateCreated time.Time
	Name        string
	Params      domain.Params
	Metrics     domain.Metrics
	Tickers     []string
	StartDate   time.Time
	EndDate     time.Time
}

// HistoryStore persists completed run records.
type HistoryStore interface {
	// Append inserts a record and fills in its ID and creation time.
	Append(ctx context.Context, rec *Record) error

	// ListRecent returns the most recent records, newest first, up to limit.
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}
