// Package httpapi provides the JSON REST API over the backtest engine:
// single backtests, parameter and universe searches, run history, and the
// strategy catalogue.
package httpapi

import (
	"math"
	"time"

	"quantbt/internal/domain"
	"quantbt/internal/store"
)

// BacktestRequest runs one fixed-parameter backtest.
type BacktestRequest struct {
	Strategy string        `json:"strategy"`
	Params   domain.Params `json:"params,omitempty"`
	Tickers  []string      `json:"tickers"`
	Start    string        `json:"start"` // YYYY-MM-DD
	End      string        `json:"end"`   // YYYY-MM-DD
}

// GridJSON is the wire form of a parameter grid. Domain order is iteration
// order, so it is a list rather than a map.
type GridJSON []struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// OptimiseRequest grid-searches strategy parameters on fixed tickers.
type OptimiseRequest struct {
	Strategy string   `json:"strategy"`
	Grid     GridJSON `json:"grid"`
	Tickers  []string `json:"tickers"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
}

// TickerSearchRequest searches the candidate universe for the best single
// ticker under fixed parameters.
type TickerSearchRequest struct {
	Strategy string        `json:"strategy"`
	Params   domain.Params `json:"params,omitempty"`
	TopN     int           `json:"top_n,omitempty"`
	Start    string        `json:"start"`
	End      string        `json:"end"`
}

// PairSearchRequest searches the candidate universe for the best ticker
// pair, optionally optimising parameters per pair.
type PairSearchRequest struct {
	Grid     GridJSON `json:"grid,omitempty"`
	Optimise bool     `json:"optimise,omitempty"`
	TopN     int      `json:"top_n,omitempty"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
}

// MetricsJSON is the wire form of performance metrics. An undefined Sharpe
// ratio serialises as null.
type MetricsJSON struct {
	TotalReturn float64  `json:"total_return"`
	SharpeRatio *float64 `json:"sharpe_ratio"`
	MaxDrawdown float64  `json:"max_drawdown"`
}

func metricsJSON(m domain.Metrics) MetricsJSON {
	out := MetricsJSON{TotalReturn: m.TotalReturn, MaxDrawdown: m.MaxDrawdown}
	if m.SharpeDefined() {
		v := m.SharpeRatio
		out.SharpeRatio = &v
	}
	return out
}

// BacktestResponse is the result of a single backtest.
type BacktestResponse struct {
	Strategy string        `json:"strategy"`
	Tickers  []string      `json:"tickers"`
	Params   domain.Params `json:"params,omitempty"`
	Metrics  MetricsJSON   `json:"metrics"`
	Dates    []string      `json:"dates,omitempty"`
	Equity   []float64     `json:"equity,omitempty"`
}

// SearchResponse is the result of any search endpoint.
type SearchResponse struct {
	Tickers []string      `json:"tickers"`
	Params  domain.Params `json:"params,omitempty"`
	Metrics MetricsJSON   `json:"metrics"`
	Partial bool          `json:"partial,omitempty"`
}

// RecordJSON is one run-history entry.
type RecordJSON struct {
	ID          int64         `json:"id"`
	DateCreated time.Time     `json:"date_created"`
	Name        string        `json:"name"`
	Params      domain.Params `json:"params,omitempty"`
	Metrics     MetricsJSON   `json:"metrics"`
	Tickers     []string      `json:"tickers"`
	Start       string        `json:"start"`
	End         string        `json:"end"`
}

func recordJSON(rec store.Record) RecordJSON {
	return RecordJSON{
		ID:          rec.ID,
		DateCreated: rec.DateCreated,
		Name:        rec.Name,
		Params:      rec.Params,
		Metrics:     metricsJSON(rec.Metrics),
		Tickers:     rec.Tickers,
		Start:       rec.StartDate.Format("2006-01-02"),
		End:         rec.EndDate.Format("2006-01-02"),
	}
}

// HistoryResponse lists recent run records, newest first.
type HistoryResponse struct {
	Records []RecordJSON `json:"records"`
}

// StrategiesResponse lists the registered strategy names.
type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}

func (g GridJSON) toGrid() domain.ParamGrid {
	grid := make(domain.ParamGrid, 0, len(g))
	for _, d := range g {
		grid = append(grid, domain.ParamDomain{Name: d.Name, Values: d.Values})
	}
	return grid
}

// sanitizeEquity replaces non-finite equity values so the curve stays
// JSON-encodable.
func sanitizeEquity(equity []float64) []float64 {
	out := make([]float64, len(equity))
	for i, v := range equity {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[i] = v
	}
	return out
}
