// Package domain defines the core data types shared across the backtesting
// platform: price series, signal frames, parameter sets, and performance
// metrics.
package domain

import (
	"fmt"
	"time"
)

// PriceSeries is an ordered-by-date columnar table of daily prices. Dates are
// strictly increasing with no duplicates. Single-asset series carry Close and
// optionally Open/High/Low; pair series carry Close1 and Close2 instead.
// A PriceSeries is immutable once loaded and is passed by pointer into
// strategies and the backtester.
type PriceSeries struct {
	Dates []time.Time

	// Single-asset columns. High and Low may be nil for strategies that do
	// not need them.
	Open  []float64
	High  []float64
	Low   []float64
	Close []float64

	// Pair columns. Set instead of Close for pairs-trading series.
	Close1 []float64
	Close2 []float64
}

// Len returns the number of rows.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Dates)
}

// Empty reports whether the series has no rows.
func (s *PriceSeries) Empty() bool { return s.Len() == 0 }

// IsPair reports whether the series carries two price columns.
func (s *PriceSeries) IsPair() bool { return s != nil && s.Close1 != nil }

// Validate checks the structural invariants: matching column lengths,
// strictly increasing dates, and exactly one of single/pair column sets.
func (s *PriceSeries) Validate() error {
	n := s.Len()
	if s.IsPair() {
		if len(s.Close1) != n || len(s.Close2) != n {
			return fmt.Errorf("pair series: column length mismatch (dates=%d close1=%d close2=%d)", n, len(s.Close1), len(s.Close2))
		}
		if s.Close != nil {
			return fmt.Errorf("series has both single and pair price columns")
		}
	} else {
		if len(s.Close) != n {
			return fmt.Errorf("series: column length mismatch (dates=%d close=%d)", n, len(s.Close))
		}
		if s.High != nil && len(s.High) != n {
			return fmt.Errorf("series: high column length %d != %d", len(s.High), n)
		}
		if s.Low != nil && len(s.Low) != n {
			return fmt.Errorf("series: low column length %d != %d", len(s.Low), n)
		}
	}
	for i := 1; i < n; i++ {
		if !s.Dates[i].After(s.Dates[i-1]) {
			return fmt.Errorf("series: dates not strictly increasing at row %d (%s >= %s)",
				i, s.Dates[i-1].Format("2006-01-02"), s.Dates[i].Format("2006-01-02"))
		}
	}
	return nil
}

// SignalFrame is the output of a strategy: one row per input row, with a
// target position (Signal) and its day-over-day change (Positions). Strategy
// specific indicator columns (moving averages, z-scores, ADX, ...) are kept
// in Indicators, NaN-filled where the rolling window is not yet satisfied.
type SignalFrame struct {
	Dates      []time.Time
	Signal     []float64
	Positions  []float64
	Indicators map[string][]float64
}

// NewSignalFrame allocates a frame of n rows sharing the given date column,
// with the named indicator columns pre-allocated.
func NewSignalFrame(dates []time.Time, indicators ...string) *SignalFrame {
	n := len(dates)
	f := &SignalFrame{
		Dates:      dates,
		Signal:     make([]float64, n),
		Positions:  make([]float64, n),
		Indicators: make(map[string][]float64, len(indicators)),
	}
	for _, name := range indicators {
		f.Indicators[name] = make([]float64, n)
	}
	return f
}

// Len returns the number of rows.
func (f *SignalFrame) Len() int { return len(f.Dates) }

// FillPositions computes Positions as the first difference of Signal, with
// the first row treated as no change (no position entering the first day).
func (f *SignalFrame) FillPositions() {
	for i := range f.Signal {
		if i == 0 {
			f.Positions[i] = 0
			continue
		}
		f.Positions[i] = f.Signal[i] - f.Signal[i-1]
	}
}
