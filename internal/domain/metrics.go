package domain

import (
	"encoding/json"
	"math"
)

// Metrics is the performance summary of one backtest run. SharpeRatio is NaN
// when the returns series has zero variance; it marshals to JSON null and
// must never compare greater than a real objective value.
type Metrics struct {
	TotalReturn float64 `json:"total_return"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// SharpeDefined reports whether the Sharpe ratio is a real number.
func (m Metrics) SharpeDefined() bool { return !math.IsNaN(m.SharpeRatio) }

// metricsJSON mirrors Metrics with a nullable Sharpe for the wire format.
type metricsJSON struct {
	TotalReturn float64  `json:"total_return"`
	SharpeRatio *float64 `json:"sharpe_ratio"`
	MaxDrawdown float64  `json:"max_drawdown"`
}

// MarshalJSON encodes an undefined Sharpe ratio as null.
func (m Metrics) MarshalJSON() ([]byte, error) {
	out := metricsJSON{TotalReturn: m.TotalReturn, MaxDrawdown: m.MaxDrawdown}
	if m.SharpeDefined() {
		s := m.SharpeRatio
		out.SharpeRatio = &s
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes null Sharpe ratios back to NaN.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var in metricsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.TotalReturn = in.TotalReturn
	m.MaxDrawdown = in.MaxDrawdown
	if in.SharpeRatio != nil {
		m.SharpeRatio = *in.SharpeRatio
	} else {
		m.SharpeRatio = math.NaN()
	}
	return nil
}

// OptimisationResult is the outcome of a search: the winning ticker or ticker
// pair, the parameter set it was evaluated with, and its metrics.
type OptimisationResult struct {
	Tickers []string `json:"tickers"`
	Params  Params   `json:"params"`
	Metrics Metrics  `json:"metrics"`

	// Partial is set when the search was cancelled and the result reflects
	// only the candidates evaluated before the abort.
	Partial bool `json:"partial,omitempty"`
}
