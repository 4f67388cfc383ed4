// Package backtest replays a strategy's signals over a historical price
// series and computes performance metrics.
package backtest

import (
	"errors"
	"math"

	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// tradingDaysPerYear annualises the Sharpe ratio.
const tradingDaysPerYear = 252

// ErrNotRun is returned by Metrics when Run has not completed.
var ErrNotRun = errors.New("backtest has not been run")

// Backtester simulates capital allocation for one strategy over one price
// series. Zero-valued until Run succeeds; Metrics is only valid afterwards.
type Backtester struct {
	series *domain.PriceSeries
	strat  strategy.Strategy

	ran     bool
	frame   *domain.SignalFrame
	returns []float64
	equity  []float64
}

// New creates a Backtester for the given series and strategy.
func New(series *domain.PriceSeries, strat strategy.Strategy) *Backtester {
	return &Backtester{series: series, strat: strat}
}

// Run generates signals and simulates the position over time. Signals
// computed on day t are executed on day t+1: the per-period return is the
// price percent change times the previous day's signal, which eliminates
// lookahead bias.
func (b *Backtester) Run() (*domain.SignalFrame, error) {
	frame, err := b.strat.GenerateSignals(b.series)
	if err != nil {
		return nil, err
	}

	n := frame.Len()
	returns := make([]float64, n)
	equity := make([]float64, n)

	prev := 1.0
	for i := 0; i < n; i++ {
		if i > 0 {
			returns[i] = b.pctChange(i) * frame.Signal[i-1]
		}
		prev *= 1 + returns[i]
		equity[i] = prev
	}

	b.frame = frame
	b.returns = returns
	b.equity = equity
	b.ran = true
	return frame, nil
}

// pctChange returns the percent change of the price at row i over row i-1.
// For pair series it is the spread of the two legs' percent changes, matching
// the long-one/short-other reading of the combined signal.
func (b *Backtester) pctChange(i int) float64 {
	if b.series.IsPair() {
		return b.series.Close1[i]/b.series.Close1[i-1] - b.series.Close2[i]/b.series.Close2[i-1]
	}
	return b.series.Close[i]/b.series.Close[i-1] - 1
}

// Returns exposes the per-period strategy returns after Run.
func (b *Backtester) Returns() []float64 { return b.returns }

// EquityCurve exposes the cumulative equity curve after Run (starting
// capital normalised to 1).
func (b *Backtester) EquityCurve() []float64 { return b.equity }

// Metrics computes the performance summary. It fails with ErrNotRun before
// Run has completed. The Sharpe ratio is NaN when the returns have zero
// variance; Max Drawdown is always <= 0.
func (b *Backtester) Metrics() (domain.Metrics, error) {
	if !b.ran {
		return domain.Metrics{}, ErrNotRun
	}

	m := domain.Metrics{SharpeRatio: math.NaN()}
	n := len(b.equity)
	if n == 0 {
		return m, nil
	}

	m.TotalReturn = b.equity[n-1] - 1
	m.SharpeRatio = sharpeRatio(b.returns)
	m.MaxDrawdown = maxDrawdown(b.equity)
	return m, nil
}

// sharpeRatio is sqrt(252) * mean / sample std, NaN for fewer than two
// observations or zero variance.
func sharpeRatio(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return math.NaN()
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(n-1))
	if std == 0 {
		return math.NaN()
	}
	return math.Sqrt(tradingDaysPerYear) * mean / std
}

// maxDrawdown is the minimum of equity/runningMax - 1 over the curve.
func maxDrawdown(equity []float64) float64 {
	minDD := 0.0
	runMax := math.Inf(-1)
	for _, e := range equity {
		if e > runMax {
			runMax = e
		}
		if dd := e/runMax - 1; dd < minDD {
			minDD = dd
		}
	}
	return minDD
}

// Evaluate is the single-evaluation entry point: it validates the strategy
// type against the registry before any data is touched, constructs the
// strategy with fixed parameters, runs the backtest, and returns the equity
// curve and metrics.
func Evaluate(reg *strategy.Registry, strategyType string, params domain.Params, series *domain.PriceSeries) ([]float64, domain.Metrics, error) {
	strat, err := reg.Create(strategyType, params)
	if err != nil {
		return nil, domain.Metrics{}, err
	}

	bt := New(series, strat)
	if _, err := bt.Run(); err != nil {
		return nil, domain.Metrics{}, err
	}
	metrics, err := bt.Metrics()
	if err != nil {
		return nil, domain.Metrics{}, err
	}
	return bt.EquityCurve(), metrics, nil
}
