package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"quantbt/internal/domain"
	"quantbt/internal/strategy"
	"quantbt/internal/strategy/builtins"
)

func dates(n int) []time.Time {
	out := make([]time.Time, n)
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = d.AddDate(0, 0, i)
	}
	return out
}

func closeSeries(closes []float64) *domain.PriceSeries {
	return &domain.PriceSeries{Dates: dates(len(closes)), Close: closes}
}

// alternating holds on even rows and is flat on odd rows. The signal depends
// only on the row index, which makes it useful for causality tests.
type alternating struct{}

func (alternating) Name() string { return "alternating" }
func (alternating) GenerateSignals(s *domain.PriceSeries) (*domain.SignalFrame, error) {
	f := domain.NewSignalFrame(s.Dates)
	for i := range f.Signal {
		if i%2 == 0 {
			f.Signal[i] = 1
		}
	}
	f.FillPositions()
	return f, nil
}

func TestBuyAndHold_RisingSeriesScenario(t *testing.T) {
	// 31 daily closes rising 1.0/day from 100.0: total return is 30/100 and
	// the equity curve never draws down.
	closes := make([]float64, 31)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	strat, _ := builtins.NewBuyAndHold(nil)
	bt := New(closeSeries(closes), strat)
	if _, err := bt.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	m, err := bt.Metrics()
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}

	if math.Abs(m.TotalReturn-0.3) > 1e-9 {
		t.Errorf("TotalReturn = %v, want 0.3", m.TotalReturn)
	}
	if m.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0", m.MaxDrawdown)
	}
	if !m.SharpeDefined() || m.SharpeRatio <= 0 {
		t.Errorf("SharpeRatio = %v, want a positive real number", m.SharpeRatio)
	}

	// Total Return recovers exactly the final equity value minus one.
	curve := bt.EquityCurve()
	if m.TotalReturn != curve[len(curve)-1]-1 {
		t.Errorf("TotalReturn %v != final equity - 1 (%v)", m.TotalReturn, curve[len(curve)-1]-1)
	}
}

func TestMetrics_FlatSeriesUndefinedSharpe(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100}
	strat, _ := builtins.NewBuyAndHold(nil)
	bt := New(closeSeries(closes), strat)
	if _, err := bt.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	m, err := bt.Metrics()
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if m.SharpeDefined() {
		t.Errorf("SharpeRatio = %v for zero-variance returns, want NaN", m.SharpeRatio)
	}
	if m.TotalReturn != 0 || m.MaxDrawdown != 0 {
		t.Errorf("flat series metrics = %+v, want zero return and drawdown", m)
	}
}

func TestMetrics_BeforeRun(t *testing.T) {
	strat, _ := builtins.NewBuyAndHold(nil)
	bt := New(closeSeries([]float64{100, 101}), strat)
	if _, err := bt.Metrics(); !errors.Is(err, ErrNotRun) {
		t.Fatalf("Metrics before Run returned %v, want ErrNotRun", err)
	}
}

func TestRun_SignalLagsByOnePeriod(t *testing.T) {
	closes := []float64{100, 110, 121, 133.1, 146.41, 161.05}
	bt := New(closeSeries(closes), alternating{})
	if _, err := bt.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	r := bt.Returns()

	// Day t's return uses day t-1's signal: odd rows follow the 10% move
	// (signal was 1), even rows sit out (signal was 0).
	if math.Abs(r[1]-0.1) > 1e-9 {
		t.Errorf("returns[1] = %v, want 0.1 (previous day long)", r[1])
	}
	if r[2] != 0 {
		t.Errorf("returns[2] = %v, want 0 (previous day flat)", r[2])
	}
	if r[0] != 0 {
		t.Errorf("returns[0] = %v, want 0 (no position entering the first day)", r[0])
	}
}

func TestRun_NoLookahead(t *testing.T) {
	base := []float64{100, 101, 99, 102, 104, 103, 105, 106}
	cut := 4

	run := func(closes []float64) []float64 {
		bt := New(closeSeries(closes), alternating{})
		if _, err := bt.Run(); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return bt.Returns()
	}

	r1 := run(base)

	// Perturb every price strictly after index cut.
	mutated := append([]float64(nil), base...)
	for i := cut + 1; i < len(mutated); i++ {
		mutated[i] *= 1.5
	}
	r2 := run(mutated)

	for i := 0; i <= cut; i++ {
		if r1[i] != r2[i] {
			t.Errorf("returns[%d] changed from %v to %v after mutating later prices", i, r1[i], r2[i])
		}
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	reg := builtins.NewRegistry()
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + 3*math.Sin(float64(i)/4)
	}
	series := closeSeries(closes)
	params := domain.Params{"window": 5, "std_dev": 1.0}

	_, m1, err := Evaluate(reg, builtins.NameMeanReversion, params, series)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	_, m2, err := Evaluate(reg, builtins.NameMeanReversion, params, series)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if m1.TotalReturn != m2.TotalReturn || m1.MaxDrawdown != m2.MaxDrawdown {
		t.Errorf("repeated evaluation differed: %+v vs %+v", m1, m2)
	}
	if m1.SharpeDefined() != m2.SharpeDefined() ||
		(m1.SharpeDefined() && m1.SharpeRatio != m2.SharpeRatio) {
		t.Errorf("repeated evaluation Sharpe differed: %v vs %v", m1.SharpeRatio, m2.SharpeRatio)
	}
}

func TestEvaluate_UnknownStrategyFailsBeforeData(t *testing.T) {
	reg := builtins.NewRegistry()

	// A nil series would panic if evaluation touched data before the
	// strategy-name check.
	_, _, err := Evaluate(reg, "Invalid Strategy", nil, nil)
	if !errors.Is(err, strategy.ErrUnknownStrategy) {
		t.Fatalf("Evaluate error = %v, want ErrUnknownStrategy", err)
	}
}

func TestRun_PairReturns(t *testing.T) {
	// Leg 1 gains 1% per day while leg 2 is flat; a held +1 pair signal
	// should collect the full spread.
	n := 6
	c1 := make([]float64, n)
	c2 := make([]float64, n)
	for i := 0; i < n; i++ {
		c1[i] = 100 * math.Pow(1.01, float64(i))
		c2[i] = 100
	}
	series := &domain.PriceSeries{Dates: dates(n), Close1: c1, Close2: c2}

	bt := New(series, alternating{})
	if _, err := bt.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	r := bt.Returns()
	if math.Abs(r[1]-0.01) > 1e-9 {
		t.Errorf("returns[1] = %v, want 0.01", r[1])
	}
	if r[2] != 0 {
		t.Errorf("returns[2] = %v, want 0", r[2])
	}
}

func TestMaxDrawdown_AlwaysNonPositive(t *testing.T) {
	closes := []float64{100, 120, 80, 130, 70, 140}
	strat, _ := builtins.NewBuyAndHold(nil)
	bt := New(closeSeries(closes), strat)
	if _, err := bt.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	m, _ := bt.Metrics()
	if m.MaxDrawdown > 0 {
		t.Errorf("MaxDrawdown = %v, want <= 0", m.MaxDrawdown)
	}
	// Peak 130 to trough 70.
	want := 70.0/130.0 - 1
	if math.Abs(m.MaxDrawdown-want) > 1e-9 {
		t.Errorf("MaxDrawdown = %v, want %v", m.MaxDrawdown, want)
	}
}
