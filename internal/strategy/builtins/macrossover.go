package builtins

import (
	"fmt"
	"math"

	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MovingAverageCrossover)(nil)

// MovingAverageCrossover is a triple-EMA crossover strategy. It goes long
// when the 10-period EMA is above the 80-period EMA and both the ADX and the
// Chande Momentum Oscillator confirm strong momentum, and short under the
// mirrored conditions. Position size is a fixed fraction of capital attached
// as a constant column, not derived from signal strength.
type MovingAverageCrossover struct {
	positionSize float64
	adxPeriod    int
	cmoPeriod    int
	atrPeriod    int
}

// NewMovingAverageCrossover creates a Moving Average Crossover strategy.
// Parameters: "position_size" (default 0.03), "adx_period", "cmo_period",
// "atr_period" (all default 14).
func NewMovingAverageCrossover(params domain.Params) (strategy.Strategy, error) {
	s := &MovingAverageCrossover{
		positionSize: params.Get("position_size", 0.03),
		adxPeriod:    int(params.Get("adx_period", 14)),
		cmoPeriod:    int(params.Get("cmo_period", 14)),
		atrPeriod:    int(params.Get("atr_period", 14)),
	}
	if s.adxPeriod < 1 || s.cmoPeriod < 1 || s.atrPeriod < 1 {
		return nil, fmt.Errorf("moving average crossover: indicator periods must be >= 1")
	}
	return s, nil
}

// Name returns "Moving Average Crossover".
func (s *MovingAverageCrossover) Name() string { return NameMovingAverageCrossover }

var maIndicatorColumns = []string{
	"ema_10", "ema_20", "ema_70", "ema_80",
	"atr", "adx", "cmo", "position_size",
}

// GenerateSignals computes the EMA/ADX/CMO indicator set and applies the
// crossover rules. High and Low columns are required for the true-range and
// directional-movement calculations.
func (s *MovingAverageCrossover) GenerateSignals(series *domain.PriceSeries) (*domain.SignalFrame, error) {
	frame := domain.NewSignalFrame(series.Dates, maIndicatorColumns...)
	if series.Empty() {
		return frame, nil
	}
	if series.High == nil || series.Low == nil {
		return nil, fmt.Errorf("moving average crossover: series lacks high/low columns")
	}

	n := series.Len()
	close := series.Close

	ema10 := ema(close, 10)
	ema20 := ema(close, 20)
	ema70 := ema(close, 70)
	ema80 := ema(close, 80)

	atr := rollingMean(trueRange(series), s.atrPeriod)
	adx := s.adx(series, atr)
	cmo := s.cmo(close)

	copy(frame.Indicators["ema_10"], ema10)
	copy(frame.Indicators["ema_20"], ema20)
	copy(frame.Indicators["ema_70"], ema70)
	copy(frame.Indicators["ema_80"], ema80)
	copy(frame.Indicators["atr"], atr)
	copy(frame.Indicators["adx"], adx)
	copy(frame.Indicators["cmo"], cmo)

	for i := 0; i < n; i++ {
		frame.Indicators["position_size"][i] = s.positionSize

		// NaN indicators fail every comparison, leaving the bar flat.
		switch {
		case ema10[i] > ema80[i] && adx[i] > 40 && cmo[i] > 40:
			frame.Signal[i] = 1
		case ema10[i] < ema80[i] && adx[i] > 40 && cmo[i] < -40:
			frame.Signal[i] = -1
		}
	}
	frame.FillPositions()
	return frame, nil
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|); the first
// bar has no previous close and uses high-low.
func trueRange(series *domain.PriceSeries) []float64 {
	n := series.Len()
	tr := make([]float64, n)
	for i := 0; i < n; i++ {
		hl := series.High[i] - series.Low[i]
		if i == 0 {
			tr[i] = hl
			continue
		}
		prev := series.Close[i-1]
		tr[i] = math.Max(hl, math.Max(math.Abs(series.High[i]-prev), math.Abs(series.Low[i]-prev)))
	}
	return tr
}

// adx computes the average directional index from rolling directional
// movement sums normalised by ATR.
func (s *MovingAverageCrossover) adx(series *domain.PriceSeries, atr []float64) []float64 {
	n := series.Len()
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := series.High[i] - series.High[i-1]
		down := series.Low[i-1] - series.Low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	plusSum := rollingSum(plusDM, s.adxPeriod)
	minusSum := rollingSum(minusDM, s.adxPeriod)

	dx := nanSlice(n)
	for i := 0; i < n; i++ {
		plusDI := 100 * plusSum[i] / atr[i]
		minusDI := 100 * minusSum[i] / atr[i]
		dx[i] = 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}
	return rollingMean(dx, s.adxPeriod)
}

// cmo computes the Chande Momentum Oscillator from rolling gain/loss sums.
func (s *MovingAverageCrossover) cmo(close []float64) []float64 {
	n := len(close)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		delta := close[i] - close[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}

	gainSum := rollingSum(gains, s.cmoPeriod)
	lossSum := rollingSum(losses, s.cmoPeriod)

	out := nanSlice(n)
	for i := 0; i < n; i++ {
		out[i] = 100 * (gainSum[i] - lossSum[i]) / (gainSum[i] + lossSum[i])
	}
	return out
}
