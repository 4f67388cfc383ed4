package builtins

import (
	"fmt"
	"math"

	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MeanReversion)(nil)

// MeanReversion shorts when the price z-score over a rolling window exceeds
// the entry threshold, goes long on the mirrored condition, and flattens when
// the z-score decays inside the exit band. Between threshold crossings the
// last entry signal is held (forward-filled).
type MeanReversion struct {
	window int
	entryZ float64
	exitZ  float64
}

// NewMeanReversion creates a Mean Reversion strategy. Parameters: "window"
// (default 20), "std_dev" (entry z-score, default 2.0), "exit_z_score"
// (default 0.5).
func NewMeanReversion(params domain.Params) (strategy.Strategy, error) {
	s := &MeanReversion{
		window: int(params.Get("window", 20)),
		entryZ: params.Get("std_dev", 2.0),
		exitZ:  params.Get("exit_z_score", 0.5),
	}
	if s.window < 1 {
		return nil, fmt.Errorf("mean reversion: window must be >= 1, got %d", s.window)
	}
	return s, nil
}

// Name returns "Mean Reversion".
func (s *MeanReversion) Name() string { return NameMeanReversion }

// GenerateSignals computes the rolling z-score of the close price and applies
// the entry/exit scan.
func (s *MeanReversion) GenerateSignals(series *domain.PriceSeries) (*domain.SignalFrame, error) {
	frame := domain.NewSignalFrame(series.Dates, "zscore", "rolling_mean", "rolling_std")
	if series.Empty() {
		return frame, nil
	}

	mean := rollingMean(series.Close, s.window)
	std := rollingStd(series.Close, s.window)
	zscore := zScores(series.Close, mean, std)

	copy(frame.Indicators["rolling_mean"], mean)
	copy(frame.Indicators["rolling_std"], std)
	copy(frame.Indicators["zscore"], zscore)

	scanThresholdSignals(frame.Signal, zscore, s.entryZ, s.exitZ)
	frame.FillPositions()
	return frame, nil
}

// zScores computes (x - mean) / std, NaN wherever mean or std is undefined
// or std is zero.
func zScores(x, mean, std []float64) []float64 {
	out := nanSlice(len(x))
	for i := range x {
		if math.IsNaN(mean[i]) || math.IsNaN(std[i]) || std[i] == 0 {
			continue
		}
		out[i] = (x[i] - mean[i]) / std[i]
	}
	return out
}

// scanThresholdSignals runs the sequential entry/exit scan shared by Mean
// Reversion and Pairs Trading. It carries one accumulator, the last held
// position, so the lag/causality behaviour is explicit.
//
// Evaluation order on each bar: the entry conditions are tested first and the
// exit band only flattens when neither entry fires, so a bar that crosses
// both an entry threshold and the exit band takes the new entry. NaN z-scores
// (unfilled window, zero variance) match no condition and hold the previous
// signal.
func scanThresholdSignals(signal, zscore []float64, entryZ, exitZ float64) {
	last := 0.0
	for i, z := range zscore {
		switch {
		case z > entryZ:
			last = -1
		case z < -entryZ:
			last = 1
		case math.Abs(z) < exitZ:
			last = 0
		}
		signal[i] = last
	}
}
