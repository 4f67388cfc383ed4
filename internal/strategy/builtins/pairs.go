package builtins

import (
	"fmt"

	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*PairsTrading)(nil)

// PairsTrading applies the mean-reversion entry/exit scan to the spread
// between two aligned price columns. The signal is a single combined
// position: +1 means long the first leg and short the second, -1 the
// opposite.
type PairsTrading struct {
	window int
	entryZ float64
	exitZ  float64
}

// NewPairsTrading creates a Pairs Trading strategy. Parameters: "window"
// (default 50), "entry_z_score" (default 2.0), "exit_z_score" (default 0.5).
func NewPairsTrading(params domain.Params) (strategy.Strategy, error) {
	s := &PairsTrading{
		window: int(params.Get("window", 50)),
		entryZ: params.Get("entry_z_score", 2.0),
		exitZ:  params.Get("exit_z_score", 0.5),
	}
	if s.window < 1 {
		return nil, fmt.Errorf("pairs trading: window must be >= 1, got %d", s.window)
	}
	return s, nil
}

// Name returns "Pairs Trading".
func (s *PairsTrading) Name() string { return NamePairsTrading }

// GenerateSignals computes the z-score of the price spread and applies the
// shared threshold scan.
func (s *PairsTrading) GenerateSignals(series *domain.PriceSeries) (*domain.SignalFrame, error) {
	frame := domain.NewSignalFrame(series.Dates, "spread", "zscore")
	if series.Empty() {
		return frame, nil
	}
	if !series.IsPair() {
		return nil, fmt.Errorf("pairs trading: series must carry two price columns")
	}

	spread := make([]float64, series.Len())
	for i := range spread {
		spread[i] = series.Close1[i] - series.Close2[i]
	}

	mean := rollingMean(spread, s.window)
	std := rollingStd(spread, s.window)
	zscore := zScores(spread, mean, std)

	copy(frame.Indicators["spread"], spread)
	copy(frame.Indicators["zscore"], zscore)

	scanThresholdSignals(frame.Signal, zscore, s.entryZ, s.exitZ)
	frame.FillPositions()
	return frame, nil
}
