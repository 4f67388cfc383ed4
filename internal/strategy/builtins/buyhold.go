package builtins

import (
	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*BuyAndHold)(nil)

// BuyAndHold is always long: the signal is 1 on every row from the first
// observation onward.
type BuyAndHold struct{}

// NewBuyAndHold creates a Buy and Hold strategy. It takes no parameters.
func NewBuyAndHold(_ domain.Params) (strategy.Strategy, error) {
	return &BuyAndHold{}, nil
}

// Name returns "Buy and Hold".
func (s *BuyAndHold) Name() string { return NameBuyAndHold }

// GenerateSignals sets the signal to 1 on every row.
func (s *BuyAndHold) GenerateSignals(series *domain.PriceSeries) (*domain.SignalFrame, error) {
	frame := domain.NewSignalFrame(series.Dates)
	for i := range frame.Signal {
		frame.Signal[i] = 1
	}
	frame.FillPositions()
	return frame, nil
}
