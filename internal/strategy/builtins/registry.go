package builtins

import "quantbt/internal/strategy"

// Canonical strategy names as shown to users. These are the only valid
// values for a strategy-type input.
const (
	NameBuyAndHold             = "Buy and Hold"
	NameMeanReversion          = "Mean Reversion"
	NameMovingAverageCrossover = "Moving Average Crossover"
	NamePairsTrading           = "Pairs Trading"
)

// NewRegistry returns a registry populated with every built-in strategy.
func NewRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register(NameBuyAndHold, NewBuyAndHold)
	r.Register(NameMeanReversion, NewMeanReversion)
	r.Register(NameMovingAverageCrossover, NewMovingAverageCrossover)
	r.Register(NamePairsTrading, NewPairsTrading)
	return r
}
