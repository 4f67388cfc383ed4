package optimise

import (
	"context"
	"fmt"

	"quantbt/internal/backtest"
	"quantbt/internal/domain"
	"quantbt/internal/strategy"
)

// SearchParameters evaluates every combination of the grid's cartesian
// product against the given series and returns the combination with the
// greatest Sharpe ratio. The strategy type is validated before anything
// else; an unsearchable grid (no domains, or any empty domain) is rejected
// with ErrEmptyDomain before any evaluation.
func SearchParameters(ctx context.Context, reg *strategy.Registry, strategyType string, grid domain.ParamGrid, series *domain.PriceSeries, tickers []string, opts Options) (*domain.OptimisationResult, error) {
	if !reg.Known(strategyType) {
		return nil, fmt.Errorf("%w: %q", strategy.ErrUnknownStrategy, strategyType)
	}
	total := grid.Size()
	if total == 0 {
		return nil, ErrEmptyDomain
	}

	log := opts.logger()
	label := func(i int) string {
		return fmt.Sprintf("parameter combination %d/%d", i+1, total)
	}

	results := runEvaluations(ctx, total, opts, label, func(i int) evalResult {
		params := grid.Combination(i)
		_, metrics, err := backtest.Evaluate(reg, strategyType, params, series)
		if err != nil {
			log.Warn("parameter combination failed", "strategy", strategyType, "params", params, "error", err)
			return evalResult{}
		}
		return evalResult{tickers: tickers, params: params, metrics: metrics, ok: true}
	})

	bestIdx, found := selectBest(results, ObjectiveSharpe)
	return finalize(ctx, results, bestIdx, found)
}
