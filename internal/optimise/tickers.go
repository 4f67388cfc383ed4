package optimise

import (
	"context"
	"fmt"
	"time"

	"quantbt/internal/backtest"
	"quantbt/internal/domain"
	"quantbt/internal/strategy"
	"quantbt/internal/strategy/builtins"
)

// SingleLoader supplies aligned price data for one ticker. A (nil, nil)
// return means no data is available for the candidate.
type SingleLoader interface {
	LoadOne(ctx context.Context, ticker string, start, end time.Time) (*domain.PriceSeries, error)
}

// SearchSingleTicker evaluates a fixed-parameter strategy against every
// candidate in a ranked ticker list and returns the best one. Buy and Hold
// is ranked by total return, every other strategy by Sharpe ratio.
// Candidates whose price data is unavailable or empty are skipped; the
// search fails only when nothing survives.
func SearchSingleTicker(ctx context.Context, reg *strategy.Registry, strategyType string, params domain.Params, candidates []domain.Candidate, start, end time.Time, loader SingleLoader, opts Options) (*domain.OptimisationResult, error) {
	if !reg.Known(strategyType) {
		return nil, fmt.Errorf("%w: %q", strategy.ErrUnknownStrategy, strategyType)
	}

	total := len(candidates)
	log := opts.logger()
	label := func(i int) string {
		return fmt.Sprintf("ticker %d/%d: %s", i+1, total, candidates[i].Ticker)
	}

	objective := ObjectiveSharpe
	if strategyType == builtins.NameBuyAndHold {
		objective = ObjectiveTotalReturn
	}

	results := runEvaluations(ctx, total, opts, label, func(i int) evalResult {
		ticker := candidates[i].Ticker

		series, err := loader.LoadOne(ctx, ticker, start, end)
		if err != nil {
			log.Warn("skipping ticker: price data unavailable", "ticker", ticker, "error", err)
			return evalResult{}
		}
		if series.Empty() {
			log.Debug("skipping ticker: no data in range", "ticker", ticker)
			return evalResult{}
		}

		_, metrics, err := backtest.Evaluate(reg, strategyType, params, series)
		if err != nil {
			log.Warn("skipping ticker: evaluation failed", "ticker", ticker, "error", err)
			return evalResult{}
		}
		return evalResult{tickers: []string{ticker}, params: params, metrics: metrics, ok: true}
	})

	bestIdx, found := selectBest(results, objective)
	return finalize(ctx, results, bestIdx, found)
}
