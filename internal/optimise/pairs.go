package optimise

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"quantbt/internal/backtest"
	"quantbt/internal/domain"
	"quantbt/internal/strategy"
	"quantbt/internal/strategy/builtins"
)

// PairLoader supplies date-aligned price data for a ticker pair. A (nil,
// nil) return means no overlapping data is available.
type PairLoader interface {
	LoadPair(ctx context.Context, tickerA, tickerB string, start, end time.Time) (*domain.PriceSeries, error)
}

// SameCompanyFunc reports whether two tickers trade the same underlying
// company (for example dual share classes), which makes them a degenerate
// pairs-trading candidate.
type SameCompanyFunc func(tickerA, tickerB string) bool

// SearchTickerPairs evaluates the Pairs Trading strategy over every
// unordered pair drawn from the candidate list, excluding pairs the
// sameCompany predicate identifies as a single underlying. When optimise is
// true a nested parameter-grid search runs per pair; otherwise each pair is
// evaluated once at the grid's first values. The best pair by Sharpe ratio
// wins. Per-pair elapsed time is surfaced through the progress label for
// operator visibility only.
func SearchTickerPairs(ctx context.Context, reg *strategy.Registry, grid domain.ParamGrid, optimise bool, candidates []domain.Candidate, start, end time.Time, loader PairLoader, sameCompany SameCompanyFunc, opts Options) (*domain.OptimisationResult, error) {
	if optimise && grid.Size() == 0 {
		return nil, ErrEmptyDomain
	}

	pairs := enumeratePairs(candidates, sameCompany)
	total := len(pairs)
	log := opts.logger()

	fixed := grid.FirstValues()

	// Inner grid searches report through their own aggregation; suppress
	// their progress so the outer per-pair labels stay coherent.
	innerOpts := Options{Workers: opts.Workers, Logger: opts.Logger}

	// Elapsed time of the most recently finished pair, nanoseconds.
	var lastElapsed atomic.Int64
	label := func(i int) string {
		base := fmt.Sprintf("pair %d/%d: %s vs. %s", i+1, total, pairs[i][0], pairs[i][1])
		if prev := lastElapsed.Load(); prev > 0 {
			return fmt.Sprintf("%s (prev. pair processing time: %.4fs)", base, time.Duration(prev).Seconds())
		}
		return base
	}

	results := runEvaluations(ctx, total, opts, label, func(i int) evalResult {
		startedAt := time.Now()
		defer func() { lastElapsed.Store(int64(time.Since(startedAt))) }()

		a, b := pairs[i][0], pairs[i][1]
		series, err := loader.LoadPair(ctx, a, b, start, end)
		if err != nil {
			log.Warn("skipping pair: price data unavailable", "pair", a+"/"+b, "error", err)
			return evalResult{}
		}
		if series.Empty() {
			log.Debug("skipping pair: no overlapping data in range", "pair", a+"/"+b)
			return evalResult{}
		}

		tickers := []string{a, b}
		if optimise {
			res, err := SearchParameters(ctx, reg, builtins.NamePairsTrading, grid, series, tickers, innerOpts)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					log.Warn("skipping pair: nested optimisation failed", "pair", a+"/"+b, "error", err)
				}
				return evalResult{}
			}
			return evalResult{tickers: tickers, params: res.Params, metrics: res.Metrics, ok: true}
		}

		_, metrics, err := backtest.Evaluate(reg, builtins.NamePairsTrading, fixed, series)
		if err != nil {
			log.Warn("skipping pair: evaluation failed", "pair", a+"/"+b, "error", err)
			return evalResult{}
		}
		return evalResult{tickers: tickers, params: fixed, metrics: metrics, ok: true}
	})

	bestIdx, found := selectBest(results, ObjectiveSharpe)
	return finalize(ctx, results, bestIdx, found)
}

// enumeratePairs lists all unordered candidate pairs in candidate-list
// order, dropping pairs that share an underlying company.
func enumeratePairs(candidates []domain.Candidate, sameCompany SameCompanyFunc) [][2]string {
	var pairs [][2]string
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i].Ticker, candidates[j].Ticker
			if sameCompany != nil && sameCompany(a, b) {
				continue
			}
			pairs = append(pairs, [2]string{a, b})
		}
	}
	return pairs
}
