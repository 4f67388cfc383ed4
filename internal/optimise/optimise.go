// Package optimise implements brute-force search over parameter grids and
// ticker universes, tracking the best configuration under a chosen objective.
//
// All searches share the same mechanics: candidates are enumerated in a
// deterministic order, each is evaluated independently (optionally on a
// bounded worker pool), and the best-so-far accumulator applies a strict
// greater-than comparison in enumeration order, so ties keep the first
// candidate found and parallel runs are bit-identical to the sequential
// baseline. Cancelling the context stops dispatching new evaluations; the
// best result over the completed candidates is still returned, flagged as
// partial.
package optimise

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"quantbt/internal/domain"
)

// ErrEmptyDomain is returned when a parameter grid search is requested with
// no searchable domain. It is a configuration error, raised before any data
// access.
var ErrEmptyDomain = errors.New("empty parameter domain product")

// ErrNoViableResult is returned when the configuration was valid but no
// candidate produced usable metrics: every ticker was skipped for missing
// data, or every evaluation failed.
var ErrNoViableResult = errors.New("no candidate produced a usable result")

// ProgressFunc receives (index, total, label) immediately before candidate
// index is dispatched for evaluation. The core never prints; consoles and
// UIs subscribe through this callback.
type ProgressFunc func(index, total int, label string)

// ObjectiveFunc scores a metrics summary; NaN marks the candidate unusable.
type ObjectiveFunc func(domain.Metrics) float64

// Predefined objectives.
var (
	// ObjectiveSharpe ranks candidates by risk-adjusted return.
	ObjectiveSharpe ObjectiveFunc = func(m domain.Metrics) float64 { return m.SharpeRatio }

	// ObjectiveTotalReturn ranks candidates by absolute return.
	ObjectiveTotalReturn ObjectiveFunc = func(m domain.Metrics) float64 { return m.TotalReturn }
)

// Options controls search execution. The zero value runs sequentially with
// no progress reporting.
type Options struct {
	// Workers bounds concurrent candidate evaluations. Values <= 1 select
	// the sequential reference path.
	Workers int

	// Progress, when non-nil, is invoked before each evaluation.
	Progress ProgressFunc

	// Logger receives per-candidate skip reports. Nil falls back to
	// slog.Default.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) progress(index, total int, label string) {
	if o.Progress != nil {
		o.Progress(index, total, label)
	}
}

// evalResult is one candidate's outcome. ok is false for skipped candidates
// (missing data, failed evaluation); skipped slots never win.
type evalResult struct {
	tickers []string
	params  domain.Params
	metrics domain.Metrics
	ok      bool
	done    bool
}

// runEvaluations evaluates total candidates through eval, sequentially or on
// a worker pool, and returns one result slot per candidate. Each evaluation
// writes only its own slot, so there is no shared mutable state beyond the
// slice itself. Dispatch stops once ctx is cancelled.
func runEvaluations(ctx context.Context, total int, opts Options, label func(int) string, eval func(int) evalResult) []evalResult {
	results := make([]evalResult, total)

	if opts.Workers <= 1 {
		for i := 0; i < total; i++ {
			if ctx.Err() != nil {
				break
			}
			opts.progress(i, total, label(i))
			results[i] = eval(i)
			results[i].done = true
		}
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < total; i++ {
		if gctx.Err() != nil {
			break
		}
		opts.progress(i, total, label(i))
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			results[i] = eval(i)
			results[i].done = true
			return nil
		})
	}
	g.Wait()
	return results
}

// selectBest scans result slots in enumeration order and returns the index
// of the best usable candidate under objective. The comparison is strictly
// greater-than from a -Inf baseline: ties keep the first candidate, and a
// NaN objective never wins. The second return value is false when no slot
// is usable.
func selectBest(results []evalResult, objective ObjectiveFunc) (int, bool) {
	bestIdx := -1
	bestVal := math.Inf(-1)
	for i := range results {
		if !results[i].ok {
			continue
		}
		v := objective(results[i].metrics)
		if math.IsNaN(v) {
			continue
		}
		if v > bestVal {
			bestVal = v
			bestIdx = i
		}
	}
	return bestIdx, bestIdx >= 0
}

// finalize converts the winning slot into an OptimisationResult, marking it
// partial when the search was cancelled before completing. With no winner it
// returns the context error if cancellation explains the emptiness, and
// ErrNoViableResult otherwise.
func finalize(ctx context.Context, results []evalResult, bestIdx int, found bool) (*domain.OptimisationResult, error) {
	if !found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoViableResult
	}
	return &domain.OptimisationResult{
		Tickers: results[bestIdx].tickers,
		Params:  results[bestIdx].params,
		Metrics: results[bestIdx].metrics,
		Partial: ctx.Err() != nil,
	}, nil
}
