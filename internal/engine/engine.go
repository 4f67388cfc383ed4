// Package engine coordinates strategy evaluation and parameter searches,
// wiring the strategy registry, price data loaders, the candidate universe,
// and the run-history store behind one facade.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quantbt/internal/backtest"
	"quantbt/internal/data"
	"quantbt/internal/domain"
	"quantbt/internal/optimise"
	"quantbt/internal/store"
	"quantbt/internal/strategy"
	"quantbt/internal/strategy/builtins"
)

// Engine exposes the four public operations of the service: single
// backtests, parameter-grid searches, single-ticker universe searches, and
// ticker-pair searches. Every completed run is appended to the history
// store; the evaluation and search layers below never touch persistence.
type Engine struct {
	registry *strategy.Registry
	loader   data.Loader
	universe data.UniverseProvider
	history  store.HistoryStore
	workers  int
	log      *slog.Logger
}

// Options configures an Engine.
type Options struct {
	Registry *strategy.Registry // nil selects the built-in strategies
	Loader   data.Loader
	Universe data.UniverseProvider
	History  store.HistoryStore // nil disables run recording
	Workers  int
	Logger   *slog.Logger
}

// New creates an Engine from opts.
func New(opts Options) *Engine {
	reg := opts.Registry
	if reg == nil {
		reg = builtins.NewRegistry()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		registry: reg,
		loader:   opts.Loader,
		universe: opts.Universe,
		history:  opts.History,
		workers:  opts.Workers,
		log:      log.With("component", "engine"),
	}
}

// Registry returns the strategy registry the engine evaluates against.
func (e *Engine) Registry() *strategy.Registry { return e.registry }

// BacktestResult is the outcome of a single fixed-parameter backtest.
type BacktestResult struct {
	Tickers []string
	Params  domain.Params
	Metrics domain.Metrics
	Equity  []float64
	Dates   []time.Time
}

// Evaluate runs one backtest of the named strategy over tickers in
// [start, end]. One ticker loads a single series; two tickers load an
// aligned pair.
func (e *Engine) Evaluate(ctx context.Context, strategyType string, params domain.Params, tickers []string, start, end time.Time) (*BacktestResult, error) {
	// Reject unknown strategies before any data access.
	if !e.registry.Known(strategyType) {
		return nil, fmt.Errorf("%w: %q", strategy.ErrUnknownStrategy, strategyType)
	}

	series, err := e.loadSeries(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}
	if series.Empty() {
		return nil, fmt.Errorf("no price data for %v in range", tickers)
	}

	strat, err := e.registry.Create(strategyType, params)
	if err != nil {
		return nil, err
	}
	bt := backtest.New(series, strat)
	if _, err := bt.Run(); err != nil {
		return nil, err
	}
	metrics, err := bt.Metrics()
	if err != nil {
		return nil, err
	}

	e.record(ctx, strategyType, params, metrics, tickers, start, end)
	return &BacktestResult{
		Tickers: tickers,
		Params:  params,
		Metrics: metrics,
		Equity:  bt.EquityCurve(),
		Dates:   series.Dates,
	}, nil
}

// SearchParameters grid-searches the named strategy's parameters over the
// given tickers and records the winning combination.
func (e *Engine) SearchParameters(ctx context.Context, strategyType string, grid domain.ParamGrid, tickers []string, start, end time.Time, progress optimise.ProgressFunc) (*domain.OptimisationResult, error) {
	// Reject unknown strategies before any data access.
	if !e.registry.Known(strategyType) {
		return nil, fmt.Errorf("%w: %q", strategy.ErrUnknownStrategy, strategyType)
	}

	series, err := e.loadSeries(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}

	res, err := optimise.SearchParameters(ctx, e.registry, strategyType, grid, series, tickers, e.searchOpts(progress))
	if err != nil {
		return nil, err
	}
	e.record(ctx, strategyType, res.Params, res.Metrics, res.Tickers, start, end)
	return res, nil
}

// SearchSingleTicker evaluates a fixed-parameter strategy over the top
// universe candidates and records the best ticker.
func (e *Engine) SearchSingleTicker(ctx context.Context, strategyType string, params domain.Params, topN int, start, end time.Time, progress optimise.ProgressFunc) (*domain.OptimisationResult, error) {
	// Reject unknown strategies before any data access.
	if !e.registry.Known(strategyType) {
		return nil, fmt.Errorf("%w: %q", strategy.ErrUnknownStrategy, strategyType)
	}

	candidates, err := e.universe.TopCompanies(ctx, topN)
	if err != nil {
		return nil, fmt.Errorf("loading candidate universe: %w", err)
	}

	res, err := optimise.SearchSingleTicker(ctx, e.registry, strategyType, params, candidates, start, end, e.loader, e.searchOpts(progress))
	if err != nil {
		return nil, err
	}
	e.record(ctx, strategyType, res.Params, res.Metrics, res.Tickers, start, end)
	return res, nil
}

// SearchTickerPairs evaluates the pairs-trading strategy over all viable
// pairs from the top universe candidates and records the best pair. Dual
// share classes of one company are excluded by the universe's same-company
// predicate.
func (e *Engine) SearchTickerPairs(ctx context.Context, grid domain.ParamGrid, optimiseParams bool, topN int, start, end time.Time, progress optimise.ProgressFunc) (*domain.OptimisationResult, error) {
	candidates, err := e.universe.TopCompanies(ctx, topN)
	if err != nil {
		return nil, fmt.Errorf("loading candidate universe: %w", err)
	}

	res, err := optimise.SearchTickerPairs(ctx, e.registry, grid, optimiseParams, candidates, start, end, e.loader, e.universe.SameCompany, e.searchOpts(progress))
	if err != nil {
		return nil, err
	}
	e.record(ctx, builtins.NamePairsTrading, res.Params, res.Metrics, res.Tickers, start, end)
	return res, nil
}

// History returns the most recent recorded runs, newest first.
func (e *Engine) History(ctx context.Context, limit int) ([]store.Record, error) {
	if e.history == nil {
		return nil, nil
	}
	return e.history.ListRecent(ctx, limit)
}

func (e *Engine) searchOpts(progress optimise.ProgressFunc) optimise.Options {
	return optimise.Options{Workers: e.workers, Progress: progress, Logger: e.log}
}

func (e *Engine) loadSeries(ctx context.Context, tickers []string, start, end time.Time) (*domain.PriceSeries, error) {
	switch len(tickers) {
	case 1:
		return e.loader.LoadOne(ctx, tickers[0], start, end)
	case 2:
		return e.loader.LoadPair(ctx, tickers[0], tickers[1], start, end)
	default:
		return nil, fmt.Errorf("expected one or two tickers, got %d", len(tickers))
	}
}

// record appends a completed run to the history store. Recording failures
// are logged, not returned: a finished run's result is worth more than its
// bookkeeping.
func (e *Engine) record(ctx context.Context, name string, params domain.Params, metrics domain.Metrics, tickers []string, start, end time.Time) {
	if e.history == nil {
		return
	}
	rec := store.Record{
		Name:      name,
		Params:    params,
		Metrics:   metrics,
		Tickers:   tickers,
		StartDate: start,
		EndDate:   end,
	}
	if err := e.history.Append(ctx, &rec); err != nil {
		e.log.Warn("recording run failed", "strategy", name, "err", err)
	}
}
