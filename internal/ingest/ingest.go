// Package ingest pre-fetches daily bars for the candidate universe into the
// local bar store, so that searches run against cached data instead of
// hitting the market-data API per candidate.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/sync/errgroup"

	"quantbt/internal/data"
	"quantbt/internal/domain"
	"quantbt/internal/store"
	"quantbt/internal/util"
)

// DailyBarIngestor fetches daily bars for universe candidates in batches
// via the Alpaca multi-bar endpoint and writes them to the bar store.
type DailyBarIngestor struct {
	client    *marketdata.Client
	store     store.BarStore
	universe  data.UniverseProvider
	limiter   *util.RateLimiter
	batchSize int
	workers   int
	log       *slog.Logger
}

// Options configures a DailyBarIngestor.
type Options struct {
	APIKey          string
	APISecret       string
	DataURL         string
	RateLimitPerMin int
	BatchSize       int // symbols per multi-bar request
	Workers         int // concurrent batch fetches
}

// NewDailyBarIngestor creates an ingestor writing to s for the candidates
// served by universe.
func NewDailyBarIngestor(opts Options, s store.BarStore, universe data.UniverseProvider, log *slog.Logger) *DailyBarIngestor {
	clientOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		clientOpts.BaseURL = opts.DataURL
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 100
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.RateLimitPerMin < 1 {
		opts.RateLimitPerMin = 200
	}
	if log == nil {
		log = slog.Default()
	}
	return &DailyBarIngestor{
		client:    marketdata.NewClient(clientOpts),
		store:     s,
		universe:  universe,
		limiter:   util.NewBurstRateLimiter(opts.RateLimitPerMin, 5),
		batchSize: opts.BatchSize,
		workers:   opts.Workers,
		log:       log.With("component", "ingest"),
	}
}

// Run fetches bars for the top n universe candidates over [start, end] and
// persists them. Symbols with no bars in the range are reported but not an
// error; the run fails only on store writes or when every batch fails.
func (g *DailyBarIngestor) Run(ctx context.Context, topN int, start, end time.Time) error {
	candidates, err := g.universe.TopCompanies(ctx, topN)
	if err != nil {
		return fmt.Errorf("loading candidate universe: %w", err)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("candidate universe is empty")
	}

	symbols := make([]string, len(candidates))
	for i, c := range candidates {
		symbols[i] = strings.ToUpper(c.Ticker)
	}

	var batches [][]string
	for i := 0; i < len(symbols); i += g.batchSize {
		j := min(i+g.batchSize, len(symbols))
		batches = append(batches, symbols[i:j])
	}

	g.log.Info("starting bar ingest",
		"symbols", len(symbols),
		"batches", len(batches),
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"tradingDays", len(util.BusinessDays(start, end)),
	)
	runStart := time.Now()

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, batch := range batches {
		eg.Go(func() error {
			if err := g.limiter.Wait(ectx); err != nil {
				return err
			}
			bars, err := g.fetchBatch(ectx, batch, start, end)
			if err != nil {
				return fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
			}
			if len(bars) == 0 {
				g.log.Warn("batch returned no bars", "batch", i+1, "symbols", batch)
				return nil
			}
			if err := g.store.WriteBars(ectx, bars); err != nil {
				return fmt.Errorf("writing batch %d/%d: %w", i+1, len(batches), err)
			}
			g.log.Info("batch stored", "batch", fmt.Sprintf("%d/%d", i+1, len(batches)), "bars", len(bars))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	g.log.Info("ingest complete", "elapsed", time.Since(runStart).Round(time.Second))
	return nil
}

func (g *DailyBarIngestor) fetchBatch(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	multiBars, err := g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      "sip",
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:     strings.ToUpper(symbol),
				Timestamp:  ab.Timestamp,
				Open:       ab.Open,
				High:       ab.High,
				Low:        ab.Low,
				Close:      ab.Close,
				Volume:     int64(ab.Volume),
				TradeCount: int64(ab.TradeCount),
				VWAP:       ab.VWAP,
			})
		}
	}
	return bars, nil
}
