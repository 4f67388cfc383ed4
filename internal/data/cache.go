package data

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quantbt/internal/domain"
	"quantbt/internal/store"
)

// Compile-time interface check.
var _ Loader = (*CachingLoader)(nil)

// CachingLoader is a read-through cache in front of another Loader. Bars
// found in the local store are served directly; misses fall through to the
// remote loader and are persisted before being returned.
type CachingLoader struct {
	remote Loader
	bars   store.BarStore
	log    *slog.Logger
}

// NewCachingLoader wraps remote with a read-through cache backed by bars.
func NewCachingLoader(remote Loader, bars store.BarStore, log *slog.Logger) *CachingLoader {
	if log == nil {
		log = slog.Default()
	}
	return &CachingLoader{remote: remote, bars: bars, log: log.With("loader", "cache")}
}

// LoadOne serves a ticker from the local store when present, otherwise
// fetches it remotely and caches the result.
func (l *CachingLoader) LoadOne(ctx context.Context, ticker string, start, end time.Time) (*domain.PriceSeries, error) {
	cached, err := l.bars.ReadBars(ctx, ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading cached bars for %s: %w", ticker, err)
	}
	if len(cached) > 0 {
		return domain.BarsToSeries(cached), nil
	}

	series, err := l.remote.LoadOne(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	if series.Empty() {
		return nil, nil
	}

	if err := l.bars.WriteBars(ctx, seriesToBars(ticker, series)); err != nil {
		// Serving stale-free data matters more than the cache write.
		l.log.Warn("caching bars failed", "ticker", ticker, "err", err)
	}
	return series, nil
}

// LoadPair loads both legs through the cache and inner-joins them on date.
func (l *CachingLoader) LoadPair(ctx context.Context, tickerA, tickerB string, start, end time.Time) (*domain.PriceSeries, error) {
	a, err := l.LoadOne(ctx, tickerA, start, end)
	if err != nil {
		return nil, err
	}
	b, err := l.LoadOne(ctx, tickerB, start, end)
	if err != nil {
		return nil, err
	}
	return alignPair(a, b), nil
}

func seriesToBars(ticker string, s *domain.PriceSeries) []domain.Bar {
	bars := make([]domain.Bar, s.Len())
	for i := range bars {
		b := domain.Bar{
			Symbol:    ticker,
			Timestamp: s.Dates[i],
			Close:     s.Close[i],
		}
		if s.Open != nil {
			b.Open = s.Open[i]
		}
		if s.High != nil {
			b.High = s.High[i]
		}
		if s.Low != nil {
			b.Low = s.Low[i]
		}
		bars[i] = b
	}
	return bars
}
