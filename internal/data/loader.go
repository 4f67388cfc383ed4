// Package data loads price series for backtesting, either directly from the
// Alpaca market-data API or through a local Parquet cache, and provides the
// candidate universe the ticker searches draw from.
package data

import (
	"context"
	"time"

	"quantbt/internal/domain"
)

// Loader supplies price series for single tickers and ticker pairs. A
// (nil, nil) return means no data is available for the request; errors are
// reserved for transport and decoding failures.
type Loader interface {
	LoadOne(ctx context.Context, ticker string, start, end time.Time) (*domain.PriceSeries, error)
	LoadPair(ctx context.Context, tickerA, tickerB string, start, end time.Time) (*domain.PriceSeries, error)
}

// alignPair inner-joins two single-instrument series on date and returns a
// pair series carrying both close columns. Dates present in only one leg are
// dropped. Returns nil when there is no overlap.
func alignPair(a, b *domain.PriceSeries) *domain.PriceSeries {
	if a.Empty() || b.Empty() {
		return nil
	}

	out := &domain.PriceSeries{}
	i, j := 0, 0
	for i < a.Len() && j < b.Len() {
		da, db := a.Dates[i], b.Dates[j]
		switch {
		case da.Before(db):
			i++
		case db.Before(da):
			j++
		default:
			out.Dates = append(out.Dates, da)
			out.Close1 = append(out.Close1, a.Close[i])
			out.Close2 = append(out.Close2, b.Close[j])
			i++
			j++
		}
	}
	if out.Empty() {
		return nil
	}
	return out
}
