package domain

import "time"

// Bar is one daily OHLCV bar for a single ticker.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// BarsToSeries converts a chronologically sorted bar slice into a
// single-instrument price series.
func BarsToSeries(bars []Bar) *PriceSeries {
	if len(bars) == 0 {
		return nil
	}
	s := &PriceSeries{
		Dates: make([]time.Time, len(bars)),
		Open:  make([]float64, len(bars)),
		High:  make([]float64, len(bars)),
		Low:   make([]float64, len(bars)),
		Close: make([]float64, len(bars)),
	}
	for i, b := range bars {
		s.Dates[i] = b.Timestamp
		s.Open[i] = b.Open
		s.High[i] = b.High
		s.Low[i] = b.Low
		s.Close[i] = b.Close
	}
	return s
}
