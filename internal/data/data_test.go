package data

import (
	"context"
	"strings"
	"testing"
	"time"

	"quantbt/internal/domain"
	"quantbt/internal/store"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func series(start time.Time, closes ...float64) *domain.PriceSeries {
	s := &domain.PriceSeries{
		Dates: make([]time.Time, len(closes)),
		Close: closes,
	}
	for i := range closes {
		s.Dates[i] = start.AddDate(0, 0, i)
	}
	return s
}

// ---------------------------------------------------------------------------
// Pair alignment
// ---------------------------------------------------------------------------

func TestAlignPair_InnerJoin(t *testing.T) {
	// Leg A covers Jan 1-4, leg B covers Jan 2-5: overlap is Jan 2-4.
	a := series(day(2024, 1, 1), 10, 11, 12, 13)
	b := series(day(2024, 1, 2), 20, 21, 22, 23)

	got := alignPair(a, b)
	if got == nil {
		t.Fatal("alignPair returned nil for overlapping legs")
	}
	if got.Len() != 3 {
		t.Fatalf("aligned length = %d, want 3", got.Len())
	}
	if !got.IsPair() {
		t.Fatal("aligned series is not a pair")
	}
	wantC1 := []float64{11, 12, 13}
	wantC2 := []float64{20, 21, 22}
	for i := range wantC1 {
		if got.Close1[i] != wantC1[i] || got.Close2[i] != wantC2[i] {
			t.Errorf("row %d = (%v, %v), want (%v, %v)",
				i, got.Close1[i], got.Close2[i], wantC1[i], wantC2[i])
		}
		if !got.Dates[i].Equal(day(2024, 1, 2+i)) {
			t.Errorf("row %d date = %v", i, got.Dates[i])
		}
	}
}

func TestAlignPair_NoOverlap(t *testing.T) {
	a := series(day(2024, 1, 1), 10, 11)
	b := series(day(2024, 2, 1), 20, 21)
	if got := alignPair(a, b); got != nil {
		t.Errorf("alignPair = %+v for disjoint legs, want nil", got)
	}
}

func TestAlignPair_EmptyLeg(t *testing.T) {
	a := series(day(2024, 1, 1), 10, 11)
	if got := alignPair(a, nil); got != nil {
		t.Errorf("alignPair = %+v with a nil leg, want nil", got)
	}
}

// ---------------------------------------------------------------------------
// Caching loader
// ---------------------------------------------------------------------------

// countingLoader records remote fetches and serves canned series.
type countingLoader struct {
	series map[string]*domain.PriceSeries
	loads  int
}

func (l *countingLoader) LoadOne(_ context.Context, ticker string, _, _ time.Time) (*domain.PriceSeries, error) {
	l.loads++
	return l.series[ticker], nil
}

func (l *countingLoader) LoadPair(ctx context.Context, a, b string, start, end time.Time) (*domain.PriceSeries, error) {
	sa, _ := l.LoadOne(ctx, a, start, end)
	sb, _ := l.LoadOne(ctx, b, start, end)
	return alignPair(sa, sb), nil
}

func TestCachingLoader_ReadThrough(t *testing.T) {
	ctx := context.Background()
	remote := &countingLoader{series: map[string]*domain.PriceSeries{
		"AAPL": series(day(2024, 1, 2), 100, 101, 102),
	}}
	bars := store.NewParquetStore(t.TempDir())
	l := NewCachingLoader(remote, bars, nil)

	start, end := day(2024, 1, 1), day(2024, 1, 31)
	first, err := l.LoadOne(ctx, "AAPL", start, end)
	if err != nil {
		t.Fatalf("first LoadOne: %v", err)
	}
	if first.Len() != 3 {
		t.Fatalf("first load length = %d, want 3", first.Len())
	}
	if remote.loads != 1 {
		t.Fatalf("remote loads after miss = %d, want 1", remote.loads)
	}

	second, err := l.LoadOne(ctx, "AAPL", start, end)
	if err != nil {
		t.Fatalf("second LoadOne: %v", err)
	}
	if remote.loads != 1 {
		t.Errorf("remote loads after cached read = %d, want 1", remote.loads)
	}
	if second.Len() != 3 || second.Close[2] != 102 {
		t.Errorf("cached series = %+v", second)
	}
}

func TestCachingLoader_NoData(t *testing.T) {
	remote := &countingLoader{series: map[string]*domain.PriceSeries{}}
	l := NewCachingLoader(remote, store.NewParquetStore(t.TempDir()), nil)

	got, err := l.LoadOne(context.Background(), "NOPE", day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("LoadOne: %v", err)
	}
	if got != nil {
		t.Errorf("LoadOne = %+v for missing ticker, want nil", got)
	}
}

func TestCachingLoader_LoadPairAligns(t *testing.T) {
	remote := &countingLoader{series: map[string]*domain.PriceSeries{
		"A": series(day(2024, 1, 1), 10, 11, 12),
		"B": series(day(2024, 1, 2), 20, 21, 22),
	}}
	l := NewCachingLoader(remote, store.NewParquetStore(t.TempDir()), nil)

	got, err := l.LoadPair(context.Background(), "A", "B", day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("LoadPair: %v", err)
	}
	if got.Len() != 2 || !got.IsPair() {
		t.Fatalf("aligned pair = %+v, want 2 overlapping rows", got)
	}
}

// ---------------------------------------------------------------------------
// CSV universe
// ---------------------------------------------------------------------------

const universeCSV = `ticker,name,market_cap
MSFT,Microsoft Corporation,3100000000000
AAPL,Apple Inc.,2900000000000
GOOGL,Alphabet Inc. Class A,2100000000000
GOOG,Alphabet Inc. Class C,2080000000000
BRK.B,Berkshire Hathaway Inc. Class B,900000000000
`

func TestCSVUniverse_RankedByMarketCap(t *testing.T) {
	u, err := ParseCSVUniverse(strings.NewReader(universeCSV))
	if err != nil {
		t.Fatalf("ParseCSVUniverse: %v", err)
	}

	top, err := u.TopCompanies(context.Background(), 3)
	if err != nil {
		t.Fatalf("TopCompanies: %v", err)
	}
	want := []string{"MSFT", "AAPL", "GOOGL"}
	if len(top) != len(want) {
		t.Fatalf("TopCompanies returned %d candidates, want %d", len(top), len(want))
	}
	for i, c := range top {
		if c.Ticker != want[i] {
			t.Errorf("rank %d = %s, want %s", i, c.Ticker, want[i])
		}
	}
}

func TestCSVUniverse_TopCompaniesClamps(t *testing.T) {
	u, err := ParseCSVUniverse(strings.NewReader(universeCSV))
	if err != nil {
		t.Fatalf("ParseCSVUniverse: %v", err)
	}

	all, err := u.TopCompanies(context.Background(), 100)
	if err != nil {
		t.Fatalf("TopCompanies: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("TopCompanies(100) returned %d, want all 5", len(all))
	}
	if none, _ := u.TopCompanies(context.Background(), 0); none != nil {
		t.Errorf("TopCompanies(0) = %v, want nil", none)
	}
}

func TestCSVUniverse_SameCompany(t *testing.T) {
	u, err := ParseCSVUniverse(strings.NewReader(universeCSV))
	if err != nil {
		t.Fatalf("ParseCSVUniverse: %v", err)
	}

	if !u.SameCompany("GOOGL", "GOOG") {
		t.Error("GOOGL and GOOG not detected as the same company")
	}
	if u.SameCompany("AAPL", "MSFT") {
		t.Error("AAPL and MSFT wrongly detected as the same company")
	}
	if u.SameCompany("AAPL", "ZZZZ") {
		t.Error("unknown ticker matched a known one")
	}
}

func TestCSVUniverse_MissingTickerColumn(t *testing.T) {
	_, err := ParseCSVUniverse(strings.NewReader("name,market_cap\nFoo,1\n"))
	if err == nil {
		t.Fatal("ParseCSVUniverse accepted a file without a ticker column")
	}
}
