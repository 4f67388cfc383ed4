package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quantbt/internal/data"
	"quantbt/internal/domain"
	"quantbt/internal/engine"
	"quantbt/internal/store"
	"quantbt/internal/strategy/builtins"
)

// testLoader serves one rising ticker and one pair.
type testLoader struct{}

var _ data.Loader = testLoader{}

func risingSeries(n int) *domain.PriceSeries {
	s := &domain.PriceSeries{
		Dates: make([]time.Time, n),
		Close: make([]float64, n),
	}
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Close[0] = 100
	s.Dates[0] = d
	for i := 1; i < n; i++ {
		s.Dates[i] = d.AddDate(0, 0, i)
		s.Close[i] = s.Close[i-1] * 1.01
	}
	return s
}

func (testLoader) LoadOne(_ context.Context, ticker string, _, _ time.Time) (*domain.PriceSeries, error) {
	if ticker == "AAPL" {
		return risingSeries(31), nil
	}
	return nil, nil
}

func (testLoader) LoadPair(_ context.Context, a, b string, _, _ time.Time) (*domain.PriceSeries, error) {
	return nil, nil
}

type testUniverse struct{}

var _ data.UniverseProvider = testUniverse{}

func (testUniverse) TopCompanies(_ context.Context, n int) ([]domain.Candidate, error) {
	all := []domain.Candidate{{Ticker: "AAPL"}, {Ticker: "NODATA"}}
	if n < len(all) {
		all = all[:n]
	}
	return all, nil
}

func (testUniverse) SameCompany(_, _ string) bool { return false }

type memHistory struct {
	records []store.Record
}

func (h *memHistory) Append(_ context.Context, rec *store.Record) error {
	rec.ID = int64(len(h.records) + 1)
	rec.DateCreated = time.Now()
	h.records = append(h.records, *rec)
	return nil
}

func (h *memHistory) ListRecent(_ context.Context, limit int) ([]store.Record, error) {
	var out []store.Record
	for i := len(h.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.records[i])
	}
	return out, nil
}

func newTestServer() (*Server, *memHistory) {
	history := &memHistory{}
	eng := engine.New(engine.Options{
		Loader:   testLoader{},
		Universe: testUniverse{},
		History:  history,
	})
	return NewServer(eng, nil), history
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshalling request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestBacktestEndpoint(t *testing.T) {
	srv, history := newTestServer()
	h := srv.Handler()

	rec := postJSON(t, h, "/api/backtest", BacktestRequest{
		Strategy: builtins.NameBuyAndHold,
		Tickers:  []string{"AAPL"},
		Start:    "2024-01-01",
		End:      "2024-02-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	resp := decode[BacktestResponse](t, rec)
	if resp.Metrics.TotalReturn <= 0 {
		t.Errorf("total return = %v, want > 0", resp.Metrics.TotalReturn)
	}
	if len(resp.Equity) != 31 || len(resp.Dates) != 31 {
		t.Errorf("curve lengths = %d/%d, want 31", len(resp.Equity), len(resp.Dates))
	}
	if len(history.records) != 1 {
		t.Errorf("history has %d records after backtest, want 1", len(history.records))
	}
}

func TestBacktestEndpoint_UnknownStrategy(t *testing.T) {
	srv, _ := newTestServer()

	rec := postJSON(t, srv.Handler(), "/api/backtest", BacktestRequest{
		Strategy: "Invalid Strategy",
		Tickers:  []string{"AAPL"},
		Start:    "2024-01-01",
		End:      "2024-02-01",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBacktestEndpoint_BadDates(t *testing.T) {
	srv, _ := newTestServer()
	h := srv.Handler()

	for _, tc := range []struct{ start, end string }{
		{"not-a-date", "2024-02-01"},
		{"2024-01-01", "nope"},
		{"2024-02-01", "2024-01-01"},
	} {
		rec := postJSON(t, h, "/api/backtest", BacktestRequest{
			Strategy: builtins.NameBuyAndHold,
			Tickers:  []string{"AAPL"},
			Start:    tc.start,
			End:      tc.end,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("dates (%s, %s): status = %d, want 400", tc.start, tc.end, rec.Code)
		}
	}
}

func TestOptimiseEndpoint(t *testing.T) {
	srv, _ := newTestServer()

	rec := postJSON(t, srv.Handler(), "/api/optimise", map[string]any{
		"strategy": builtins.NameMeanReversion,
		"grid": []map[string]any{
			{"name": "window", "values": []float64{3, 5}},
			{"name": "std_dev", "values": []float64{1.0}},
		},
		"tickers": []string{"AAPL"},
		"start":   "2024-01-01",
		"end":     "2024-02-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[SearchResponse](t, rec)
	if len(resp.Tickers) != 1 || resp.Tickers[0] != "AAPL" {
		t.Errorf("result tickers = %v, want [AAPL]", resp.Tickers)
	}
	if _, ok := resp.Params["window"]; !ok {
		t.Errorf("result params = %v, want a window value from the grid", resp.Params)
	}
}

func TestOptimiseEndpoint_EmptyGrid(t *testing.T) {
	srv, _ := newTestServer()

	rec := postJSON(t, srv.Handler(), "/api/optimise", OptimiseRequest{
		Strategy: builtins.NameMeanReversion,
		Tickers:  []string{"AAPL"},
		Start:    "2024-01-01",
		End:      "2024-02-01",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for an empty grid", rec.Code)
	}
}

func TestTickerSearchEndpoint(t *testing.T) {
	srv, _ := newTestServer()

	rec := postJSON(t, srv.Handler(), "/api/search/ticker", TickerSearchRequest{
		Strategy: builtins.NameBuyAndHold,
		TopN:     2,
		Start:    "2024-01-01",
		End:      "2024-02-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[SearchResponse](t, rec)
	if len(resp.Tickers) != 1 || resp.Tickers[0] != "AAPL" {
		t.Errorf("best ticker = %v, want AAPL", resp.Tickers)
	}
	if resp.Metrics.SharpeRatio == nil {
		t.Error("Sharpe ratio = null for a rising series")
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv, history := newTestServer()
	h := srv.Handler()

	// Seed two runs through the API.
	for i := 0; i < 2; i++ {
		rec := postJSON(t, h, "/api/backtest", BacktestRequest{
			Strategy: builtins.NameBuyAndHold,
			Tickers:  []string{"AAPL"},
			Start:    "2024-01-01",
			End:      "2024-02-01",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("seed backtest status = %d", rec.Code)
		}
	}
	if len(history.records) != 2 {
		t.Fatalf("history has %d records, want 2", len(history.records))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[HistoryResponse](t, rec)
	if len(resp.Records) != 1 {
		t.Fatalf("history returned %d records, want 1", len(resp.Records))
	}
	if resp.Records[0].ID != 2 {
		t.Errorf("newest record ID = %d, want 2", resp.Records[0].ID)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/history?limit=bogus", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus limit status = %d, want 400", rec.Code)
	}
}

func TestStrategiesEndpoint(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/strategies", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[StrategiesResponse](t, rec)
	if len(resp.Strategies) != 4 {
		t.Errorf("strategies = %v, want the four built-ins", resp.Strategies)
	}
}

func TestHealthAndCORS(t *testing.T) {
	srv, _ := newTestServer()
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/backtest", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}
