package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"quantbt/internal/domain"
	"quantbt/internal/engine"
	"quantbt/internal/optimise"
	"quantbt/internal/strategy"
)

const defaultHistoryLimit = 50

// Server serves the backtest REST API.
type Server struct {
	engine *engine.Engine
	log    *slog.Logger
}

// NewServer creates an API server over eng.
func NewServer(eng *engine.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: eng, log: log.With("component", "httpapi")}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/backtest", s.handleBacktest)
	mux.HandleFunc("POST /api/optimise", s.handleOptimise)
	mux.HandleFunc("POST /api/search/ticker", s.handleTickerSearch)
	mux.HandleFunc("POST /api/search/pairs", s.handlePairSearch)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("GET /api/health", s.handleHealth)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.Evaluate(r.Context(), req.Strategy, req.Params, req.Tickers, start, end)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	dates := make([]string, len(res.Dates))
	for i, d := range res.Dates {
		dates[i] = d.Format("2006-01-02")
	}
	writeJSON(w, BacktestResponse{
		Strategy: req.Strategy,
		Tickers:  res.Tickers,
		Params:   res.Params,
		Metrics:  metricsJSON(res.Metrics),
		Dates:    dates,
		Equity:   sanitizeEquity(res.Equity),
	})
}

func (s *Server) handleOptimise(w http.ResponseWriter, r *http.Request) {
	var req OptimiseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.SearchParameters(r.Context(), req.Strategy, req.Grid.toGrid(), req.Tickers, start, end, s.logProgress("optimise"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, searchResponse(res))
}

func (s *Server) handleTickerSearch(w http.ResponseWriter, r *http.Request) {
	var req TickerSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.SearchSingleTicker(r.Context(), req.Strategy, req.Params, req.TopN, start, end, s.logProgress("ticker search"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, searchResponse(res))
}

func (s *Server) handlePairSearch(w http.ResponseWriter, r *http.Request) {
	var req PairSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.SearchTickerPairs(r.Context(), req.Grid.toGrid(), req.Optimise, req.TopN, start, end, s.logProgress("pair search"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, searchResponse(res))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := s.engine.History(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]RecordJSON, len(records))
	for i, rec := range records {
		out[i] = recordJSON(rec)
	}
	writeJSON(w, HistoryResponse{Records: out})
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, StrategiesResponse{Strategies: s.engine.Registry().List()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func searchResponse(res *domain.OptimisationResult) SearchResponse {
	return SearchResponse{
		Tickers: res.Tickers,
		Params:  res.Params,
		Metrics: metricsJSON(res.Metrics),
		Partial: res.Partial,
	}
}

// writeEngineError maps engine errors to HTTP status codes: invalid
// configuration is the client's fault, missing data is not found, the rest
// is a server error.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, strategy.ErrUnknownStrategy), errors.Is(err, optimise.ErrEmptyDomain):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, optimise.ErrNoViableResult):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) logProgress(operation string) optimise.ProgressFunc {
	return func(index, total int, label string) {
		s.log.Debug("search progress", "operation", operation, "step", index+1, "total", total, "label", label)
	}
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q", start)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q", end)
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %q before start date %q", end, start)
	}
	return s, e, nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
