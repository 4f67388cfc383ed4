// Package quantbt provides a Go SDK for the quantbt-server REST API.
package quantbt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"quantbt/internal/httpapi"
)

// Client calls the quantbt-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an API client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Backtest runs one fixed-parameter backtest.
func (c *Client) Backtest(ctx context.Context, req httpapi.BacktestRequest) (*httpapi.BacktestResponse, error) {
	var resp httpapi.BacktestResponse
	if err := c.post(ctx, "/api/backtest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Optimise grid-searches strategy parameters on fixed tickers.
func (c *Client) Optimise(ctx context.Context, req httpapi.OptimiseRequest) (*httpapi.SearchResponse, error) {
	var resp httpapi.SearchResponse
	if err := c.post(ctx, "/api/optimise", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchTicker finds the best single ticker from the candidate universe.
func (c *Client) SearchTicker(ctx context.Context, req httpapi.TickerSearchRequest) (*httpapi.SearchResponse, error) {
	var resp httpapi.SearchResponse
	if err := c.post(ctx, "/api/search/ticker", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchPairs finds the best ticker pair from the candidate universe.
func (c *Client) SearchPairs(ctx context.Context, req httpapi.PairSearchRequest) (*httpapi.SearchResponse, error) {
	var resp httpapi.SearchResponse
	if err := c.post(ctx, "/api/search/pairs", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History lists the most recent recorded runs, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]httpapi.RecordJSON, error) {
	path := "/api/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp httpapi.HistoryResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// Strategies lists the strategy names the server supports.
func (c *Client) Strategies(ctx context.Context) ([]string, error) {
	var resp httpapi.StrategiesResponse
	if err := c.get(ctx, "/api/strategies", &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

// Health reports whether the server is reachable and healthy.
func (c *Client) Health(ctx context.Context) error {
	var resp map[string]string
	if err := c.get(ctx, "/api/health", &resp); err != nil {
		return err
	}
	if resp["status"] != "ok" {
		return fmt.Errorf("unexpected health status %q", resp["status"])
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", req.Method, req.URL.Path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
