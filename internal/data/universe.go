package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"quantbt/internal/domain"
)

// UniverseProvider supplies the ranked candidate universe for ticker and
// pair searches.
type UniverseProvider interface {
	// TopCompanies returns up to n candidates ranked by market cap,
	// largest first.
	TopCompanies(ctx context.Context, n int) ([]domain.Candidate, error)

	// SameCompany reports whether two tickers trade the same underlying
	// company, such as dual share classes.
	SameCompany(tickerA, tickerB string) bool
}

// Compile-time interface check.
var _ UniverseProvider = (*CSVUniverse)(nil)

// CSVUniverse reads a constituents CSV with ticker, company name, and market
// cap columns. The header row names the columns; recognised headers are
// "ticker"/"symbol", "name"/"company", and "market_cap"/"marketcap".
type CSVUniverse struct {
	candidates []domain.Candidate
	byTicker   map[string]string // ticker -> normalised company name
}

// LoadCSVUniverse parses the constituents file at path and returns a
// universe ranked by market cap, largest first.
func LoadCSVUniverse(path string) (*CSVUniverse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening universe file: %w", err)
	}
	defer f.Close()
	return ParseCSVUniverse(f)
}

// ParseCSVUniverse parses constituents CSV data from r.
func ParseCSVUniverse(r io.Reader) (*CSVUniverse, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading universe header: %w", err)
	}
	tickerCol, nameCol, capCol := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "ticker", "symbol":
			tickerCol = i
		case "name", "company", "company_name":
			nameCol = i
		case "market_cap", "marketcap":
			capCol = i
		}
	}
	if tickerCol < 0 {
		return nil, fmt.Errorf("universe header %v has no ticker column", header)
	}

	u := &CSVUniverse{byTicker: make(map[string]string)}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading universe row: %w", err)
		}

		c := domain.Candidate{Ticker: strings.ToUpper(strings.TrimSpace(row[tickerCol]))}
		if c.Ticker == "" {
			continue
		}
		if nameCol >= 0 && nameCol < len(row) {
			c.Name = strings.TrimSpace(row[nameCol])
		}
		if capCol >= 0 && capCol < len(row) {
			// Malformed market caps rank last rather than failing the load.
			c.MarketCap, _ = strconv.ParseFloat(strings.TrimSpace(row[capCol]), 64)
		}

		u.candidates = append(u.candidates, c)
		u.byTicker[c.Ticker] = normaliseCompanyName(c.Name)
	}

	sort.SliceStable(u.candidates, func(i, j int) bool {
		return u.candidates[i].MarketCap > u.candidates[j].MarketCap
	})
	return u, nil
}

// TopCompanies returns up to n candidates ranked by market cap.
func (u *CSVUniverse) TopCompanies(_ context.Context, n int) ([]domain.Candidate, error) {
	if n <= 0 || len(u.candidates) == 0 {
		return nil, nil
	}
	if n > len(u.candidates) {
		n = len(u.candidates)
	}
	out := make([]domain.Candidate, n)
	copy(out, u.candidates[:n])
	return out, nil
}

// SameCompany reports whether both tickers map to the same normalised
// company name. Unknown tickers never match.
func (u *CSVUniverse) SameCompany(tickerA, tickerB string) bool {
	a := u.byTicker[strings.ToUpper(tickerA)]
	b := u.byTicker[strings.ToUpper(tickerB)]
	return a != "" && a == b
}

// corporateSuffixes are trailing tokens stripped during company-name
// normalisation so "Alphabet Inc. Class A" and "Alphabet Inc. Class C"
// compare equal.
var corporateSuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"company":      true,
	"ltd":          true,
	"plc":          true,
	"class":        true,
	"a":            true,
	"b":            true,
	"c":            true,
	"the":          true,
}

func normaliseCompanyName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, name)

	var kept []string
	for _, tok := range strings.Fields(cleaned) {
		if !corporateSuffixes[tok] {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}
