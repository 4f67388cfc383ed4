package domain

// Candidate is one entry of a ranked ticker universe used as a search space.
type Candidate struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name,omitempty"`
	MarketCap float64 `json:"market_cap,omitempty"`
}
