// Package dto defines data transfer objects for the series HTTP API.
package dto

// BarItem is one bar of a series response.
type BarItem struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
	Amount float64 `json:"amount"`
}

// SeriesResponse is the body of GET /series/:symbol.
type SeriesResponse struct {
	Symbol      string    `json:"symbol"`
	Granularity string    `json:"granularity"`
	Adj         string    `json:"adj"`
	Bars        []BarItem `json:"bars"`
}

// ConstituentsResponse is the body of GET /boards/:code/constituents.
type ConstituentsResponse struct {
	Board   string   `json:"board"`
	AsOf    string   `json:"as_of,omitempty"`
	Symbols []string `json:"symbols"`
}
