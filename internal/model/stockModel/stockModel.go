package stockModel

import "github.com/shopspring/decimal"

// Snapshot is a point-in-time quote. It is immutable once received and is
// replaced wholesale by the next search.
type Snapshot struct {
	Ticker string
	Name   string
	Price  decimal.Decimal
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
}

// History is an aligned pair of date labels and closing prices.
// len(Dates) == len(Close) always holds for values produced by the API layer.
type History struct {
	Dates []string
	Close []float64
}

// SearchResult is what a completed search hands to the render pipeline.
// History may be empty when the history fetch failed; the snapshot is still
// valid in that case.
type SearchResult struct {
	Ticker   string
	Snapshot Snapshot
	History  History
}
