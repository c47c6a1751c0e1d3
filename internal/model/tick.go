package model

import "time"

// Tick represents a single live price update for a symbol.
type Tick struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Volume float64   `json:"volume"`  // last traded quantity, 0 if unknown
	TS     time.Time `json:"tick_ts"` // UTC timestamp
}
