package model

import "time"

// Side is the direction of a signal, position, or trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is the closed record of one round-trip position.
type Trade struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"` // direction of the entry
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Size       float64   `json:"size"`
	PnL        float64   `json:"pnl"`
}

// Win reports whether the trade closed profitably.
func (t *Trade) Win() bool {
	return t.PnL > 0
}
