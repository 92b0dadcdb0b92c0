// Package feed provides the concrete event sources driven by the dispatcher:
// a historical bar feed walking a time-ordered source, and a realtime tick
// feed fed by a background producer.
package feed

import (
	"fmt"
	"time"
)

// Bar is one OHLCV candle.
type Bar struct {
	Symbol   string    `json:"symbol"`
	DateTime time.Time `json:"datetime"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Validate checks internal consistency of the candle.
func (b Bar) Validate() error {
	if b.Symbol == "" {
		return fmt.Errorf("bar has no symbol")
	}
	if b.DateTime.IsZero() {
		return fmt.Errorf("bar %s has no datetime", b.Symbol)
	}
	if b.High < b.Low {
		return fmt.Errorf("bar %s@%s: high %v below low %v", b.Symbol, b.DateTime.Format(time.RFC3339), b.High, b.Low)
	}
	if b.Open > b.High || b.Open < b.Low {
		return fmt.Errorf("bar %s@%s: open %v outside range", b.Symbol, b.DateTime.Format(time.RFC3339), b.Open)
	}
	if b.Close > b.High || b.Close < b.Low {
		return fmt.Errorf("bar %s@%s: close %v outside range", b.Symbol, b.DateTime.Format(time.RFC3339), b.Close)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s@%s: negative volume", b.Symbol, b.DateTime.Format(time.RFC3339))
	}
	return nil
}

// Tick is one realtime trade print.
type Tick struct {
	Symbol   string    `json:"symbol"`
	DateTime time.Time `json:"datetime"`
	Price    float64   `json:"price"`
	Size     float64   `json:"size"`
}
