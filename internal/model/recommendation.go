package model

import (
	"encoding/json"
	"time"
)

// Signal is the discrete trading recommendation.
type Signal string

const (
	SignalBuy  Signal = "Buy"
	SignalSell Signal = "Sell"
	SignalWait Signal = "Wait"
)

// Valid reports whether s is one of the known signals.
func (s Signal) Valid() bool {
	switch s {
	case SignalBuy, SignalSell, SignalWait:
		return true
	}
	return false
}

// IndicatorSnapshot holds the last value of each indicator at the most recent bar.
// The JSON keys are the display labels clients already consume.
type IndicatorSnapshot struct {
	RSI   float64 `json:"RSI"`
	MACD  float64 `json:"MACD"` // MACD line minus signal line
	SMA   float64 `json:"SMA"`
	Price float64 `json:"Preço"`
}

// Recommendation is one computed signal. It is never mutated after creation.
type Recommendation struct {
	ID         string            `json:"id,omitempty"`
	UserID     string            `json:"-"`
	Symbol     string            `json:"symbol"`
	Signal     Signal            `json:"signal"`
	Confidence float64           `json:"confidence"`
	Timestamp  time.Time         `json:"timestamp"`
	Indicators IndicatorSnapshot `json:"indicators"`
}

// MarshalJSON renders the timestamp as RFC 3339 in UTC.
func (r Recommendation) MarshalJSON() ([]byte, error) {
	type alias Recommendation
	return json.Marshal(struct {
		alias
		Timestamp string `json:"timestamp"`
	}{
		alias:     alias(r),
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}
