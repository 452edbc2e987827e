// Package indicator provides technical indicator calculations over closing prices.
//
// All indicators implement the Indicator interface, receiving prices one at a
// time in chronological order and producing a float64 value. Instances are not
// safe for concurrent use; create one per computation.
package indicator

import (
	"errors"
	"fmt"
	"math"
)

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator with its parameters (e.g., "SMA(20)").
	Name() string

	// Update feeds the next closing price and recalculates.
	Update(price float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}

// ErrUndefined is returned by Final when an indicator has no value.
var ErrUndefined = errors.New("indicator undefined")

// Final is Last with an error naming the indicator.
func Final(ind Indicator, prices []float64) (float64, error) {
	v, ok := Last(ind, prices)
	if !ok {
		return 0, fmt.Errorf("%s over %d prices: %w", ind.Name(), len(prices), ErrUndefined)
	}
	return v, nil
}

// Last feeds every price into ind and returns its final value.
// ok is false when the series is too short for ind or the value is not finite.
func Last(ind Indicator, prices []float64) (v float64, ok bool) {
	for _, p := range prices {
		ind.Update(p)
	}
	if !ind.Ready() {
		return 0, false
	}
	v = ind.Value()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
