package indicator

import "fmt"

// EMA is an exponential moving average with smoothing 2/(period+1).
// It starts at the first price and reports ready after period prices,
// matching pandas ewm(adjust=false).
type EMA struct {
	alpha  float64
	period int
	n      int
	v      float64
}

// NewEMA creates an EMA for the given period.
func NewEMA(period int) *EMA {
	return &EMA{period: period, alpha: 2 / float64(period+1)}
}

func (e *EMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }

func (e *EMA) Update(price float64) {
	if e.n == 0 {
		e.v = price
	} else {
		// Stepping toward price keeps a constant series exactly constant.
		e.v += e.alpha * (price - e.v)
	}
	e.n++
}

func (e *EMA) Value() float64 { return e.v }
func (e *EMA) Ready() bool    { return e.n >= e.period }
