package indicator

import "fmt"

// MACD calculates Moving Average Convergence Divergence and reports the
// histogram (MACD line minus signal line) as its Value.
//
// The MACD line is EMA(fast) - EMA(slow) and exists once the slow EMA is ready.
// The signal line is EMA(signal) of the MACD line, starting at the first MACD
// line value, so the histogram is available as soon as the MACD line is.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA

	line      float64
	histogram float64
}

// NewMACD creates a MACD indicator (conventionally 12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.fast.period, m.slow.period, m.signal.period)
}

func (m *MACD) Update(price float64) {
	m.fast.Update(price)
	m.slow.Update(price)
	if !m.slow.Ready() || !m.fast.Ready() {
		return
	}

	m.line = m.fast.Value() - m.slow.Value()
	m.signal.Update(m.line)
	m.histogram = m.line - m.signal.Value()
}

// Value returns the histogram.
func (m *MACD) Value() float64 { return m.histogram }

// Line returns the MACD line.
func (m *MACD) Line() float64 { return m.line }

// Signal returns the signal line.
func (m *MACD) Signal() float64 { return m.signal.Value() }

func (m *MACD) Ready() bool { return m.slow.Ready() && m.fast.Ready() }
