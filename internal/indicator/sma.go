package indicator

import "fmt"

// resumEvery bounds floating-point drift of the running sum: after this many
// full passes over the window the sum is recomputed from the window itself.
const resumEvery = 64

// SMA is the arithmetic mean of the last `window` prices.
type SMA struct {
	window []float64
	next   int
	seen   int
	passes int
	sum    float64
}

// NewSMA creates an SMA over the given window.
func NewSMA(window int) *SMA {
	return &SMA{window: make([]float64, window)}
}

func (s *SMA) Name() string { return fmt.Sprintf("SMA(%d)", len(s.window)) }

func (s *SMA) Update(price float64) {
	s.sum += price - s.window[s.next]
	s.window[s.next] = price
	s.seen++

	s.next++
	if s.next < len(s.window) {
		return
	}
	s.next = 0
	s.passes++
	if s.passes%resumEvery == 0 {
		s.sum = 0
		for _, v := range s.window {
			s.sum += v
		}
	}
}

// Value is 0 until the window has filled.
func (s *SMA) Value() float64 {
	if !s.Ready() {
		return 0
	}
	return s.sum / float64(len(s.window))
}

func (s *SMA) Ready() bool { return s.seen >= len(s.window) }
