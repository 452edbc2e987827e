package recommend

import "fmt"

// DefaultConfidence is reported with a Wait signal, when no indicator voted.
// It is a fixed placeholder rather than a measured agreement.
const DefaultConfidence = 50.0

// Config holds the indicator windows and voting thresholds.
type Config struct {
	RSIPeriod  int `yaml:"rsi_period"`
	MACDFast   int `yaml:"macd_fast"`
	MACDSlow   int `yaml:"macd_slow"`
	MACDSignal int `yaml:"macd_signal"`
	SMAWindow  int `yaml:"sma_window"`

	RSIOversold   float64 `yaml:"rsi_oversold"`
	RSIOverbought float64 `yaml:"rsi_overbought"`

	// DefaultConfidence is the confidence attached to Wait.
	DefaultConfidence float64 `yaml:"default_confidence"`
}

// DefaultConfig returns the conventional 14 / 12-26-9 / 20 setup with 30/70 RSI bands.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:         14,
		MACDFast:          12,
		MACDSlow:          26,
		MACDSignal:        9,
		SMAWindow:         20,
		RSIOversold:       30,
		RSIOverbought:     70,
		DefaultConfidence: DefaultConfidence,
	}
}

// Validate checks that windows are usable and thresholds are ordered.
func (c Config) Validate() error {
	if c.RSIPeriod < 2 {
		return fmt.Errorf("rsi_period must be >= 2, got %d", c.RSIPeriod)
	}
	if c.MACDFast < 1 || c.MACDSignal < 1 {
		return fmt.Errorf("macd periods must be >= 1, got fast=%d signal=%d", c.MACDFast, c.MACDSignal)
	}
	if c.MACDSlow <= c.MACDFast {
		return fmt.Errorf("macd_slow (%d) must exceed macd_fast (%d)", c.MACDSlow, c.MACDFast)
	}
	if c.SMAWindow < 1 {
		return fmt.Errorf("sma_window must be >= 1, got %d", c.SMAWindow)
	}
	if c.RSIOversold < 0 || c.RSIOverbought > 100 || c.RSIOversold >= c.RSIOverbought {
		return fmt.Errorf("rsi bands must satisfy 0 <= oversold < overbought <= 100, got %v/%v", c.RSIOversold, c.RSIOverbought)
	}
	if c.DefaultConfidence < 0 || c.DefaultConfidence > 100 {
		return fmt.Errorf("default_confidence must be within [0,100], got %v", c.DefaultConfidence)
	}
	return nil
}

// MinBars is the number of prices needed before every indicator has a value.
func (c Config) MinBars() int {
	n := c.SMAWindow
	if c.RSIPeriod+1 > n {
		n = c.RSIPeriod + 1
	}
	if c.MACDSlow > n {
		n = c.MACDSlow
	}
	if c.MACDFast > n {
		n = c.MACDFast
	}
	return n
}
