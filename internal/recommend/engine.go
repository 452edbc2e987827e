// Package recommend turns a closing-price series into a Buy/Sell/Wait
// recommendation by majority vote of RSI, MACD histogram and SMA.
package recommend

import (
	"fmt"
	"math"
	"time"

	"investai/internal/indicator"
	"investai/internal/model"

	"github.com/shopspring/decimal"
)

// Engine computes recommendations. It keeps only its configuration, so one
// Engine can serve concurrent calls.
type Engine struct {
	cfg Config
	now func() time.Time
}

// NewEngine creates an engine; cfg must pass Validate.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("recommend config: %w", err)
	}
	return &Engine{cfg: cfg, now: time.Now}, nil
}

// Compute scores prices (chronological closes) for symbol.
// It fails with model.ErrDataInsufficient when the series is shorter than
// Config.MinBars or contains a non-finite price.
func (e *Engine) Compute(symbol string, prices []float64) (model.Recommendation, error) {
	snap, err := e.Snapshot(prices)
	if err != nil {
		return model.Recommendation{}, fmt.Errorf("compute %s: %w", symbol, err)
	}

	signal, confidence := decide(vote(e.cfg, snap), e.cfg.DefaultConfidence)

	return model.Recommendation{
		Symbol:     symbol,
		Signal:     signal,
		Confidence: round2(confidence),
		Timestamp:  e.now().UTC(),
		Indicators: model.IndicatorSnapshot{
			RSI:   round2(snap.RSI),
			MACD:  round2(snap.MACD),
			SMA:   round2(snap.SMA),
			Price: round2(snap.Price),
		},
	}, nil
}

// Snapshot returns the full-precision indicator values at the last price.
func (e *Engine) Snapshot(prices []float64) (model.IndicatorSnapshot, error) {
	if need := e.cfg.MinBars(); len(prices) < need {
		return model.IndicatorSnapshot{}, fmt.Errorf("%w: have %d prices, need %d", model.ErrDataInsufficient, len(prices), need)
	}
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return model.IndicatorSnapshot{}, fmt.Errorf("%w: price %d is not finite", model.ErrDataInsufficient, i)
		}
	}

	inds := []indicator.Indicator{
		indicator.NewRSI(e.cfg.RSIPeriod),
		indicator.NewMACD(e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal),
		indicator.NewSMA(e.cfg.SMAWindow),
	}
	var vals [3]float64
	for i, ind := range inds {
		v, err := indicator.Final(ind, prices)
		if err != nil {
			return model.IndicatorSnapshot{}, fmt.Errorf("%w: %v", model.ErrDataInsufficient, err)
		}
		vals[i] = v
	}

	return model.IndicatorSnapshot{
		RSI:   vals[0],
		MACD:  vals[1],
		SMA:   vals[2],
		Price: prices[len(prices)-1],
	}, nil
}

// round2 rounds half away from zero to 2 decimal places.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
