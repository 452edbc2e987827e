package recommend

import "investai/internal/model"

// tally counts directional votes.
type tally struct {
	buy  int
	sell int
}

func (t *tally) cast(s model.Signal) {
	switch s {
	case model.SignalBuy:
		t.buy++
	case model.SignalSell:
		t.sell++
	}
}

func (t tally) total() int { return t.buy + t.sell }

// vote applies the threshold table to a full-precision snapshot.
// Each indicator casts at most one vote; Buy is checked before Sell.
func vote(cfg Config, snap model.IndicatorSnapshot) tally {
	var t tally

	if snap.RSI < cfg.RSIOversold {
		t.cast(model.SignalBuy)
	} else if snap.RSI > cfg.RSIOverbought {
		t.cast(model.SignalSell)
	}

	if snap.MACD > 0 {
		t.cast(model.SignalBuy)
	} else if snap.MACD < 0 {
		t.cast(model.SignalSell)
	}

	if snap.Price > snap.SMA {
		t.cast(model.SignalBuy)
	} else if snap.Price < snap.SMA {
		t.cast(model.SignalSell)
	}

	return t
}

// decide turns a tally into a signal and an unrounded confidence.
// Ties go to Buy, the first signal in table order.
func decide(t tally, defaultConfidence float64) (model.Signal, float64) {
	n := t.total()
	if n == 0 {
		return model.SignalWait, defaultConfidence
	}
	if t.buy >= t.sell {
		return model.SignalBuy, float64(t.buy) / float64(n) * 100
	}
	return model.SignalSell, float64(t.sell) / float64(n) * 100
}
