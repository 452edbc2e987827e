package sqlstore

import (
	"context"
	"fmt"
	"time"

	"investai/internal/model"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Recommendations is the insert-only recommendation log.
// It implements model.RecommendationLog and model.RecommendationReader.
type Recommendations struct {
	db *DB
}

func NewRecommendations(db *DB) *Recommendations { return &Recommendations{db: db} }

type recommendationRow struct {
	ID         string  `db:"id"`
	UserID     string  `db:"user_id"`
	Symbol     string  `db:"symbol"`
	Signal     string  `db:"signal"`
	Confidence float64 `db:"confidence"`
	TS         int64   `db:"ts"`
	RSI        float64 `db:"rsi"`
	MACD       float64 `db:"macd"`
	SMA        float64 `db:"sma"`
	Price      float64 `db:"price"`
}

func (r recommendationRow) recommendation() (model.Recommendation, error) {
	sig := model.Signal(r.Signal)
	if !sig.Valid() {
		return model.Recommendation{}, fmt.Errorf("recommendation %s: unknown signal %q", r.ID, r.Signal)
	}
	return model.Recommendation{
		ID:         r.ID,
		UserID:     r.UserID,
		Symbol:     r.Symbol,
		Signal:     sig,
		Confidence: r.Confidence,
		Timestamp:  time.UnixMicro(r.TS).UTC(),
		Indicators: model.IndicatorSnapshot{
			RSI:   r.RSI,
			MACD:  r.MACD,
			SMA:   r.SMA,
			Price: r.Price,
		},
	}, nil
}

// Append inserts rec. Records are never updated.
func (s *Recommendations) Append(ctx context.Context, rec model.Recommendation) error {
	if rec.ID == "" {
		return fmt.Errorf("append recommendation: %w: missing id", model.ErrBadRequest)
	}
	if !rec.Signal.Valid() {
		return fmt.Errorf("append recommendation %s: %w: signal %q", rec.ID, model.ErrBadRequest, rec.Signal)
	}
	row := recommendationRow{
		ID:         rec.ID,
		UserID:     rec.UserID,
		Symbol:     rec.Symbol,
		Signal:     string(rec.Signal),
		Confidence: rec.Confidence,
		TS:         rec.Timestamp.UnixMicro(),
		RSI:        rec.Indicators.RSI,
		MACD:       rec.Indicators.MACD,
		SMA:        rec.Indicators.SMA,
		Price:      rec.Indicators.Price,
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO recommendations (id, user_id, symbol, signal, confidence, ts, rsi, macd, sma, price)
		VALUES (:id, :user_id, :symbol, :signal, :confidence, :ts, :rsi, :macd, :sma, :price)`, row)
	if err != nil {
		return fmt.Errorf("append recommendation %s: %w", rec.Symbol, err)
	}
	return nil
}

// ListByUser returns the user's recommendations newest first. An empty
// symbol matches all symbols. limit <= 0 selects the default.
func (s *Recommendations) ListByUser(ctx context.Context, userID, symbol string, limit int) ([]model.Recommendation, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := `SELECT id, user_id, symbol, signal, confidence, ts, rsi, macd, sma, price
		FROM recommendations WHERE user_id = ?`
	args := []any{userID}
	if symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY ts DESC LIMIT ?`
	args = append(args, limit)

	var rows []recommendationRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	out := make([]model.Recommendation, len(rows))
	for i, r := range rows {
		rec, err := r.recommendation()
		if err != nil {
			return nil, fmt.Errorf("list recommendations: %w", err)
		}
		out[i] = rec
	}
	return out, nil
}
