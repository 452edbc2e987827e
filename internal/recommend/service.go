package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"investai/internal/logger"
	"investai/internal/metrics"
	"investai/internal/model"
	"investai/internal/trace"
)

const (
	DefaultInterval = "1h"
	DefaultLimit    = 100
)

// ServiceConfig selects the bar series fetched per request.
type ServiceConfig struct {
	Interval string
	Limit    int
}

// Service fetches prices, computes a recommendation and records it.
type Service struct {
	engine   *Engine
	fetcher  model.KlineFetcher
	log      model.RecommendationLog
	metrics  *metrics.Metrics
	interval string
	limit    int
}

// NewService wires the pipeline. m may be nil.
func NewService(cfg ServiceConfig, engine *Engine, fetcher model.KlineFetcher, log model.RecommendationLog, m *metrics.Metrics) *Service {
	interval := cfg.Interval
	if interval == "" {
		interval = DefaultInterval
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{
		engine:   engine,
		fetcher:  fetcher,
		log:      log,
		metrics:  m,
		interval: interval,
		limit:    limit,
	}
}

// NormalizeSymbol trims and upper-cases symbol. Empty or non-alphanumeric
// input is ErrInvalidSymbol.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || len(s) > 20 {
		return "", fmt.Errorf("%w: %q", model.ErrInvalidSymbol, symbol)
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q", model.ErrInvalidSymbol, symbol)
		}
	}
	return s, nil
}

// Recommend returns a fresh recommendation for symbol on behalf of userID
// and appends it to the log. Nothing is returned unless the append succeeds.
func (s *Service) Recommend(ctx context.Context, userID, symbol string) (model.Recommendation, error) {
	ctx, span := trace.StartSpan(ctx, "recommend")
	defer span.End()

	start := time.Now()
	rec, err := s.recommend(ctx, userID, symbol)
	if err != nil {
		trace.RecordError(span, err)
		if s.metrics != nil {
			s.metrics.RecommendErrorsTotal.WithLabelValues(string(model.ErrorKind(err))).Inc()
		}
		return model.Recommendation{}, err
	}

	span.SetAttributes(
		attribute.String("symbol", rec.Symbol),
		attribute.String("signal", string(rec.Signal)),
		attribute.Float64("confidence", rec.Confidence),
	)
	if s.metrics != nil {
		s.metrics.RecommendationsTotal.WithLabelValues(string(rec.Signal)).Inc()
		s.metrics.RecommendDur.Observe(time.Since(start).Seconds())
	}
	logger.FromContext(ctx).Info("recommendation",
		"symbol", rec.Symbol,
		"signal", rec.Signal,
		"confidence", rec.Confidence,
		"id", rec.ID,
	)
	return rec, nil
}

func (s *Service) recommend(ctx context.Context, userID, symbol string) (model.Recommendation, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return model.Recommendation{}, err
	}

	bars, err := s.fetcher.FetchKlines(ctx, sym, s.interval, s.limit)
	if err != nil {
		return model.Recommendation{}, fmt.Errorf("fetch %s: %w", sym, err)
	}

	rec, err := s.engine.Compute(sym, model.Closes(bars))
	if err != nil {
		return model.Recommendation{}, err
	}
	rec.ID = uuid.NewString()
	rec.UserID = userID

	if err := s.log.Append(ctx, rec); err != nil {
		return model.Recommendation{}, fmt.Errorf("record %s: %w", sym, err)
	}
	return rec, nil
}
