// Package scheduler periodically refreshes recommendations for every
// favorited symbol and alerts on directional signals.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"investai/internal/logger"
	"investai/internal/metrics"
	"investai/internal/model"
	"investai/internal/notification"
	"investai/internal/recommend"
)

// SystemUserID is the user id recorded for scheduled recommendations.
const SystemUserID = ""

// Recommender is implemented by *recommend.Service.
type Recommender interface {
	Recommend(ctx context.Context, userID, symbol string) (model.Recommendation, error)
}

// SymbolSource lists the symbols to refresh.
type SymbolSource interface {
	Symbols(ctx context.Context) ([]string, error)
}

var _ Recommender = (*recommend.Service)(nil)

// Scheduler runs the favorites refresh on a cron spec (seconds field enabled).
type Scheduler struct {
	cron        *cron.Cron
	symbols     SymbolSource
	recommender Recommender
	notifier    notification.Notifier
	metrics     *metrics.Metrics
	ctx         context.Context
}

// New creates a scheduler. ctx bounds every run; m may be nil.
func New(ctx context.Context, symbols SymbolSource, rec Recommender, n notification.Notifier, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		symbols:     symbols,
		recommender: rec,
		notifier:    n,
		metrics:     m,
		ctx:         ctx,
	}
}

// Register adds the refresh job under spec, e.g. "0 */15 * * * *".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(s.ctx) }); err != nil {
		return fmt.Errorf("register refresh %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// RunOnce refreshes every favorited symbol sequentially. Per-symbol
// failures are logged and do not stop the run. It returns the number of
// symbols refreshed successfully.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID())
	log := logger.FromContext(ctx)
	if s.metrics != nil {
		s.metrics.RefreshRunsTotal.Inc()
	}

	symbols, err := s.symbols.Symbols(ctx)
	if err != nil {
		log.Error("refresh: list symbols", "error", err)
		return 0
	}

	ok := 0
	for _, sym := range symbols {
		if ctx.Err() != nil {
			log.Warn("refresh interrupted", "done", ok, "total", len(symbols))
			break
		}
		rec, err := s.recommender.Recommend(ctx, SystemUserID, sym)
		if err != nil {
			s.count("error")
			log.Warn("refresh failed", "symbol", sym, "kind", model.ErrorKind(err), "error", err)
			continue
		}
		s.count("ok")
		ok++

		if alert, directional := notification.AlertFromRecommendation(rec); directional {
			if err := s.notifier.Send(ctx, alert); err != nil {
				log.Warn("notify failed", "symbol", sym, "error", err)
			}
		}
	}
	log.Info("refresh complete", "symbols", len(symbols), "ok", ok)
	return ok
}

func (s *Scheduler) count(outcome string) {
	if s.metrics != nil {
		s.metrics.RefreshSymbolsTotal.WithLabelValues(outcome).Inc()
	}
}
