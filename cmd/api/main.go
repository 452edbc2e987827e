// cmd/api serves the InvestAI recommendation API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"investai/config"
	"investai/internal/api"
	"investai/internal/auth"
	"investai/internal/logger"
	"investai/internal/marketdata/binance"
	"investai/internal/metrics"
	"investai/internal/model"
	"investai/internal/notification"
	"investai/internal/recommend"
	"investai/internal/scheduler"
	redisstore "investai/internal/store/redis"
	"investai/internal/store/sqlstore"
	"investai/internal/trace"
)

const serviceName = "investai-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger.Init(serviceName, logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := trace.Init(trace.Config{Enabled: cfg.TracingEnabled, Service: serviceName, Version: "1.0.0"}); err != nil {
		return err
	}
	defer func() {
		shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shCancel()
		trace.Shutdown(shCtx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	// Storage
	db, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	// Redis is optional: without it klines are not cached and revoked
	// tokens live in process memory.
	var (
		fetcher  model.KlineFetcher = binance.NewClient(binance.Config{BaseURL: cfg.BinanceBaseURL, Timeout: cfg.UpstreamTimeout}, m)
		denylist model.TokenDenylist
		rc       *redisstore.Client
	)
	if cfg.RedisAddr != "" {
		rc, err = redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer rc.Close()
		rc.Breaker().OnStateChange = func(from, to redisstore.State) {
			m.RedisCircuitBreakerState.Set(float64(to))
			if to == redisstore.StateOpen {
				m.RedisCircuitBreakerTrips.Inc()
			}
			slog.Warn("redis circuit breaker", "from", from.String(), "to", to.String())
		}
		fetcher = binance.NewCachedFetcher(fetcher, redisstore.NewKlineCache(rc, cfg.KlineCacheTTL), m)
		denylist = redisstore.NewDenylist(rc)
	} else {
		slog.Info("redis disabled; kline cache off, in-memory token denylist")
		denylist = auth.NewMemoryDenylist()
	}

	health := metrics.NewHealthStatus(rc != nil)
	var rdb *goredis.Client
	if rc != nil {
		rdb = rc.Redis()
	}
	health.StartLivenessChecker(ctx, rdb, db.DB.DB, 15*time.Second)

	// Domain services
	engine, err := recommend.NewEngine(cfg.Strategy)
	if err != nil {
		return err
	}
	recs := sqlstore.NewRecommendations(db)
	favorites := sqlstore.NewFavorites(db)
	recommender := recommend.NewService(
		recommend.ServiceConfig{Interval: cfg.KlineInterval, Limit: cfg.KlineLimit},
		engine, fetcher, recs, m,
	)

	authSvc, err := auth.NewService(auth.Config{
		Secret:     cfg.JWTSecret,
		TokenTTL:   cfg.TokenTTL,
		TOTPIssuer: cfg.TOTPIssuer,
	}, sqlstore.NewUsers(db), denylist)
	if err != nil {
		return err
	}

	// Scheduled refresh
	if cfg.RefreshCron != "" {
		sched := scheduler.New(ctx, favorites, recommender, buildNotifier(cfg), m)
		if err := sched.Register(cfg.RefreshCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			Auth:        authSvc,
			Recommender: recommender,
			Favorites:   favorites,
			History:     recs,
			Health:      health,
			Metrics:     m,
			Gatherer:    reg,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	return srv.Shutdown(shCtx)
}

func buildNotifier(cfg *config.Config) notification.Notifier {
	var ns notification.Multi
	if cfg.WebhookURL != "" {
		ns = append(ns, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		ns = append(ns, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if len(ns) == 0 {
		return notification.NewLogNotifier(nil)
	}
	return ns
}
