package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the recommendation service.
type Metrics struct {
	// HTTP surface
	HTTPRequestsTotal *prometheus.CounterVec   // labels: route, method, status
	HTTPDuration      *prometheus.HistogramVec // labels: route

	// Recommendation engine
	RecommendationsTotal *prometheus.CounterVec // labels: signal
	RecommendErrorsTotal *prometheus.CounterVec // labels: kind
	RecommendDur         prometheus.Histogram

	// Upstream market data
	UpstreamFetchDur    prometheus.Histogram
	UpstreamErrorsTotal *prometheus.CounterVec // labels: kind

	// Kline cache
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// Scheduler
	RefreshRunsTotal    prometheus.Counter
	RefreshSymbolsTotal *prometheus.CounterVec // labels: outcome=ok|error
}

// NewMetrics creates all metrics and registers them on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "investai_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "investai_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		RecommendationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "investai_recommendations_total",
			Help: "Recommendations computed, by signal",
		}, []string{"signal"}),
		RecommendErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "investai_recommendation_errors_total",
			Help: "Failed recommendation requests, by error kind",
		}, []string{"kind"}),
		RecommendDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "investai_recommendation_duration_seconds",
			Help:    "End-to-end recommendation latency (fetch + compute + append)",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		UpstreamFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "investai_upstream_fetch_duration_seconds",
			Help:    "Exchange kline request latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		UpstreamErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "investai_upstream_errors_total",
			Help: "Exchange kline request failures, by error kind",
		}, []string{"kind"}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "investai_kline_cache_hits_total",
			Help: "Kline requests served from Redis",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "investai_kline_cache_misses_total",
			Help: "Kline requests that went to the exchange",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "investai_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "investai_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		RefreshRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "investai_refresh_runs_total",
			Help: "Scheduled favorites refresh runs",
		}),
		RefreshSymbolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "investai_refresh_symbols_total",
			Help: "Symbols processed by scheduled refresh, by outcome",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPDuration,
		m.RecommendationsTotal,
		m.RecommendErrorsTotal,
		m.RecommendDur,
		m.UpstreamFetchDur,
		m.UpstreamErrorsTotal,
		m.CacheHits,
		m.CacheMisses,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.RefreshRunsTotal,
		m.RefreshSymbolsTotal,
	)

	return m
}

// Handler returns the /metrics handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// HealthStatus represents dependency health for /api/health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisEnabled   bool
	RedisConnected bool
	DBOK           bool

	// Liveness probe results
	RedisLatencyMs float64
	DBLatencyMs    float64
	LastCheckAt    time.Time
	StartedAt      time.Time
}

// NewHealthStatus returns a default health status. The database is assumed
// healthy until the first probe says otherwise.
func NewHealthStatus(redisEnabled bool) *HealthStatus {
	return &HealthStatus{
		RedisEnabled:   redisEnabled,
		RedisConnected: redisEnabled,
		DBOK:           true,
		StartedAt:      time.Now(),
	}
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckDB pings the database and records latency + health.
func (h *HealthStatus) CheckDB(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.DBOK = err == nil
	h.DBLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if db != nil {
					h.CheckDB(probeCtx, db)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the health endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "ok"
	httpCode := http.StatusOK

	if !h.DBOK {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	} else if h.RedisEnabled && !h.RedisConnected {
		// Redis only backs the cache and the denylist fallback path.
		overallStatus = "degraded"
	}

	status := struct {
		Status         string  `json:"status"`
		Uptime         string  `json:"uptime"`
		DBOK           bool    `json:"db_ok"`
		DBLatencyMs    float64 `json:"db_latency_ms"`
		RedisEnabled   bool    `json:"redis_enabled"`
		RedisConnected bool    `json:"redis_connected"`
		RedisLatencyMs float64 `json:"redis_latency_ms"`
		LastCheckAt    string  `json:"last_check_at,omitempty"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		DBOK:           h.DBOK,
		DBLatencyMs:    h.DBLatencyMs,
		RedisEnabled:   h.RedisEnabled,
		RedisConnected: h.RedisConnected,
		RedisLatencyMs: h.RedisLatencyMs,
	}
	if !h.LastCheckAt.IsZero() {
		status.LastCheckAt = h.LastCheckAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}
