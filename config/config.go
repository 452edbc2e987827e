package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"investai/internal/recommend"
)

// Config holds all application configuration loaded from the environment.
type Config struct {
	HTTPAddr string

	// Storage
	DBDriver string
	DBDSN    string

	// Redis (empty addr disables the kline cache and uses the in-memory denylist)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KlineCacheTTL time.Duration

	// Market data
	BinanceBaseURL  string
	UpstreamTimeout time.Duration
	KlineInterval   string
	KlineLimit      int

	// Auth
	JWTSecret  string
	TokenTTL   time.Duration
	TOTPIssuer string

	// Scheduled refresh (six-field cron spec, empty disables)
	RefreshCron string

	// Notifications
	WebhookURL       string
	TelegramBotToken string
	TelegramChatID   string

	// Logging / tracing
	LogLevel       string
	LogFormat      string
	TracingEnabled bool

	// Strategy
	StrategyFile string
	Strategy     recommend.Config
}

// Load reads .env if present, then the environment, then the strategy file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables only (plus the
// strategy file they point at).
func FromEnv() (*Config, error) {
	c := &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),

		DBDriver: getEnv("DB_DRIVER", "sqlite3"),
		DBDSN:    getEnv("DB_DSN", "data/investai.db"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		BinanceBaseURL: getEnv("BINANCE_BASE_URL", "https://api.binance.com"),
		KlineInterval:  getEnv("KLINE_INTERVAL", recommend.DefaultInterval),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		TOTPIssuer: getEnv("TOTP_ISSUER", "InvestAI"),

		RefreshCron: getEnv("REFRESH_CRON", ""),

		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		StrategyFile: getEnv("STRATEGY_FILE", ""),
		Strategy:     recommend.DefaultConfig(),
	}

	var err error
	if c.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if c.KlineCacheTTL, err = getSeconds("KLINE_CACHE_TTL_SEC", 30); err != nil {
		return nil, err
	}
	if c.UpstreamTimeout, err = getSeconds("UPSTREAM_TIMEOUT_SEC", 10); err != nil {
		return nil, err
	}
	if c.KlineLimit, err = getInt("KLINE_LIMIT", recommend.DefaultLimit); err != nil {
		return nil, err
	}
	ttlMin, err := getInt("TOKEN_TTL_MIN", 60)
	if err != nil {
		return nil, err
	}
	c.TokenTTL = time.Duration(ttlMin) * time.Minute
	if c.TracingEnabled, err = getBool("LOG_TRACING_ENABLED", false); err != nil {
		return nil, err
	}

	if c.StrategyFile != "" {
		if err := c.loadStrategy(c.StrategyFile); err != nil {
			return nil, err
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// strategyFile is the YAML layout of STRATEGY_FILE. Absent keys keep
// their current values.
type strategyFile struct {
	Interval         string `yaml:"interval"`
	Limit            int    `yaml:"limit"`
	recommend.Config `yaml:",inline"`
}

func (c *Config) loadStrategy(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read strategy file: %w", err)
	}
	sf := strategyFile{Interval: c.KlineInterval, Limit: c.KlineLimit, Config: c.Strategy}
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return fmt.Errorf("parse strategy file %s: %w", path, err)
	}
	c.KlineInterval, c.KlineLimit, c.Strategy = sf.Interval, sf.Limit, sf.Config
	slog.Info("strategy loaded", "file", path)
	return nil
}

// Validate checks required keys and value ranges.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.DBDriver != "sqlite3" && c.DBDriver != "postgres" {
		return fmt.Errorf("config: DB_DRIVER must be sqlite3 or postgres, got %q", c.DBDriver)
	}
	if c.KlineLimit < c.Strategy.MinBars() || c.KlineLimit > 1000 {
		return fmt.Errorf("config: KLINE_LIMIT must be within [%d,1000], got %d", c.Strategy.MinBars(), c.KlineLimit)
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: TOKEN_TTL_MIN must be positive")
	}
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("config: strategy: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer", key, v)
	}
	return n, nil
}

func getSeconds(key string, fallback int) (time.Duration, error) {
	n, err := getInt(key, fallback)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %d", key, n)
	}
	return time.Duration(n) * time.Second, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s=%q is not a boolean", key, v)
	}
	return b, nil
}
