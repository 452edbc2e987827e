// Package binance fetches historical klines from the Binance public REST API.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"investai/internal/logger"
	"investai/internal/metrics"
	"investai/internal/model"
	"investai/internal/trace"
)

const (
	DefaultBaseURL = "https://api.binance.com"
	klinesPath     = "/api/v3/klines"

	// codeInvalidSymbol is Binance's error code for an unknown symbol.
	codeInvalidSymbol = -1121

	maxBodyBytes = 4 << 20
)

// Config configures the REST client.
type Config struct {
	BaseURL string        // default: https://api.binance.com
	Timeout time.Duration // default: 10s
}

// Client is a minimal klines client. One request per call, no retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *metrics.Metrics
}

// NewClient creates a client. m may be nil.
func NewClient(cfg Config, m *metrics.Metrics) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		metrics:    m,
	}
}

// apiError is the body Binance sends with 4xx responses.
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// FetchKlines returns up to limit bars for symbol, oldest first.
func (c *Client) FetchKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Kline, error) {
	ctx, span := trace.StartSpan(ctx, "binance.FetchKlines")
	defer span.End()
	span.SetAttributes(
		attribute.String("symbol", symbol),
		attribute.String("interval", interval),
		attribute.Int("limit", limit),
	)

	start := time.Now()
	bars, err := c.fetch(ctx, symbol, interval, limit)
	if c.metrics != nil {
		c.metrics.UpstreamFetchDur.Observe(time.Since(start).Seconds())
		if err != nil {
			c.metrics.UpstreamErrorsTotal.WithLabelValues(string(model.ErrorKind(err))).Inc()
		}
	}
	if err != nil {
		trace.RecordError(span, err)
		logger.FromContext(ctx).Warn("kline fetch failed",
			"symbol", symbol, "interval", interval, "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("bars", len(bars)))
	return bars, nil
}

func (c *Client) fetch(ctx context.Context, symbol, interval string, limit int) ([]model.Kline, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+klinesPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "InvestAI/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrUpstreamUnavailable, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", model.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if resp.StatusCode == http.StatusBadRequest &&
			json.Unmarshal(body, &apiErr) == nil && apiErr.Code == codeInvalidSymbol {
			return nil, fmt.Errorf("%w: %s", model.ErrInvalidSymbol, symbol)
		}
		slog.Debug("binance non-200", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: status %d", model.ErrUpstreamUnavailable, resp.StatusCode)
	}

	bars, err := parseKlines(body, symbol, interval)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s: no bars", model.ErrInvalidSymbol, symbol)
	}
	return bars, nil
}

// parseKlines decodes the array-of-arrays payload:
// [openTime, open, high, low, close, volume, closeTime, ...]
// Prices arrive as decimal strings, times as epoch milliseconds.
func parseKlines(body []byte, symbol, interval string) ([]model.Kline, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	bars := make([]model.Kline, 0, len(rows))
	for i, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("row %d: %d fields", i, len(row))
		}
		var (
			k   = model.Kline{Symbol: symbol, Interval: interval}
			err error
		)
		if k.OpenTime, err = millis(row[0]); err != nil {
			return nil, fmt.Errorf("row %d open time: %w", i, err)
		}
		for j, dst := range []*float64{&k.Open, &k.High, &k.Low, &k.Close, &k.Volume} {
			if *dst, err = decimalString(row[1+j]); err != nil {
				return nil, fmt.Errorf("row %d field %d: %w", i, 1+j, err)
			}
		}
		if k.CloseTime, err = millis(row[6]); err != nil {
			return nil, fmt.Errorf("row %d close time: %w", i, err)
		}
		if i > 0 && !k.OpenTime.After(bars[i-1].OpenTime) {
			return nil, errors.New("bars out of order")
		}
		bars = append(bars, k)
	}
	return bars, nil
}

func millis(raw json.RawMessage) (time.Time, error) {
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func decimalString(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}
