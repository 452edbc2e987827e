// cmd/recommend computes a single recommendation from the command line,
// either live from the exchange or offline from a file of closing prices.
// Nothing is persisted.
//
// Usage:
//
//	go run ./cmd/recommend --symbol=BTCUSDT
//	go run ./cmd/recommend --symbol=TEST --closes=prices.txt --strategy=strategy.yaml
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"investai/internal/logger"
	"investai/internal/marketdata/binance"
	"investai/internal/model"
	"investai/internal/recommend"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "Symbol to score")
	interval := flag.String("interval", recommend.DefaultInterval, "Kline interval")
	limit := flag.Int("limit", recommend.DefaultLimit, "Number of bars to fetch")
	closesPath := flag.String("closes", "", "Read closing prices from this file (one per line or comma-separated) instead of the exchange")
	strategyPath := flag.String("strategy", "", "YAML file overriding indicator periods and thresholds")
	baseURL := flag.String("base-url", binance.DefaultBaseURL, "Exchange REST base URL")
	timeout := flag.Duration("timeout", 10*time.Second, "Upstream timeout")
	verbose := flag.Bool("v", false, "Debug logging to stderr")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger.InitWriter(os.Stderr, "investai-recommend", level, "text")

	if err := run(*symbol, *interval, *limit, *closesPath, *strategyPath, *baseURL, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "recommend: %v (%s)\n", err, model.ErrorKind(err))
		os.Exit(1)
	}
}

func run(symbol, interval string, limit int, closesPath, strategyPath, baseURL string, timeout time.Duration) error {
	cfg := recommend.DefaultConfig()
	if strategyPath != "" {
		raw, err := os.ReadFile(strategyPath)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("parse %s: %w", strategyPath, err)
		}
	}
	engine, err := recommend.NewEngine(cfg)
	if err != nil {
		return err
	}

	sym, err := recommend.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}

	var closes []float64
	if closesPath != "" {
		closes, err = readCloses(closesPath)
		if err != nil {
			return err
		}
	} else {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		client := binance.NewClient(binance.Config{BaseURL: baseURL, Timeout: timeout}, nil)
		bars, err := client.FetchKlines(ctx, sym, interval, limit)
		if err != nil {
			return err
		}
		closes = model.Closes(bars)
	}

	rec, err := engine.Compute(sym, closes)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

// readCloses parses numbers separated by newlines, commas or spaces.
func readCloses(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []float64
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		fields := strings.FieldsFunc(sc.Text(), func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == ';'
		})
		for _, fld := range fields {
			v, err := strconv.ParseFloat(fld, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, line, err)
			}
			out = append(out, v)
		}
	}
	return out, sc.Err()
}
