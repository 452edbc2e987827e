// Package notification delivers recommendation alerts to external channels
// (Telegram, generic webhooks) or the log.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"investai/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Symbol  string     `json:"symbol,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// AlertFromRecommendation describes a directional recommendation.
// Wait produces a zero Alert and ok=false.
func AlertFromRecommendation(rec model.Recommendation) (alert Alert, ok bool) {
	if rec.Signal != model.SignalBuy && rec.Signal != model.SignalSell {
		return Alert{}, false
	}
	ind := rec.Indicators
	return Alert{
		Level:  AlertInfo,
		Title:  fmt.Sprintf("%s %s (%.2f%%)", rec.Symbol, rec.Signal, rec.Confidence),
		Symbol: rec.Symbol,
		Message: fmt.Sprintf("Price %.2f | RSI %.2f | MACD %.2f | SMA %.2f | %s",
			ind.Price, ind.RSI, ind.MACD, ind.SMA, rec.Timestamp.UTC().Format("2006-01-02 15:04 MST")),
	}, true
}

// LogNotifier logs alerts. It is the default when no channel is configured.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-based notifier. A nil logger uses slog.Default.
func NewLogNotifier(l *slog.Logger) *LogNotifier {
	if l == nil {
		l = slog.Default()
	}
	return &LogNotifier{log: l}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	n.log.InfoContext(ctx, "alert",
		"level", alert.Level,
		"title", alert.Title,
		"message", alert.Message,
	)
	return nil
}

// Multi fans an alert out to every notifier. All are attempted; their
// errors are joined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
