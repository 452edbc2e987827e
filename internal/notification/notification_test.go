package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"investai/internal/model"
)

func sampleRec(sig model.Signal) model.Recommendation {
	return model.Recommendation{
		Symbol:     "BTCUSDT",
		Signal:     sig,
		Confidence: 66.67,
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Indicators: model.IndicatorSnapshot{RSI: 100, MACD: 0.88, SMA: 117.24, Price: 150},
	}
}

func TestAlertFromRecommendation(t *testing.T) {
	a, ok := AlertFromRecommendation(sampleRec(model.SignalBuy))
	if !ok {
		t.Fatal("expected alert for Buy")
	}
	if a.Level != AlertInfo || a.Symbol != "BTCUSDT" || a.Title != "BTCUSDT Buy (66.67%)" {
		t.Errorf("unexpected alert %+v", a)
	}
	if !strings.Contains(a.Message, "RSI 100.00") || !strings.Contains(a.Message, "2024-05-01 12:00 UTC") {
		t.Errorf("unexpected message %q", a.Message)
	}

	if _, ok := AlertFromRecommendation(sampleRec(model.SignalSell)); !ok {
		t.Error("expected alert for Sell")
	}
	if _, ok := AlertFromRecommendation(sampleRec(model.SignalWait)); ok {
		t.Error("Wait must not alert")
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	n.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	alert, _ := AlertFromRecommendation(sampleRec(model.SignalBuy))
	if err := n.Send(context.Background(), alert); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Title != alert.Title || got.Symbol != "BTCUSDT" || got.TS != "2024-05-01T00:00:00Z" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Title: "x"}); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestTelegramNotifier(t *testing.T) {
	var path string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.baseURL = srv.URL
	if err := n.Send(context.Background(), Alert{Title: "BTCUSDT Sell (66.67%)", Message: "Price 1.5"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("unexpected path %q", path)
	}
	if body["chat_id"] != "42" || body["parse_mode"] != "MarkdownV2" {
		t.Errorf("unexpected body %v", body)
	}
	text, _ := body["text"].(string)
	if !strings.HasPrefix(text, "📉") || !strings.Contains(text, `\(66\.67%\)`) || !strings.Contains(text, `1\.5`) {
		t.Errorf("unexpected text %q", text)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	got := escapeMarkdown("a_b*c[d](e)~`>#+-=|{}.!")
	want := `a\_b\*c\[d\]\(e\)\~\` + "`" + `\>\#\+\-\=\|\{\}\.\!`
	if got != want {
		t.Errorf("escapeMarkdown = %q, want %q", got, want)
	}
	if escapeMarkdown("Preço") != "Preço" {
		t.Error("non-ASCII must pass through")
	}
}

type recordingNotifier struct {
	alerts []Alert
	err    error
}

func (r *recordingNotifier) Send(_ context.Context, a Alert) error {
	r.alerts = append(r.alerts, a)
	return r.err
}

func TestMulti(t *testing.T) {
	a := &recordingNotifier{err: errors.New("a down")}
	b := &recordingNotifier{}
	err := Multi{a, b}.Send(context.Background(), Alert{Title: "t"})

	if err == nil || !strings.Contains(err.Error(), "a down") {
		t.Errorf("expected joined error, got %v", err)
	}
	if len(a.alerts) != 1 || len(b.alerts) != 1 {
		t.Error("every notifier must be attempted")
	}
	if err := (Multi{}).Send(context.Background(), Alert{}); err != nil {
		t.Errorf("empty Multi: %v", err)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(io.Writer(&buf), nil)))
	n.Send(context.Background(), Alert{Level: AlertInfo, Title: "BTCUSDT Buy"})
	if !strings.Contains(buf.String(), `"title":"BTCUSDT Buy"`) {
		t.Errorf("unexpected log %s", buf.String())
	}
}
