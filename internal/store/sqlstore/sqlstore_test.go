package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"investai/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, users *Users, id, email string) *model.User {
	t.Helper()
	u := &model.User{ID: id, Email: email, PasswordHash: "hash"}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create %s: %v", email, err)
	}
	return u
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpen_FileCreatesDirAndIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "investai.db")
	ctx := context.Background()

	db, err := Open(ctx, DriverSQLite, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	createUser(t, NewUsers(db), "u1", "a@b.c")
	db.Close()

	db, err = Open(ctx, DriverSQLite, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if _, err := NewUsers(db).FindByEmail(ctx, "a@b.c"); err != nil {
		t.Errorf("user lost across reopen: %v", err)
	}
}

func TestUsers_CreateAndFind(t *testing.T) {
	users := NewUsers(openTestDB(t))
	ctx := context.Background()
	createUser(t, users, "u1", "alice@example.com")

	u, err := users.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if u.ID != "u1" || u.PasswordHash != "hash" || u.TOTPEnabled {
		t.Errorf("unexpected user %+v", u)
	}
	if u.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}

	if _, err := users.FindByID(ctx, "u1"); err != nil {
		t.Errorf("find by id: %v", err)
	}
	if _, err := users.FindByID(ctx, "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUsers_DuplicateEmail(t *testing.T) {
	users := NewUsers(openTestDB(t))
	createUser(t, users, "u1", "alice@example.com")

	err := users.Create(context.Background(), &model.User{ID: "u2", Email: "alice@example.com", PasswordHash: "h"})
	if !errors.Is(err, model.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUsers_SetTOTP(t *testing.T) {
	users := NewUsers(openTestDB(t))
	ctx := context.Background()
	createUser(t, users, "u1", "alice@example.com")

	if err := users.SetTOTP(ctx, "u1", "SECRET", true); err != nil {
		t.Fatalf("set totp: %v", err)
	}
	u, _ := users.FindByID(ctx, "u1")
	if u.TOTPSecret != "SECRET" || !u.TOTPEnabled {
		t.Errorf("totp not stored: %+v", u)
	}

	if err := users.SetTOTP(ctx, "ghost", "x", false); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFavorites(t *testing.T) {
	db := openTestDB(t)
	users := NewUsers(db)
	favs := NewFavorites(db)
	ctx := context.Background()
	createUser(t, users, "u1", "a@x.io")
	createUser(t, users, "u2", "b@x.io")

	for _, s := range []string{"ETHUSDT", "BTCUSDT", "ETHUSDT"} {
		if err := favs.Add(ctx, "u1", s); err != nil {
			t.Fatalf("add %s: %v", s, err)
		}
	}
	favs.Add(ctx, "u2", "SOLUSDT")
	favs.Add(ctx, "u2", "BTCUSDT")

	got, err := favs.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0] != "BTCUSDT" || got[1] != "ETHUSDT" {
		t.Errorf("expected [BTCUSDT ETHUSDT], got %v", got)
	}

	all, _ := favs.Symbols(ctx)
	if len(all) != 3 {
		t.Errorf("expected 3 distinct symbols, got %v", all)
	}

	if err := favs.Remove(ctx, "u1", "BTCUSDT"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got, _ = favs.List(ctx, "u1")
	if len(got) != 1 || got[0] != "ETHUSDT" {
		t.Errorf("expected [ETHUSDT], got %v", got)
	}

	empty, _ := favs.List(ctx, "nobody")
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestRecommendations_AppendAndList(t *testing.T) {
	recs := NewRecommendations(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	add := func(id, user, symbol string, minute int, sig model.Signal) {
		t.Helper()
		err := recs.Append(ctx, model.Recommendation{
			ID: id, UserID: user, Symbol: symbol, Signal: sig, Confidence: 66.67,
			Timestamp:  base.Add(time.Duration(minute) * time.Minute),
			Indicators: model.IndicatorSnapshot{RSI: 70.5, MACD: -0.12, SMA: 101.25, Price: 102},
		})
		if err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
	add("r1", "u1", "BTCUSDT", 0, model.SignalBuy)
	add("r2", "u1", "ETHUSDT", 1, model.SignalSell)
	add("r3", "u1", "BTCUSDT", 2, model.SignalWait)
	add("r4", "u2", "BTCUSDT", 3, model.SignalBuy)

	got, err := recs.ListByUser(ctx, "u1", "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].ID != "r3" || got[2].ID != "r1" {
		t.Fatalf("expected newest first [r3 r2 r1], got %v", ids(got))
	}
	r := got[2]
	if r.Signal != model.SignalBuy || r.Confidence != 66.67 || r.Indicators.SMA != 101.25 || r.Indicators.MACD != -0.12 {
		t.Errorf("round trip mismatch: %+v", r)
	}
	if !r.Timestamp.Equal(base) {
		t.Errorf("timestamp %v, want %v", r.Timestamp, base)
	}

	btc, _ := recs.ListByUser(ctx, "u1", "BTCUSDT", 1)
	if len(btc) != 1 || btc[0].ID != "r3" {
		t.Errorf("expected [r3], got %v", ids(btc))
	}
}

func TestRecommendations_DuplicateIDRejected(t *testing.T) {
	recs := NewRecommendations(openTestDB(t))
	ctx := context.Background()
	rec := model.Recommendation{ID: "r1", Symbol: "BTCUSDT", Signal: model.SignalWait, Timestamp: time.Now()}

	if err := recs.Append(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := recs.Append(ctx, rec); err == nil {
		t.Error("expected duplicate id to fail; the log is insert-only")
	}
	if err := recs.Append(ctx, model.Recommendation{Symbol: "X"}); !errors.Is(err, model.ErrBadRequest) {
		t.Errorf("expected ErrBadRequest for missing id, got %v", err)
	}
	if err := recs.Append(ctx, model.Recommendation{ID: "r2", Symbol: "X", Signal: "compra"}); !errors.Is(err, model.ErrBadRequest) {
		t.Errorf("expected ErrBadRequest for unknown signal, got %v", err)
	}
}

func TestRecommendations_ListRejectsUnknownStoredSignal(t *testing.T) {
	db := openTestDB(t)
	recs := NewRecommendations(db)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO recommendations (id, user_id, symbol, signal, confidence, ts, rsi, macd, sma, price)
		VALUES ('bad', 'u1', 'BTCUSDT', 'compra', 50, 1, 0, 0, 0, 0)`)
	if err != nil {
		t.Fatalf("seed row: %v", err)
	}
	if _, err := recs.ListByUser(ctx, "u1", "", 0); err == nil {
		t.Error("expected an error for a stored row with an unknown signal")
	}
}

func ids(recs []model.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
