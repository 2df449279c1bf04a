package pairs

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"

	"github.com/walidk/tvrelay/internal/store"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	st := store.NewRedisStore(store.RedisConfig{Addr: m.Addr(), TTL: time.Hour})
	t.Cleanup(func() { st.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewService(st, []string{"BTCUSDT", "ETHUSDT"}, logger), m
}

func TestEnabledDefaultsWhenUnset(t *testing.T) {
	s, _ := newTestService(t)

	symbols, err := s.Enabled(context.Background())
	if err != nil {
		t.Fatalf("enabled failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "BTCUSDT" || symbols[1] != "ETHUSDT" {
		t.Fatalf("unexpected defaults: %v", symbols)
	}
}

func TestEnabledFallsBackOnStoreFault(t *testing.T) {
	s, m := newTestService(t)
	m.Close()

	symbols, err := s.Enabled(context.Background())
	if err != nil {
		t.Fatalf("expected fallback, got error %v", err)
	}
	if len(symbols) != 2 {
		t.Fatalf("expected configured defaults, got %v", symbols)
	}
}

func TestAddAndRemove(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	if err := s.Add(ctx, " adausdt ", "walid"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	symbols, err := s.Enabled(ctx)
	if err != nil {
		t.Fatalf("enabled failed: %v", err)
	}
	if !containsSymbol(symbols, "ADAUSDT") {
		t.Fatalf("added pair missing from enabled set: %v", symbols)
	}

	removed, err := s.Remove(ctx, "ADAUSDT")
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if !removed {
		t.Fatalf("expected known pair to be removed")
	}

	symbols, _ = s.Enabled(ctx)
	if containsSymbol(symbols, "ADAUSDT") {
		t.Fatalf("removed pair still enabled: %v", symbols)
	}

	// Disabled entries stay listed for audit.
	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	found := false
	for _, entry := range entries {
		if entry.Symbol == "ADAUSDT" {
			found = true
			if entry.Enabled {
				t.Fatalf("expected ADAUSDT disabled: %+v", entry)
			}
			if entry.AddedBy != "walid" {
				t.Fatalf("audit field lost: %+v", entry)
			}
		}
	}
	if !found {
		t.Fatalf("disabled pair dropped from list")
	}
}

func TestRemoveUnknownPair(t *testing.T) {
	s, _ := newTestService(t)

	removed, err := s.Remove(context.Background(), "DOGEUSDT")
	if err != nil {
		t.Fatalf("remove errored: %v", err)
	}
	if removed {
		t.Fatalf("expected unknown pair to report not found")
	}
}

func TestAddEmptySymbol(t *testing.T) {
	s, _ := newTestService(t)

	if err := s.Add(context.Background(), "  ", "walid"); err == nil {
		t.Fatalf("expected error for empty symbol")
	}
}

func TestAddReenablesExisting(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	if _, err := s.Remove(ctx, "BTCUSDT"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := s.Add(ctx, "BTCUSDT", "walid"); err != nil {
		t.Fatalf("re-add failed: %v", err)
	}

	symbols, _ := s.Enabled(ctx)
	if !containsSymbol(symbols, "BTCUSDT") {
		t.Fatalf("expected BTCUSDT re-enabled: %v", symbols)
	}
}

func containsSymbol(list []string, symbol string) bool {
	for _, item := range list {
		if item == symbol {
			return true
		}
	}
	return false
}
