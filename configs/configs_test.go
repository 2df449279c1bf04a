package configs

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.TZDisplay != "Europe/London" {
		t.Errorf("expected Europe/London, got %q", cfg.TZDisplay)
	}
	if len(cfg.Pairs) != 4 || cfg.Pairs[0] != "BTCUSDT" {
		t.Errorf("unexpected default pairs: %v", cfg.Pairs)
	}
	if len(cfg.SupportedTimeframes) != 5 || cfg.SupportedTimeframes[4] != "D" {
		t.Errorf("unexpected default timeframes: %v", cfg.SupportedTimeframes)
	}
	if cfg.Telegram.MaxRetries != 3 {
		t.Errorf("expected 3 max retries, got %d", cfg.Telegram.MaxRetries)
	}
	wantDelays := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(cfg.Telegram.RetryDelays) != len(wantDelays) {
		t.Fatalf("unexpected retry delays: %v", cfg.Telegram.RetryDelays)
	}
	for i, want := range wantDelays {
		if cfg.Telegram.RetryDelays[i] != want {
			t.Errorf("delay %d: got %v, want %v", i, cfg.Telegram.RetryDelays[i], want)
		}
	}
	if cfg.Redis.IdempotencyTTL != 7*24*time.Hour {
		t.Errorf("expected 7 day TTL, got %v", cfg.Redis.IdempotencyTTL)
	}
	if cfg.Email.PollInterval != time.Minute {
		t.Errorf("expected 60s poll interval, got %v", cfg.Email.PollInterval)
	}
	if cfg.Email.MaxPerCycle != 20 {
		t.Errorf("expected 20 per cycle, got %d", cfg.Email.MaxPerCycle)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("DEFAULT_PAIRS", "solusdt, dogeusdt")
	t.Setenv("TELEGRAM_MAX_RETRIES", "5")
	t.Setenv("TELEGRAM_RETRY_DELAYS", "0.5,1.5")
	t.Setenv("IDEMPOTENCY_TTL_DAYS", "1")
	t.Setenv("TELEGRAM_SYMBOL_CHAT_MAP", `{"BTCUSDT":"-100111"}`)
	t.Setenv("EMAIL_REQUIRE_SECRET", "true")

	cfg := Load()

	if cfg.ServerPort != "9999" {
		t.Errorf("port override ignored: %q", cfg.ServerPort)
	}
	if len(cfg.Pairs) != 2 || cfg.Pairs[0] != "SOLUSDT" || cfg.Pairs[1] != "DOGEUSDT" {
		t.Errorf("pairs not upper-cased and trimmed: %v", cfg.Pairs)
	}
	if cfg.Telegram.MaxRetries != 5 {
		t.Errorf("retries override ignored: %d", cfg.Telegram.MaxRetries)
	}
	if len(cfg.Telegram.RetryDelays) != 2 || cfg.Telegram.RetryDelays[0] != 500*time.Millisecond {
		t.Errorf("fractional delays not parsed: %v", cfg.Telegram.RetryDelays)
	}
	if cfg.Redis.IdempotencyTTL != 24*time.Hour {
		t.Errorf("TTL override ignored: %v", cfg.Redis.IdempotencyTTL)
	}
	if cfg.Telegram.SymbolChatMap["BTCUSDT"] != "-100111" {
		t.Errorf("symbol chat map not parsed: %v", cfg.Telegram.SymbolChatMap)
	}
	if !cfg.Email.RequireSecret {
		t.Errorf("email secret flag ignored")
	}
}

func TestLoadMalformedValuesFallBack(t *testing.T) {
	t.Setenv("TELEGRAM_MAX_RETRIES", "lots")
	t.Setenv("TELEGRAM_SYMBOL_CHAT_MAP", "not-json")
	t.Setenv("TELEGRAM_RETRY_DELAYS", "fast,slow")

	cfg := Load()

	if cfg.Telegram.MaxRetries != 3 {
		t.Errorf("expected default retries on bad int, got %d", cfg.Telegram.MaxRetries)
	}
	if len(cfg.Telegram.SymbolChatMap) != 0 {
		t.Errorf("expected empty map on bad JSON, got %v", cfg.Telegram.SymbolChatMap)
	}
	if len(cfg.Telegram.RetryDelays) != 3 {
		t.Errorf("expected default delays on bad schedule, got %v", cfg.Telegram.RetryDelays)
	}
}
