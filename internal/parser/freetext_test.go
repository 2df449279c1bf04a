package parser

import (
	"errors"
	"testing"
	"time"
)

func TestFreeTextParseHappyPath(t *testing.T) {
	p := NewFreeText(FreeTextConfig{}, testValidator())

	body := "TradingView Alert:\naction:ENTRY|symbol:ETHUSDT|tf:60|entry:4787.12|stop:4720.45|target:4987.13|rr:3|signal_id:ETHUSDT_60_1\nUnsubscribe here."
	sig, err := p.Parse(body)
	if err != nil {
		t.Fatalf("expected valid signal, got %v", err)
	}
	if sig.Symbol != "ETHUSDT" {
		t.Fatalf("expected symbol ETHUSDT, got %q", sig.Symbol)
	}
	if sig.Entry != 4787.12 {
		t.Fatalf("expected entry 4787.12, got %v", sig.Entry)
	}
	if sig.RR != 3.0 {
		t.Fatalf("expected rr 3.0, got %v", sig.RR)
	}
	if sig.Timeframe != "60" {
		t.Fatalf("expected timeframe 60, got %q", sig.Timeframe)
	}
	if sig.Event != "EMA_BOUNCE_BUY" {
		t.Fatalf("expected synthesized event, got %q", sig.Event)
	}
	if sig.SignalID != "ETHUSDT_60_1" {
		t.Fatalf("unexpected signal id %q", sig.SignalID)
	}
}

func TestFreeTextParseDefaultsBarTime(t *testing.T) {
	p := NewFreeText(FreeTextConfig{}, testValidator())
	fixed := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	sig, err := p.Parse("action:ENTRY|symbol:ETHUSDT|tf:60|entry:100|stop:95|target:115|rr:3|signal_id:S1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.BarTime != fixed.UnixMilli() {
		t.Fatalf("expected defaulted bar time %d, got %d", fixed.UnixMilli(), sig.BarTime)
	}
}

func TestFreeTextParseExplicitBarTime(t *testing.T) {
	p := NewFreeText(FreeTextConfig{}, testValidator())

	sig, err := p.Parse("action:ENTRY|symbol:ETHUSDT|tf:60|entry:100|stop:95|target:115|rr:3|signal_id:S1|bar_time:1734567890000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.BarTime != 1734567890000 {
		t.Fatalf("expected explicit bar time, got %d", sig.BarTime)
	}
}

func TestFreeTextParseMissingRequiredField(t *testing.T) {
	p := NewFreeText(FreeTextConfig{}, testValidator())

	_, err := p.Parse("action:ENTRY|symbol:ETHUSDT|tf:60|entry:100|stop:95|target:115|rr:3")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError for missing signal_id, got %v", err)
	}
	if validationErr.Field != "signal_id" {
		t.Fatalf("expected signal_id field, got %q", validationErr.Field)
	}
}

func TestFreeTextParseNoMarker(t *testing.T) {
	p := NewFreeText(FreeTextConfig{}, testValidator())

	if _, err := p.Parse("Your daily portfolio summary is ready."); !errors.Is(err, ErrNoSignal) {
		t.Fatalf("expected ErrNoSignal, got %v", err)
	}
}

func TestFreeTextParseSecret(t *testing.T) {
	p := NewFreeText(FreeTextConfig{RequireSecret: true, Secret: "hush"}, testValidator())

	base := "action:ENTRY|symbol:ETHUSDT|tf:60|entry:100|stop:95|target:115|rr:3|signal_id:S1"

	if _, err := p.Parse(base); !errors.Is(err, ErrSecretMismatch) {
		t.Fatalf("expected ErrSecretMismatch for missing secret, got %v", err)
	}
	if _, err := p.Parse(base + "|secret:wrong"); !errors.Is(err, ErrSecretMismatch) {
		t.Fatalf("expected ErrSecretMismatch for wrong secret, got %v", err)
	}
	if _, err := p.Parse(base + "|secret:hush"); err != nil {
		t.Fatalf("expected matching secret to pass, got %v", err)
	}
}

func TestFreeTextParseUsesFirstMatchOnly(t *testing.T) {
	p := NewFreeText(FreeTextConfig{}, testValidator())

	body := "action:ENTRY|symbol:ETHUSDT|tf:60|entry:100|stop:95|target:115|rr:3|signal_id:FIRST\n" +
		"action:ENTRY|symbol:BTCUSDT|tf:15|entry:200|stop:190|target:230|rr:3|signal_id:SECOND"
	sig, err := p.Parse(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.SignalID != "FIRST" {
		t.Fatalf("expected first match to win, got %q", sig.SignalID)
	}
}

func TestFreeTextParseBadNumber(t *testing.T) {
	p := NewFreeText(FreeTextConfig{}, testValidator())

	_, err := p.Parse("action:ENTRY|symbol:ETHUSDT|tf:60|entry:abc|stop:95|target:115|rr:3|signal_id:S1")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}
