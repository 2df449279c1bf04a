// Package model defines the canonical signal record shared by both
// ingestion paths and the persisted form stored for idempotency.
package model

import "time"

// EventEMABounceBuy is the only alert event the relay currently accepts.
// The email format does not carry an event field, so the free-text parser
// synthesizes this value.
const EventEMABounceBuy = "EMA_BOUNCE_BUY"

// Signal is a single trading alert, normalized from either the webhook
// payload or an email body. Records are immutable once a parser has
// produced them.
type Signal struct {
	SignalID  string  `json:"signal_id"`
	Symbol    string  `json:"symbol"`
	Timeframe string  `json:"timeframe"`
	Event     string  `json:"event"`
	BarTime   int64   `json:"bar_time"`
	Entry     float64 `json:"entry"`
	Stop      float64 `json:"stop"`
	Target    float64 `json:"target"`
	RR        float64 `json:"rr"`
}

// StoredSignal is the superset record persisted in the idempotency store.
// The delivery fields are zeroed on reserve and mutated only through the
// store by the delivery engine.
type StoredSignal struct {
	Signal

	TelegramSent  bool    `json:"telegram_sent"`
	TelegramError *string `json:"telegram_error"`
	RetryCount    int     `json:"retry_count"`
	CreatedAtUTC  string  `json:"created_at_utc"`
	SentAtUTC     *string `json:"sent_at_utc"`
	ChatID        *string `json:"chat_id"`
}

// NewStoredSignal wraps a freshly parsed signal with defaulted delivery
// status, stamped with the current UTC time.
func NewStoredSignal(sig Signal) StoredSignal {
	return StoredSignal{
		Signal:       sig,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339),
	}
}
