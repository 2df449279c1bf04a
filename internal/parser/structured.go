package parser

import (
	"encoding/json"
	"strings"

	"github.com/walidk/tvrelay/internal/model"
)

// webhookPayload mirrors the webhook JSON body. Pointer fields distinguish
// absent keys from zero values.
type webhookPayload struct {
	Event     *string  `json:"event"`
	Symbol    *string  `json:"symbol"`
	Timeframe *string  `json:"timeframe"`
	BarTime   *int64   `json:"bar_time"`
	Entry     *float64 `json:"entry"`
	Stop      *float64 `json:"stop"`
	Target    *float64 `json:"target"`
	RR        *float64 `json:"rr"`
	SignalID  *string  `json:"signal_id"`
}

// Structured parses the webhook JSON payload.
type Structured struct {
	validator *Validator
}

func NewStructured(validator *Validator) *Structured {
	return &Structured{validator: validator}
}

// Parse decodes and validates a webhook body, returning a normalized
// signal record. Any missing key, type mismatch, or invariant violation
// yields a *ValidationError.
func (p *Structured) Parse(raw []byte) (model.Signal, error) {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.Signal{}, &ValidationError{Reason: "invalid JSON payload"}
	}

	required := []struct {
		name string
		ok   bool
	}{
		{"event", payload.Event != nil},
		{"symbol", payload.Symbol != nil},
		{"timeframe", payload.Timeframe != nil},
		{"bar_time", payload.BarTime != nil},
		{"entry", payload.Entry != nil},
		{"stop", payload.Stop != nil},
		{"target", payload.Target != nil},
		{"rr", payload.RR != nil},
		{"signal_id", payload.SignalID != nil},
	}
	for _, field := range required {
		if !field.ok {
			return model.Signal{}, &ValidationError{Field: field.name, Reason: "missing required field"}
		}
	}

	sig := model.Signal{
		SignalID:  *payload.SignalID,
		Symbol:    strings.ToUpper(strings.TrimSpace(*payload.Symbol)),
		Timeframe: *payload.Timeframe,
		Event:     *payload.Event,
		BarTime:   *payload.BarTime,
		Entry:     *payload.Entry,
		Stop:      *payload.Stop,
		Target:    *payload.Target,
		RR:        *payload.RR,
	}

	if err := p.validator.Validate(sig); err != nil {
		return model.Signal{}, err
	}
	return sig, nil
}
