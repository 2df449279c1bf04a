// Package parser turns raw webhook payloads and email bodies into
// validated signal records. Both paths funnel through a single Validator
// so the record invariants are enforced in exactly one place.
package parser

import (
	"fmt"

	"github.com/walidk/tvrelay/internal/model"
)

// ValidationError reports malformed or out-of-policy input. It is never
// retried; webhook submitters see it as a 400-class response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validator checks a signal record against the configured policy sets and
// the long-only price invariants.
type Validator struct {
	timeframes map[string]struct{}
	events     map[string]struct{}
}

// NewValidator builds a Validator from the configured supported-timeframe
// and allowed-event lists.
func NewValidator(timeframes, events []string) *Validator {
	v := &Validator{
		timeframes: make(map[string]struct{}, len(timeframes)),
		events:     make(map[string]struct{}, len(events)),
	}
	for _, tf := range timeframes {
		v.timeframes[tf] = struct{}{}
	}
	for _, ev := range events {
		v.events[ev] = struct{}{}
	}
	return v
}

// Validate enforces the record invariants: positive prices, stop below
// entry, target above entry (long-only), supported timeframe and allowed
// event. The symbol is expected to be normalized already.
func (v *Validator) Validate(sig model.Signal) error {
	if sig.SignalID == "" {
		return &ValidationError{Field: "signal_id", Reason: "must not be empty"}
	}
	if sig.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if sig.Entry <= 0 {
		return &ValidationError{Field: "entry", Reason: "must be a positive number"}
	}
	if sig.Stop <= 0 {
		return &ValidationError{Field: "stop", Reason: "must be a positive number"}
	}
	if sig.Target <= 0 {
		return &ValidationError{Field: "target", Reason: "must be a positive number"}
	}
	if sig.RR <= 0 {
		return &ValidationError{Field: "rr", Reason: "must be a positive number"}
	}
	if sig.Stop >= sig.Entry {
		return &ValidationError{Field: "stop", Reason: "stop loss must be below entry price for long positions"}
	}
	if sig.Target <= sig.Entry {
		return &ValidationError{Field: "target", Reason: "target must be above entry price for long positions"}
	}
	if _, ok := v.timeframes[sig.Timeframe]; !ok {
		return &ValidationError{Field: "timeframe", Reason: fmt.Sprintf("unsupported timeframe %q", sig.Timeframe)}
	}
	if _, ok := v.events[sig.Event]; !ok {
		return &ValidationError{Field: "event", Reason: fmt.Sprintf("invalid event type %q", sig.Event)}
	}
	return nil
}
