// Package pipeline composes parsing, deduplication, persistence and
// delivery hand-off for each inbound signal. Every signal is processed in
// isolation: one bad input never blocks others in the same batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/walidk/tvrelay/internal/metrics"
	"github.com/walidk/tvrelay/internal/model"
	"github.com/walidk/tvrelay/internal/parser"
	"github.com/walidk/tvrelay/internal/store"
)

// Source tags where a signal entered the pipeline.
type Source string

const (
	SourceWebhook Source = "webhook"
	SourceEmail   Source = "email"
)

// Outcome is the submitter-visible result for an accepted-or-duplicate
// submission. Duplicate is a normal terminal state, not an error.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeDuplicate Outcome = "duplicate"
)

// Result reports the terminal pipeline state for one submission.
type Result struct {
	Outcome  Outcome
	SignalID string
}

// ErrSymbolNotEnabled means the webhook signal's symbol is not in the
// enabled-pairs set. Rejected before it reaches the idempotency store.
var ErrSymbolNotEnabled = errors.New("symbol is not in enabled pairs list")

// PairsLookup resolves the currently enabled trading pairs.
type PairsLookup interface {
	Enabled(ctx context.Context) ([]string, error)
}

// Enqueuer hands accepted signals to the background delivery engine.
type Enqueuer interface {
	Enqueue(ctx context.Context, sig model.Signal) bool
}

// Orchestrator drives the per-signal state machine:
// RECEIVED → VALIDATED → DEDUP_CHECKED → {DUPLICATE | PERSISTED → delivery}.
type Orchestrator struct {
	structured *parser.Structured
	freetext   *parser.FreeText
	store      store.Store
	pairs      PairsLookup
	dispatcher Enqueuer
	logger     *logrus.Logger
}

func NewOrchestrator(structured *parser.Structured, freetext *parser.FreeText, st store.Store, pairs PairsLookup, dispatcher Enqueuer, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		structured: structured,
		freetext:   freetext,
		store:      st,
		pairs:      pairs,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ProcessWebhook runs the webhook path: structured parse, enabled-pairs
// gate, reserve, delivery hand-off. Callers map the returned errors to
// response codes: *parser.ValidationError and ErrSymbolNotEnabled are
// 400-class, store.ErrUnavailable is a 500.
func (o *Orchestrator) ProcessWebhook(ctx context.Context, raw []byte) (Result, error) {
	metrics.SignalsReceivedTotal.WithLabelValues(string(SourceWebhook)).Inc()

	sig, err := o.structured.Parse(raw)
	if err != nil {
		metrics.SignalsRejectedTotal.WithLabelValues(string(SourceWebhook)).Inc()
		return Result{}, err
	}

	enabled, err := o.pairs.Enabled(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("lookup enabled pairs: %w", err)
	}
	if !contains(enabled, sig.Symbol) {
		metrics.SignalsRejectedTotal.WithLabelValues(string(SourceWebhook)).Inc()
		return Result{}, fmt.Errorf("%w: %s", ErrSymbolNotEnabled, sig.Symbol)
	}

	return o.accept(ctx, sig, SourceWebhook)
}

// ProcessEmailBody runs the email path: free-text parse then the shared
// dedup/persist/deliver tail. Parse rejections are returned for the
// poller to log and skip; the same message is naturally re-attempted next
// poll until the idempotency gate suppresses it.
func (o *Orchestrator) ProcessEmailBody(ctx context.Context, body string) (Result, error) {
	metrics.SignalsReceivedTotal.WithLabelValues(string(SourceEmail)).Inc()

	sig, err := o.freetext.Parse(body)
	if err != nil {
		metrics.SignalsRejectedTotal.WithLabelValues(string(SourceEmail)).Inc()
		return Result{}, err
	}

	return o.accept(ctx, sig, SourceEmail)
}

// accept is the shared DEDUP_CHECKED → PERSISTED → delivery hand-off. The
// store's Reserve is the single concurrency-control point: exactly one
// concurrent submission of a signal id wins.
func (o *Orchestrator) accept(ctx context.Context, sig model.Signal, src Source) (Result, error) {
	accepted, err := o.store.Reserve(ctx, model.NewStoredSignal(sig))
	if err != nil {
		// Never treat an unreachable store as "not a duplicate".
		return Result{}, err
	}
	if !accepted {
		metrics.SignalsDuplicateTotal.Inc()
		o.logger.WithFields(logrus.Fields{
			"signal_id": sig.SignalID,
			"source":    src,
		}).Info("duplicate signal suppressed")
		return Result{Outcome: OutcomeDuplicate, SignalID: sig.SignalID}, nil
	}

	o.logger.WithFields(logrus.Fields{
		"signal_id": sig.SignalID,
		"symbol":    sig.Symbol,
		"timeframe": sig.Timeframe,
		"source":    src,
	}).Info("signal accepted")

	o.dispatcher.Enqueue(ctx, sig)
	return Result{Outcome: OutcomeAccepted, SignalID: sig.SignalID}, nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
