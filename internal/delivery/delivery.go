// Package delivery formats and sends notifications in the background.
// The webhook responder's contract ends at "persisted"; everything from
// routing to retries happens here, decoupled from inbound latency.
package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/walidk/tvrelay/internal/format"
	"github.com/walidk/tvrelay/internal/metrics"
	"github.com/walidk/tvrelay/internal/model"
	"github.com/walidk/tvrelay/internal/route"
	"github.com/walidk/tvrelay/internal/store"
)

// Sender delivers one message to a destination chat. Implemented by the
// Telegram client; tests substitute fakes.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Config tunes the retry schedule and the worker pool.
type Config struct {
	// MaxAttempts is the total number of send attempts per signal.
	MaxAttempts int

	// Delays is the wait schedule between attempts. When attempts exceed
	// the schedule length the last delay is reused. No delay runs after
	// the final attempt.
	Delays []time.Duration

	Workers   int
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if len(c.Delays) == 0 {
		c.Delays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	return c
}

// Dispatcher owns the delivery worker pool. Accepted signals are handed
// to Enqueue and processed by workers started with Start.
type Dispatcher struct {
	cfg       Config
	sender    Sender
	resolver  *route.Resolver
	formatter *format.Formatter
	store     store.Store
	logger    *logrus.Logger

	jobs chan model.Signal
	wg   sync.WaitGroup
}

func NewDispatcher(cfg Config, sender Sender, resolver *route.Resolver, formatter *format.Formatter, st store.Store, logger *logrus.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		cfg:       cfg,
		sender:    sender,
		resolver:  resolver,
		formatter: formatter,
		store:     st,
		logger:    logger,
		jobs:      make(chan model.Signal, cfg.QueueSize),
	}
}

// Start launches the worker pool. Workers run on a context detached from
// ctx's cancellation: shutdown is signalled by closing the queue, not by
// cancelling the signal context, so jobs drained during Stop still reach
// Telegram and the store instead of failing against a dead context.
func (d *Dispatcher) Start(ctx context.Context) {
	workCtx := context.WithoutCancel(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(workCtx, i+1)
	}
	d.logger.WithFields(logrus.Fields{
		"workers":      d.cfg.Workers,
		"max_attempts": d.cfg.MaxAttempts,
	}).Info("delivery dispatcher started")
}

// Stop closes the queue and waits for workers to finish.
func (d *Dispatcher) Stop() {
	close(d.jobs)
	d.wg.Wait()
	d.logger.Info("delivery dispatcher stopped")
}

// Enqueue hands a persisted signal to the pool. It never blocks: when the
// queue is full the job is dropped and recorded as a failed delivery,
// which the status fields then reflect.
func (d *Dispatcher) Enqueue(ctx context.Context, sig model.Signal) bool {
	select {
	case d.jobs <- sig:
		return true
	default:
		d.logger.WithField("signal_id", sig.SignalID).Warn("delivery queue full, dropping signal")
		metrics.DeliveriesTotal.WithLabelValues("dropped").Inc()
		d.recordFailure(ctx, sig.SignalID, "delivery queue full", 0)
		return false
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for sig := range d.jobs {
		d.Deliver(ctx, sig)
	}
	d.logger.WithField("worker", id).Debug("delivery worker stopped")
}

// Deliver resolves the destination, formats the notification and sends it
// with bounded retry, then records the terminal outcome in the store.
func (d *Dispatcher) Deliver(ctx context.Context, sig model.Signal) {
	chatID := d.resolver.Resolve(sig.Symbol, sig.Timeframe)
	text := d.formatter.SignalMessage(sig)

	failures := 0
	var lastErr error

	backoff := retry.WithMaxRetries(uint64(d.cfg.MaxAttempts-1), scheduleBackoff(d.cfg.Delays))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		metrics.DeliveryAttemptsTotal.Inc()
		if err := d.sender.SendMessage(ctx, chatID, text); err != nil {
			failures++
			lastErr = err
			d.logger.WithFields(logrus.Fields{
				"signal_id": sig.SignalID,
				"chat_id":   chatID,
				"attempt":   failures,
				"error":     err,
			}).Warn("send attempt failed")
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil {
		// retry.Do bails out before the first attempt when ctx is already
		// cancelled, leaving lastErr unset.
		if lastErr == nil {
			lastErr = err
		}
		metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
		d.logger.WithFields(logrus.Fields{
			"signal_id": sig.SignalID,
			"chat_id":   chatID,
			"attempts":  failures,
			"error":     lastErr,
		}).Error("delivery failed after all attempts")
		d.recordFailure(ctx, sig.SignalID, lastErr.Error(), failures)
		return
	}

	metrics.DeliveriesTotal.WithLabelValues("sent").Inc()
	d.logger.WithFields(logrus.Fields{
		"signal_id": sig.SignalID,
		"chat_id":   chatID,
		"retries":   failures,
	}).Info("signal delivered")

	sentAt := time.Now().UTC().Format(time.RFC3339)
	if err := d.store.UpdateStatus(ctx, sig.SignalID, func(rec *model.StoredSignal) {
		rec.TelegramSent = true
		rec.TelegramError = nil
		rec.RetryCount = failures
		rec.SentAtUTC = &sentAt
		rec.ChatID = &chatID
	}); err != nil {
		d.logger.WithFields(logrus.Fields{"signal_id": sig.SignalID, "error": err}).Error("failed to record sent status")
	}
}

func (d *Dispatcher) recordFailure(ctx context.Context, signalID, reason string, attempts int) {
	if err := d.store.UpdateStatus(ctx, signalID, func(rec *model.StoredSignal) {
		rec.TelegramError = &reason
		rec.RetryCount = attempts
	}); err != nil {
		d.logger.WithFields(logrus.Fields{"signal_id": signalID, "error": err}).Error("failed to record failed status")
	}
}

// scheduleBackoff walks an explicit delay schedule, reusing the final
// delay once the schedule is exhausted.
func scheduleBackoff(delays []time.Duration) retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		idx := attempt
		if idx >= len(delays) {
			idx = len(delays) - 1
		}
		attempt++
		return delays[idx], false
	})
}
