package mailbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/walidk/tvrelay/internal/parser"
	"github.com/walidk/tvrelay/internal/pipeline"
	"github.com/walidk/tvrelay/internal/store"
)

// Source fetches a batch of recent mailbox messages.
type Source interface {
	FetchRecent(ctx context.Context) ([]Message, error)
}

// Processor is the email side of the pipeline orchestrator.
type Processor interface {
	ProcessEmailBody(ctx context.Context, body string) (pipeline.Result, error)
}

// Poller scans the mailbox on a fixed interval. Cycles run synchronously
// inside a single loop, so a slow cycle delays the next one instead of
// overlapping with it.
type Poller struct {
	source    Source
	processor Processor
	interval  time.Duration
	logger    *logrus.Logger
}

func NewPoller(source Source, processor Processor, interval time.Duration, logger *logrus.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{source: source, processor: processor, interval: interval, logger: logger}
}

// Run polls until ctx is cancelled, scanning once immediately.
func (p *Poller) Run(ctx context.Context) {
	p.logger.WithField("interval", p.interval).Info("mailbox poller started")

	p.cycle(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("mailbox poller stopped")
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// cycle fetches one batch and feeds each message through the pipeline.
// Rejections are logged and skipped; an unparseable or duplicate message
// never blocks the rest of the batch.
func (p *Poller) cycle(ctx context.Context) {
	cycleID := uuid.NewString()[:8]
	log := p.logger.WithField("cycle", cycleID)

	messages, err := p.source.FetchRecent(ctx)
	if err != nil {
		log.WithField("error", err).Error("mailbox fetch failed")
		return
	}
	if len(messages) == 0 {
		log.Debug("no recent alert emails")
		return
	}

	accepted, duplicates, skipped := 0, 0, 0
	for _, msg := range messages {
		result, err := p.processor.ProcessEmailBody(ctx, msg.Body)
		switch {
		case err == nil:
			if result.Outcome == pipeline.OutcomeDuplicate {
				duplicates++
			} else {
				accepted++
			}
		case errors.Is(err, parser.ErrNoSignal):
			skipped++
			log.WithField("seq", msg.SeqNum).Debug("no signal line in email")
		case errors.Is(err, parser.ErrSecretMismatch):
			skipped++
			log.WithField("seq", msg.SeqNum).Warn("email signal rejected, secret mismatch")
		case errors.Is(err, store.ErrUnavailable):
			log.WithFields(logrus.Fields{"seq": msg.SeqNum, "error": err}).Error("store unavailable, signal will retry next poll")
		default:
			skipped++
			log.WithFields(logrus.Fields{"seq": msg.SeqNum, "error": err}).Warn("email signal rejected")
		}
	}

	log.WithFields(logrus.Fields{
		"messages":   len(messages),
		"accepted":   accepted,
		"duplicates": duplicates,
		"skipped":    skipped,
	}).Info("poll cycle complete")
}
