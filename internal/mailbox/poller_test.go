package mailbox

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/walidk/tvrelay/internal/parser"
	"github.com/walidk/tvrelay/internal/pipeline"
)

type fakeSource struct {
	messages []Message
	err      error
	fetches  int
}

func (f *fakeSource) FetchRecent(ctx context.Context) ([]Message, error) {
	f.fetches++
	return f.messages, f.err
}

type recordingProcessor struct {
	bodies  []string
	results map[string]pipeline.Result
	errs    map[string]error
}

func (r *recordingProcessor) ProcessEmailBody(ctx context.Context, body string) (pipeline.Result, error) {
	r.bodies = append(r.bodies, body)
	if err, ok := r.errs[body]; ok {
		return pipeline.Result{}, err
	}
	return r.results[body], nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestPollerProcessesWholeBatch(t *testing.T) {
	source := &fakeSource{messages: []Message{
		{SeqNum: 1, Body: "good"},
		{SeqNum: 2, Body: "noise"},
		{SeqNum: 3, Body: "dup"},
		{SeqNum: 4, Body: "also-good"},
	}}
	processor := &recordingProcessor{
		results: map[string]pipeline.Result{
			"good":      {Outcome: pipeline.OutcomeAccepted, SignalID: "A"},
			"dup":       {Outcome: pipeline.OutcomeDuplicate, SignalID: "B"},
			"also-good": {Outcome: pipeline.OutcomeAccepted, SignalID: "C"},
		},
		errs: map[string]error{
			"noise": parser.ErrNoSignal,
		},
	}

	p := NewPoller(source, processor, time.Minute, testLogger())
	p.cycle(context.Background())

	// A rejection mid-batch must not stop later messages.
	if len(processor.bodies) != 4 {
		t.Fatalf("expected all 4 messages processed, got %d", len(processor.bodies))
	}
}

func TestPollerFetchErrorSkipsCycle(t *testing.T) {
	source := &fakeSource{err: errors.New("imap: connection refused")}
	processor := &recordingProcessor{}

	p := NewPoller(source, processor, time.Minute, testLogger())
	p.cycle(context.Background())

	if len(processor.bodies) != 0 {
		t.Fatalf("no messages should be processed on fetch failure")
	}
}

func TestPollerRunStopsOnCancel(t *testing.T) {
	source := &fakeSource{}
	processor := &recordingProcessor{}
	p := NewPoller(source, processor, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// Let the immediate cycle plus at least one tick happen.
	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("poller did not stop after cancel")
	}

	if source.fetches < 2 {
		t.Fatalf("expected immediate cycle plus ticks, got %d fetches", source.fetches)
	}
}

func TestPollerDefaultInterval(t *testing.T) {
	p := NewPoller(&fakeSource{}, &recordingProcessor{}, 0, testLogger())
	if p.interval != time.Minute {
		t.Fatalf("expected default interval, got %v", p.interval)
	}
}
