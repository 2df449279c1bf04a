package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/walidk/tvrelay/internal/model"
)

// ErrNoSignal means the body contained no structured signal line. The
// email path logs and skips these; most alert emails carry prose only.
var ErrNoSignal = errors.New("no structured signal line found")

// ErrSecretMismatch means the per-message shared secret was absent or
// wrong. Rejected silently: logged by the caller, never surfaced.
var ErrSecretMismatch = errors.New("signal secret missing or mismatched")

// signalLineRe matches the marker token and the pipe-delimited run up to
// the next line break, e.g.
// action:ENTRY|symbol:ETHUSDT|tf:60|entry:4787.12|...|signal_id:ETHUSDT_60_1
var signalLineRe = regexp.MustCompile(`action:ENTRY\|[^|\n]*(?:\|[^|\n]*)*`)

// FreeTextConfig controls the email-body parser.
type FreeTextConfig struct {
	// RequireSecret enables per-message authentication: a secret:<token>
	// segment must be present and match Secret exactly.
	RequireSecret bool
	Secret        string
}

// FreeText extracts a signal record from a pipe-delimited run inside an
// email body. Only the first signal-shaped substring per body is used.
type FreeText struct {
	cfg       FreeTextConfig
	validator *Validator
	now       func() time.Time
}

func NewFreeText(cfg FreeTextConfig, validator *Validator) *FreeText {
	return &FreeText{cfg: cfg, validator: validator, now: time.Now}
}

// Parse locates the signal line, splits it into key:value segments and
// builds a validated record. bar_time defaults to the current time when
// the body omits it, and event is synthesized since the email format does
// not carry one.
func (p *FreeText) Parse(body string) (model.Signal, error) {
	line := signalLineRe.FindString(body)
	if line == "" {
		return model.Signal{}, ErrNoSignal
	}

	fields := make(map[string]string)
	for _, segment := range strings.Split(line, "|") {
		key, value, ok := strings.Cut(segment, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	for _, key := range []string{"action", "symbol", "tf", "entry", "stop", "target", "rr", "signal_id"} {
		if fields[key] == "" {
			return model.Signal{}, &ValidationError{Field: key, Reason: "missing required field"}
		}
	}

	if p.cfg.RequireSecret && fields["secret"] != p.cfg.Secret {
		return model.Signal{}, ErrSecretMismatch
	}

	entry, err := parseFloat("entry", fields["entry"])
	if err != nil {
		return model.Signal{}, err
	}
	stop, err := parseFloat("stop", fields["stop"])
	if err != nil {
		return model.Signal{}, err
	}
	target, err := parseFloat("target", fields["target"])
	if err != nil {
		return model.Signal{}, err
	}
	rr, err := parseFloat("rr", fields["rr"])
	if err != nil {
		return model.Signal{}, err
	}

	barTime := p.now().UnixMilli()
	if raw, ok := fields["bar_time"]; ok && raw != "" {
		barTime, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.Signal{}, &ValidationError{Field: "bar_time", Reason: "not a valid integer"}
		}
	}

	sig := model.Signal{
		SignalID:  fields["signal_id"],
		Symbol:    strings.ToUpper(fields["symbol"]),
		Timeframe: fields["tf"],
		Event:     model.EventEMABounceBuy,
		BarTime:   barTime,
		Entry:     entry,
		Stop:      stop,
		Target:    target,
		RR:        rr,
	}

	if err := p.validator.Validate(sig); err != nil {
		return model.Signal{}, err
	}
	return sig, nil
}

func parseFloat(field, raw string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "not a valid number"}
	}
	return value, nil
}
