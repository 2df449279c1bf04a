// Package mailbox polls an IMAP folder for alert emails and feeds their
// text bodies through the signal pipeline.
package mailbox

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"
)

// Message is one fetched mailbox message reduced to what the parser
// needs.
type Message struct {
	SeqNum  uint32
	Subject string
	Body    string
}

// ClientConfig holds IMAP connection and search settings.
type ClientConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Folder      string
	FromAddress string

	// Lookback bounds the SINCE search criterion.
	Lookback time.Duration

	// MaxPerCycle caps messages fetched per call; the newest messages
	// win when the search returns more.
	MaxPerCycle int
}

// Client fetches recent alert emails. Each FetchRecent call runs a full
// connect/select/search/fetch/logout session so no IMAP connection
// outlives a poll cycle.
type Client struct {
	cfg    ClientConfig
	logger *logrus.Logger
}

func NewClient(cfg ClientConfig, logger *logrus.Logger) *Client {
	if cfg.MaxPerCycle <= 0 {
		cfg.MaxPerCycle = 20
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 5 * time.Minute
	}
	return &Client{cfg: cfg, logger: logger}
}

// FetchRecent returns the text bodies of recent messages from the
// configured sender, marking fetched messages seen.
func (c *Client) FetchRecent(ctx context.Context) ([]Message, error) {
	conn, err := imapclient.DialTLS(fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port), nil)
	if err != nil {
		return nil, fmt.Errorf("dial imap: %w", err)
	}
	conn.Timeout = 30 * time.Second
	defer conn.Logout()

	if err := conn.Login(c.cfg.Username, c.cfg.Password); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}

	if _, err := conn.Select(c.cfg.Folder, false); err != nil {
		return nil, fmt.Errorf("select folder %s: %w", c.cfg.Folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = time.Now().Add(-c.cfg.Lookback)
	if c.cfg.FromAddress != "" {
		criteria.Header.Add("From", c.cfg.FromAddress)
	}

	seqNums, err := conn.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(seqNums) == 0 {
		return nil, nil
	}

	seqNums = capNewest(seqNums, c.cfg.MaxPerCycle)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchEnvelope}

	fetched := make(chan *imap.Message, len(seqNums))
	done := make(chan error, 1)
	go func() {
		done <- conn.Fetch(seqSet, items, fetched)
	}()

	var messages []Message
	for msg := range fetched {
		body, err := extractTextBody(msg.GetBody(section))
		if err != nil {
			c.logger.WithFields(logrus.Fields{"seq": msg.SeqNum, "error": err}).Warn("failed to extract email body")
			continue
		}

		subject := ""
		if msg.Envelope != nil {
			subject = msg.Envelope.Subject
		}
		messages = append(messages, Message{SeqNum: msg.SeqNum, Subject: subject, Body: body})
	}

	if err := <-done; err != nil {
		return messages, fmt.Errorf("imap fetch: %w", err)
	}

	// Flag processed messages so manual mailbox triage can tell them
	// apart; dedup itself is the store's job.
	flagItem := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := conn.Store(seqSet, flagItem, []interface{}{imap.SeenFlag}, nil); err != nil {
		c.logger.WithField("error", err).Warn("failed to mark messages seen")
	}

	return messages, nil
}

// capNewest bounds work per cycle, keeping the newest messages. IMAP
// search results are ordered oldest first.
func capNewest(seqNums []uint32, max int) []uint32 {
	if len(seqNums) > max {
		return seqNums[len(seqNums)-max:]
	}
	return seqNums
}

// extractTextBody returns the first text/plain part of a message. Alert
// emails carry the signal line in the plain part; HTML alternatives wrap
// it in markup the parser must not see.
func extractTextBody(r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("empty body section")
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", fmt.Errorf("parse message: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read part: %w", err)
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		if contentType != "text/plain" {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		return string(body), nil
	}

	return "", fmt.Errorf("no text part found")
}
