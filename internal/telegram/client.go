// Package telegram is a minimal Bot API client covering sendMessage and
// getMe, with a shared rate limiter ahead of every call.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// APIError is a non-ok Bot API response or transport failure for a single
// attempt. Attempts failing with it are retried by the delivery engine.
type APIError struct {
	Description string
}

func (e *APIError) Error() string {
	return "telegram: " + e.Description
}

// Config holds Bot API client settings.
type Config struct {
	Token string

	// BaseURL overrides the API host, used by tests. Defaults to the
	// public Bot API.
	BaseURL string

	// RequestTimeout bounds each HTTP call.
	RequestTimeout time.Duration

	// MessagesPerSecond caps outbound calls; Telegram throttles bots
	// around 30 messages per second globally.
	MessagesPerSecond float64
}

// Client talks to the Telegram Bot API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	perSecond := cfg.MessagesPerSecond
	if perSecond <= 0 {
		perSecond = 30
	}

	return &Client{
		token:   cfg.Token,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// SendMessage posts text to a chat in Markdown mode. A missing chat id is
// reported as an API error without a network call.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	if chatID == "" {
		return &APIError{Description: "no destination chat id configured"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage: %w", err)
	}

	_, err = c.call(ctx, http.MethodPost, "sendMessage", bytes.NewReader(body))
	return err
}

// BotInfo is the subset of getMe used by health probes.
type BotInfo struct {
	Username string `json:"username"`
}

// GetMe fetches the bot identity, used to verify connectivity.
func (c *Client) GetMe(ctx context.Context) (*BotInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := c.call(ctx, http.MethodGet, "getMe", nil)
	if err != nil {
		return nil, err
	}

	var info BotInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, fmt.Errorf("decode getMe: %w", err)
	}
	return &info, nil
}

func (c *Client) call(ctx context.Context, method, apiMethod string, body *bytes.Reader) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, apiMethod)

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", apiMethod, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Description: fmt.Sprintf("network error: %v", err)}
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &APIError{Description: fmt.Sprintf("malformed %s response: %v", apiMethod, err)}
	}
	if resp.StatusCode != http.StatusOK || !parsed.OK {
		desc := parsed.Description
		if desc == "" {
			desc = fmt.Sprintf("%s failed with status %d", apiMethod, resp.StatusCode)
		}
		return nil, &APIError{Description: desc}
	}

	return parsed.Result, nil
}
