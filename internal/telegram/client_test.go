package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotReq sendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{}})
	}))
	defer srv.Close()

	c := NewClient(Config{Token: "TOKEN", BaseURL: srv.URL})
	if err := c.SendMessage(context.Background(), "-100123", "hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if gotPath != "/botTOKEN/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotReq.ChatID != "-100123" || gotReq.Text != "hello" {
		t.Fatalf("unexpected request: %+v", gotReq)
	}
	if gotReq.ParseMode != "Markdown" || !gotReq.DisableWebPagePreview {
		t.Fatalf("unexpected message options: %+v", gotReq)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "Bad Request: chat not found"})
	}))
	defer srv.Close()

	c := NewClient(Config{Token: "TOKEN", BaseURL: srv.URL})
	err := c.SendMessage(context.Background(), "-100123", "hello")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if !strings.Contains(apiErr.Description, "chat not found") {
		t.Fatalf("unexpected description %q", apiErr.Description)
	}
}

func TestSendMessageMissingChatID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty chat id")
	}))
	defer srv.Close()

	c := NewClient(Config{Token: "TOKEN", BaseURL: srv.URL})
	err := c.SendMessage(context.Background(), "", "hello")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
}

func TestGetMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/getMe" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{"username": "relay_bot"}})
	}))
	defer srv.Close()

	c := NewClient(Config{Token: "TOKEN", BaseURL: srv.URL})
	info, err := c.GetMe(context.Background())
	if err != nil {
		t.Fatalf("getMe failed: %v", err)
	}
	if info.Username != "relay_bot" {
		t.Fatalf("unexpected username %q", info.Username)
	}
}

func TestNetworkErrorIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(Config{Token: "TOKEN", BaseURL: srv.URL})
	err := c.SendMessage(context.Background(), "-100123", "hello")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError for network failure, got %v", err)
	}
}
