// Package handler contains the gin handlers for the webhook, health and
// pairs-admin surfaces.
package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/walidk/tvrelay/internal/parser"
	"github.com/walidk/tvrelay/internal/pipeline"
	"github.com/walidk/tvrelay/internal/store"
)

// SignalProcessor is the webhook side of the pipeline orchestrator.
type SignalProcessor interface {
	ProcessWebhook(ctx context.Context, raw []byte) (pipeline.Result, error)
}

// WebhookHandler authenticates and processes TradingView webhook posts.
type WebhookHandler struct {
	secret    string
	processor SignalProcessor
	logger    *logrus.Logger
}

func NewWebhookHandler(secret string, processor SignalProcessor, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{secret: secret, processor: processor, logger: logger}
}

// Post handles POST /webhook. The response reflects persistence outcome
// only; delivery proceeds in the background.
func (h *WebhookHandler) Post(c *gin.Context) {
	secret := c.GetHeader("X-TV-Secret")
	if secret == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing X-TV-Secret header"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid shared secret"})
		return
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable request body"})
		return
	}

	result, err := h.processor.ProcessWebhook(c.Request.Context(), raw)
	if err != nil {
		h.respondError(c, err)
		return
	}

	switch result.Outcome {
	case pipeline.OutcomeDuplicate:
		c.JSON(http.StatusOK, gin.H{
			"status":    "duplicate",
			"message":   "Signal already processed",
			"signal_id": result.SignalID,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"status":    "success",
			"message":   "Signal received and queued for processing",
			"signal_id": result.SignalID,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func (h *WebhookHandler) respondError(c *gin.Context, err error) {
	var validationErr *parser.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error: " + validationErr.Error()})
	case errors.Is(err, pipeline.ErrSymbolNotEnabled):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrUnavailable):
		h.logger.WithField("error", err).Error("webhook processing aborted, store unavailable")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	default:
		h.logger.WithField("error", err).Error("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
