package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/walidk/tvrelay/internal/store"
	"github.com/walidk/tvrelay/internal/telegram"
)

// HealthHandler probes the store and the Telegram API.
type HealthHandler struct {
	store    store.Store
	telegram *telegram.Client
	logger   *logrus.Logger
}

func NewHealthHandler(st store.Store, tg *telegram.Client, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{store: st, telegram: tg, logger: logger}
}

// Get handles GET /health. Degraded collaborators yield 503 with a
// per-check breakdown.
func (h *HealthHandler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if err := h.store.Ping(ctx); err != nil {
		checks["store"] = err.Error()
		healthy = false
	} else {
		checks["store"] = "ok"
	}

	if _, err := h.telegram.GetMe(ctx); err != nil {
		checks["telegram"] = err.Error()
		healthy = false
	} else {
		checks["telegram"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
		h.logger.WithField("checks", checks).Warn("health check degraded")
	}
	c.JSON(status, gin.H{
		"ok":        healthy,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
