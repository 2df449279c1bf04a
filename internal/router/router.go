// Package router assembles the gin engine from the handler set.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/walidk/tvrelay/internal/handler"
)

// Config lists the handlers the router wires up.
type Config struct {
	Webhook *handler.WebhookHandler
	Admin   *handler.AdminHandler
	Health  *handler.HealthHandler
}

func NewRouter(cfg *Config) *gin.Engine {
	router := gin.Default()

	router.POST("/webhook", cfg.Webhook.Post)
	router.GET("/health", cfg.Health.Get)

	router.GET("/pairs", cfg.Admin.ListPairs)
	router.POST("/pairs", cfg.Admin.AddPair)
	router.DELETE("/pairs/:symbol", cfg.Admin.RemovePair)
	router.GET("/signals", cfg.Admin.RecentSignals)

	return router
}
