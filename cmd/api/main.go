package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/walidk/tvrelay/configs"
	"github.com/walidk/tvrelay/internal/delivery"
	"github.com/walidk/tvrelay/internal/format"
	"github.com/walidk/tvrelay/internal/handler"
	"github.com/walidk/tvrelay/internal/logging"
	"github.com/walidk/tvrelay/internal/metrics"
	"github.com/walidk/tvrelay/internal/pairs"
	"github.com/walidk/tvrelay/internal/parser"
	"github.com/walidk/tvrelay/internal/pipeline"
	"github.com/walidk/tvrelay/internal/route"
	"github.com/walidk/tvrelay/internal/router"
	"github.com/walidk/tvrelay/internal/store"
	"github.com/walidk/tvrelay/internal/telegram"
)

func main() {
	cfg := configs.Load()
	logger := logging.NewLogger(cfg.LogLevel)

	redisStore := store.NewRedisStore(store.RedisConfig{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		TTL:       cfg.Redis.IdempotencyTTL,
		OpTimeout: cfg.Redis.OpTimeout,
	})
	defer redisStore.Close()

	validator := parser.NewValidator(cfg.SupportedTimeframes, cfg.AllowedEvents)
	structured := parser.NewStructured(validator)
	freetext := parser.NewFreeText(parser.FreeTextConfig{
		RequireSecret: cfg.Email.RequireSecret,
		Secret:        cfg.Email.SharedSecret,
	}, validator)

	tg := telegram.NewClient(telegram.Config{
		Token:             cfg.Telegram.BotToken,
		RequestTimeout:    cfg.Telegram.RequestTimeout,
		MessagesPerSecond: cfg.Telegram.MessagesPerSecond,
	})
	resolver := route.NewResolver(cfg.Telegram.SymbolChatMap, cfg.Telegram.TFChatMap, cfg.Telegram.DefaultChatID)
	formatter := format.NewFormatter(cfg.TZDisplay)

	dispatcher := delivery.NewDispatcher(delivery.Config{
		MaxAttempts: cfg.Telegram.MaxRetries,
		Delays:      cfg.Telegram.RetryDelays,
		Workers:     cfg.Delivery.Workers,
		QueueSize:   cfg.Delivery.QueueSize,
	}, tg, resolver, formatter, redisStore, logger)

	pairsService := pairs.NewService(redisStore, cfg.Pairs, logger)
	orchestrator := pipeline.NewOrchestrator(structured, freetext, redisStore, pairsService, dispatcher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher.Start(ctx)
	metricsServer := metrics.Serve(cfg.MetricsAddr)

	engine := router.NewRouter(&router.Config{
		Webhook: handler.NewWebhookHandler(cfg.TVSharedSecret, orchestrator, logger),
		Admin:   handler.NewAdminHandler(pairsService, redisStore, logger),
		Health:  handler.NewHealthHandler(redisStore, tg, logger),
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: engine,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("webhook server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithField("error", err).Fatal("webhook server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithField("error", err).Error("server shutdown failed")
	}
	dispatcher.Stop()
	_ = metricsServer.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}
