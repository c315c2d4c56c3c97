package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/techspirit-99/stock-prediction-app/config"
	"github.com/techspirit-99/stock-prediction-app/data"
	"github.com/techspirit-99/stock-prediction-app/data/cache"
	"github.com/techspirit-99/stock-prediction-app/data/session"
	"github.com/techspirit-99/stock-prediction-app/internal/externalApi/authApi"
	"github.com/techspirit-99/stock-prediction-app/internal/externalApi/stockApi"
	"github.com/techspirit-99/stock-prediction-app/internal/service/dashboardService"
	"github.com/techspirit-99/stock-prediction-app/internal/tgbot"
	"github.com/techspirit-99/stock-prediction-app/internal/transport/telegram"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	stockApiClient := stockApi.New(cfg)
	authApiClient := authApi.New(cfg)

	dashboardSrv := dashboardService.New(cfg, stockApiClient, redisCache)

	tgController := telegram.NewController(cfg, dashboardSrv, authApiClient, redisSession)

	tgBot := tgbot.New(cfg, tgController, redisSession)
	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
