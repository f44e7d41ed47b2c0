package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/finhold/holdings_engine/config"
	"github.com/finhold/holdings_engine/data"
	"github.com/finhold/holdings_engine/data/cache"
	"github.com/finhold/holdings_engine/data/repository/postgres"
	"github.com/finhold/holdings_engine/internal/externalApi/bonusFeedApi"
	"github.com/finhold/holdings_engine/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/finhold/holdings_engine/internal/reportGenerator/xlsxGenerator"
	"github.com/finhold/holdings_engine/internal/scheduler"
	"github.com/finhold/holdings_engine/internal/service/holdingsService"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	bonusFeedClient := bonusFeedApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	holdingsSrv := holdingsService.New(pgRepo, redisCache, bonusFeedClient, reportGenerator, googleCloudStorage, cfg)

	sched := scheduler.New()
	sched.NewIntervalJob("sync bonus issues", holdingsSrv.SyncBonusIssues, cfg.Jobs.SyncBonusIssuesInterval, true)
	sched.NewIntervalJob("warm summary cache", holdingsSrv.WarmSummaryCache, cfg.Jobs.WarmSummaryCacheInterval, false)
	sched.NewIntervalJob("delete old report files", googleCloudStorage.DeleteOldFiles, cfg.GoogleDrive.FileTTL, false)
	sched.Start()
	defer sched.Stop()

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
