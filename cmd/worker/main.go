package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/replenix/replenix/internal/app"
	"github.com/replenix/replenix/internal/ingest"
	jobmetrics "github.com/replenix/replenix/internal/jobs"
	"github.com/replenix/replenix/internal/masterdata"
	"github.com/replenix/replenix/internal/platform/cache"
	"github.com/replenix/replenix/internal/platform/db"
	"github.com/replenix/replenix/internal/replenish"
	"github.com/replenix/replenix/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	service := replenish.NewService(
		masterdata.NewRepository(pool),
		ingest.NewFileStore(cfg.DataDir),
		replenish.NewRepository(pool),
		replenish.NewRunCache(redisClient, cfg.RunCacheTTL),
		logger,
		replenish.ServiceConfig{
			SpikeThreshold: cfg.SpikeThreshold,
			OutputDir:      cfg.OutputDir,
		},
	)

	metrics := jobmetrics.NewMetrics(nil)
	dailyRunJob := jobs.NewDailyRunJob(service, logger, metrics)

	dailyRunTask, err := jobs.NewDailyRunTask(time.Time{})
	if err != nil {
		logger.Error("build daily run task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReplenishDailyRun, Handler: dailyRunJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.DailyRunCron, Task: dailyRunTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
