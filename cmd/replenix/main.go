package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/replenix/replenix/cmd/replenix/cli"
	"github.com/replenix/replenix/internal/app"
	"github.com/replenix/replenix/internal/ingest"
	"github.com/replenix/replenix/internal/masterdata"
	"github.com/replenix/replenix/internal/platform/cache"
	"github.com/replenix/replenix/internal/platform/db"
	"github.com/replenix/replenix/internal/replenish"
	replenishhttp "github.com/replenix/replenix/internal/replenish/http"
	"github.com/replenix/replenix/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	command := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "serve":
		serve(ctx, stop, cfg, logger)
	case "run":
		runOnce(ctx, cfg, logger, args)
	case "overview":
		overview(ctx, cfg, logger, args)
	case "jobs":
		jobsCommand(ctx, cfg, logger, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (expected serve, run, overview or jobs)\n", command)
		os.Exit(2)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("connect redis", slog.Any("error", err))
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	runRepo := replenish.NewRepository(pool)
	runCache := replenish.NewRunCache(redisClient, cfg.RunCacheTTL)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	enqueuer := jobs.NewEnqueuer(jobsClient)

	replenishHandler := replenishhttp.NewHandler(logger, runRepo, runCache, enqueuer)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		ReplenishHandler: replenishHandler,
		JobHandler:       jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func runOnce(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) {
	opts, err := cli.ParseRunOptions(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	service := replenish.NewService(
		masterdata.NewRepository(pool),
		ingest.NewFileStore(cfg.DataDir),
		replenish.NewRepository(pool),
		nil,
		logger,
		replenish.ServiceConfig{
			SpikeThreshold: cfg.SpikeThreshold,
			OutputDir:      cfg.OutputDir,
		},
	)

	runCLI := cli.NewRunCLI(service)
	if err := runCLI.Execute(ctx, opts); err != nil {
		logger.Error("pipeline run", slog.Any("error", err))
		os.Exit(1)
	}
}

func overview(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) {
	opts, err := cli.ParseOverviewOptions(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	store := ingest.NewFileStore(cfg.DataDir)
	overviewCLI := cli.NewOverviewCLI(store, masterdata.NewRepository(pool))
	if err := overviewCLI.Execute(ctx, opts); err != nil {
		logger.Error("overview", slog.Any("error", err))
		os.Exit(1)
	}
}

func jobsCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: replenix jobs trigger [-date YYYY-MM-DD] | stats")
		os.Exit(2)
	}

	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		logger.Error("init jobs cli", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
	}()

	switch args[0] {
	case "trigger":
		date := ""
		if len(args) >= 3 && args[1] == "-date" {
			date = args[2]
		}
		info, err := jobsCLI.TriggerDailyRun(ctx, date)
		if err != nil {
			logger.Error("trigger daily run", slog.Any("error", err))
			os.Exit(1)
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			logger.Error("inspect queue", slog.Any("error", err))
			os.Exit(1)
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		scheduled, err := jobsCLI.ListScheduled(ctx, 10)
		if err != nil {
			logger.Error("list scheduled", slog.Any("error", err))
			os.Exit(1)
		}
		for _, task := range scheduled {
			fmt.Printf("  scheduled %s id=%s next=%s\n",
				task.Type, task.ID, task.NextProcessAt.UTC().Format(time.RFC3339))
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown jobs subcommand %q\n", args[0])
		os.Exit(2)
	}
}
