package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/replenix/replenix/internal/jobs"
	"github.com/replenix/replenix/internal/replenish"
)

// DailyRunJob executes the end-of-day replenishment pipeline.
type DailyRunJob struct {
	Service *replenish.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDailyRunJob initialises the daily run handler.
func NewDailyRunJob(service *replenish.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *DailyRunJob {
	return &DailyRunJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one pipeline run for the day carried in the payload.
func (j *DailyRunJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("daily run: handler not configured")
	}
	var payload DailyRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	day := j.now().Truncate(24 * time.Hour)
	if payload.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", payload.Date, time.UTC)
		if err != nil {
			return asynq.SkipRetry
		}
		day = parsed
	}

	start := j.now()
	tracker := j.metrics().Track(TaskReplenishDailyRun)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("run_day", day.Format("2006-01-02")))
	logger.Info("starting daily run")

	result, err := j.Service.Run(ctx, day)
	if err != nil {
		resultErr = err
		logger.Error("daily run failed", slog.Any("error", err))
		return resultErr
	}

	for _, f := range result.Findings {
		j.metrics().AddFindings(string(f.Severity), f.Code, 1)
	}

	logger.Info("completed daily run",
		slog.Int("order_lines", result.Run.LineCount),
		slog.Int("findings", result.Run.FindingCount),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *DailyRunJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReplenishDailyRun))
	}
	return slog.Default().With(slog.String("job", TaskReplenishDailyRun))
}

func (j *DailyRunJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *DailyRunJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
