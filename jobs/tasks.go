package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReplenishDailyRun is the task type for the end-of-day pipeline.
	TaskReplenishDailyRun = "replenish:daily_run"
)

// DailyRunPayload selects the business day a pipeline run processes. An empty
// date means "the day the task executes".
type DailyRunPayload struct {
	Date string `json:"date,omitempty"`
}

// NewDailyRunTask constructs an Asynq task for one business day.
func NewDailyRunTask(day time.Time) (*asynq.Task, error) {
	payload := DailyRunPayload{}
	if !day.IsZero() {
		payload.Date = day.Format("2006-01-02")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReplenishDailyRun, data), nil
}

// Enqueuer submits daily-run tasks; it backs the manual trigger endpoint.
type Enqueuer struct {
	client *Client
}

// NewEnqueuer wraps a jobs client.
func NewEnqueuer(client *Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueDailyRun enqueues a pipeline run for the given day.
func (e *Enqueuer) EnqueueDailyRun(ctx context.Context, day time.Time) error {
	if e == nil || e.client == nil {
		return errors.New("jobs: enqueuer not configured")
	}
	task, err := NewDailyRunTask(day)
	if err != nil {
		return err
	}
	_, err = e.client.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
	return err
}
