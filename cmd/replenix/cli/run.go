package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/replenix/replenix/internal/replenish"
)

// RunService executes the replenishment pipeline for one business day.
type RunService interface {
	Run(ctx context.Context, day time.Time) (replenish.RunResult, error)
}

// RunOptions configures a manual pipeline execution.
type RunOptions struct {
	Date       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ParseRunOptions parses `run` command flags.
func ParseRunOptions(args []string) (RunOptions, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	date := fs.String("date", "", "business day to process (YYYY-MM-DD, default today UTC)")
	jsonOut := fs.Bool("json", false, "emit a JSON summary instead of text")
	if err := fs.Parse(args); err != nil {
		return RunOptions{}, err
	}
	return RunOptions{Date: *date, JSONOutput: *jsonOut}, nil
}

// RunSummary captures the structured reporting outcome of a manual run.
type RunSummary struct {
	RunID      string              `json:"run_id"`
	Day        string              `json:"day"`
	Products   int                 `json:"products"`
	Demand     int                 `json:"demand_entries"`
	OrderLines int                 `json:"order_lines"`
	Findings   []replenish.Finding `json:"findings,omitempty"`
}

// RunCLI drives a one-off pipeline execution from the command line.
type RunCLI struct {
	service RunService
	clock   func() time.Time
}

// NewRunCLI constructs the helper around a pipeline service.
func NewRunCLI(service RunService) *RunCLI {
	return &RunCLI{
		service: service,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Execute runs the pipeline and reports the summary.
func (c *RunCLI) Execute(ctx context.Context, opts RunOptions) error {
	if c == nil || c.service == nil {
		return errors.New("run cli: service not configured")
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	day := c.clock().Truncate(24 * time.Hour)
	if opts.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", opts.Date, time.UTC)
		if err != nil {
			return fmt.Errorf("run cli: invalid date %q: %w", opts.Date, err)
		}
		day = parsed
	}

	result, err := c.service.Run(ctx, day)
	if err != nil {
		return err
	}

	summary := RunSummary{
		RunID:      result.Run.ID.String(),
		Day:        result.Run.Day.Format("2006-01-02"),
		Products:   result.Run.ProductCount,
		Demand:     result.Run.DemandCount,
		OrderLines: result.Run.LineCount,
		Findings:   result.Findings,
	}

	if opts.JSONOutput {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	fmt.Fprintf(stdout, "run %s for %s\n", summary.RunID, summary.Day)
	fmt.Fprintf(stdout, "  products=%d demand_entries=%d order_lines=%d\n",
		summary.Products, summary.Demand, summary.OrderLines)
	for _, f := range summary.Findings {
		if f.SKU != "" {
			fmt.Fprintf(stdout, "  [%s] %s sku=%s: %s\n", f.Severity, f.Code, f.SKU, f.Message)
			continue
		}
		fmt.Fprintf(stdout, "  [%s] %s: %s\n", f.Severity, f.Code, f.Message)
	}
	return nil
}
