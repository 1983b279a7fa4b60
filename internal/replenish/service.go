package replenish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/replenix/replenix/internal/ingest"
	"github.com/replenix/replenix/internal/masterdata"
)

// MasterDataPort exposes the master data reads used by the pipeline.
type MasterDataPort interface {
	ListActiveProductRules(ctx context.Context) ([]masterdata.ProductRule, error)
	ListPrimarySupplierLinks(ctx context.Context) ([]masterdata.SupplierLink, error)
}

// IngestPort exposes the raw daily partitions.
type IngestPort interface {
	HasPartitions(day time.Time) (bool, error)
	ReadOrderLines(ctx context.Context, day time.Time) ([]ingest.OrderLine, error)
	ReadStockRecords(ctx context.Context, day time.Time) ([]ingest.StockRecord, error)
}

// RunStorePort persists completed runs.
type RunStorePort interface {
	SaveRun(ctx context.Context, result RunResult) error
}

// SummaryCachePort caches run summaries for the ops surface.
type SummaryCachePort interface {
	StoreSummary(ctx context.Context, run Run) error
}

// ServiceConfig carries pipeline tunables.
type ServiceConfig struct {
	SpikeThreshold int64
	OutputDir      string
}

// Service runs the daily replenishment computation end to end: fetch inputs,
// compute net demand, derive supplier orders, run quality checks, persist and
// export. The computation itself is a pure function of one day's inputs; the
// service only adds I/O around it.
type Service struct {
	master MasterDataPort
	raw    IngestPort
	store  RunStorePort
	cache  SummaryCachePort
	logger *slog.Logger
	cfg    ServiceConfig
	clock  func() time.Time
}

// NewService constructs the pipeline service. store and cache may be nil for
// dry runs.
func NewService(master MasterDataPort, raw IngestPort, store RunStorePort, cache SummaryCachePort, logger *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.SpikeThreshold <= 0 {
		cfg.SpikeThreshold = DefaultSpikeThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		master: master,
		raw:    raw,
		store:  store,
		cache:  cache,
		logger: logger,
		cfg:    cfg,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the pipeline for one business day.
func (s *Service) Run(ctx context.Context, day time.Time) (RunResult, error) {
	day = day.Truncate(24 * time.Hour)
	logger := s.logger.With(slog.String("run_day", day.Format("2006-01-02")))
	logger.Info("starting replenishment run")

	// Half-delivered days never run; upstream must land both partitions.
	ok, err := s.raw.HasPartitions(day)
	if err != nil {
		return RunResult{}, err
	}
	if !ok {
		return RunResult{}, fmt.Errorf("%w: nothing landed for %s", ingest.ErrPartitionMissing, day.Format("2006-01-02"))
	}

	var (
		rules  []masterdata.ProductRule
		links  []masterdata.SupplierLink
		orders []ingest.OrderLine
		stock  []ingest.StockRecord
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		rules, err = s.master.ListActiveProductRules(gctx)
		return err
	})
	group.Go(func() (err error) {
		links, err = s.master.ListPrimarySupplierLinks(gctx)
		return err
	})
	group.Go(func() (err error) {
		orders, err = s.raw.ReadOrderLines(gctx, day)
		return err
	})
	group.Go(func() (err error) {
		stock, err = s.raw.ReadStockRecords(gctx, day)
		return err
	})
	if err := group.Wait(); err != nil {
		return RunResult{}, err
	}

	result := s.Compute(day, rules, links, orders, stock)

	for _, finding := range result.Findings {
		attrs := []any{
			slog.String("code", finding.Code),
			slog.String("message", finding.Message),
		}
		if finding.SKU != "" {
			attrs = append(attrs, slog.String("sku", finding.SKU))
		}
		switch finding.Severity {
		case SeverityWarning:
			logger.Warn("data quality finding", attrs...)
		default:
			logger.Info("data quality finding", attrs...)
		}
	}

	if s.store != nil {
		if err := s.store.SaveRun(ctx, result); err != nil {
			return RunResult{}, err
		}
	}
	if s.cfg.OutputDir != "" {
		path, err := WriteOrdersArtifact(s.cfg.OutputDir, day, result.Orders)
		if err != nil {
			return RunResult{}, err
		}
		logger.Info("supplier orders exported", slog.String("path", path))
	}
	if s.cache != nil {
		if err := s.cache.StoreSummary(ctx, result.Run); err != nil {
			logger.Warn("cache run summary", slog.Any("error", err))
		}
	}

	logger.Info("completed replenishment run",
		slog.Int("products", result.Run.ProductCount),
		slog.Int("demand_entries", result.Run.DemandCount),
		slog.Int("order_lines", result.Run.LineCount),
		slog.Int("findings", result.Run.FindingCount),
	)
	return result, nil
}

// Compute is the pure core of a run: no I/O, deterministic for identical
// inputs, safe to call concurrently.
func (s *Service) Compute(day time.Time, rules []masterdata.ProductRule, links []masterdata.SupplierLink, orders []ingest.OrderLine, stock []ingest.StockRecord) RunResult {
	aggregated := AggregateOrders(orders)
	pooled := AggregateStock(stock)

	demand := ComputeNetDemand(rules, aggregated, pooled)
	lines, orderFindings := DeriveSupplierOrders(demand, links)

	findings := make([]Finding, 0, len(orderFindings)+2)
	findings = append(findings, CheckUnmappedSKUs(rules, links)...)
	findings = append(findings, CheckDemandSpikes(aggregated, s.cfg.SpikeThreshold)...)
	findings = append(findings, orderFindings...)

	return RunResult{
		Run: Run{
			ID:           RunID(day),
			Day:          day,
			ProductCount: len(rules),
			DemandCount:  len(demand),
			LineCount:    len(lines),
			FindingCount: len(findings),
			GeneratedAt:  s.now(),
		},
		Demand:   demand,
		Orders:   lines,
		Findings: findings,
	}
}

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now().UTC()
}
