package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/replenix/replenix/internal/ingest"
)

// OverviewStore exposes the raw daily partitions inspected by the overview
// command.
type OverviewStore interface {
	ReadOrderLines(ctx context.Context, day time.Time) ([]ingest.OrderLine, error)
	ReadStockRecords(ctx context.Context, day time.Time) ([]ingest.StockRecord, error)
	ListOrderDays() ([]time.Time, error)
}

// MasterCounts exposes the master data tallies reported alongside the raw
// partitions. Optional; the command degrades to partition-only output.
type MasterCounts interface {
	CountActiveProducts(ctx context.Context) (int, error)
	CountUnmappedActiveProducts(ctx context.Context) (int, error)
}

// OverviewOptions configures the dataset overview command.
type OverviewOptions struct {
	Date       string
	TopN       int
	JSONOutput bool
	Stdout     io.Writer
}

// ParseOverviewOptions parses `overview` command flags.
func ParseOverviewOptions(args []string) (OverviewOptions, error) {
	fs := flag.NewFlagSet("overview", flag.ContinueOnError)
	date := fs.String("date", "", "day to inspect (YYYY-MM-DD, default latest landed day)")
	topN := fs.Int("top", 5, "number of top SKUs by ordered quantity to list")
	jsonOut := fs.Bool("json", false, "emit a JSON summary instead of text")
	if err := fs.Parse(args); err != nil {
		return OverviewOptions{}, err
	}
	return OverviewOptions{Date: *date, TopN: *topN, JSONOutput: *jsonOut}, nil
}

// SKUVolume reports one SKU's ordered quantity for a day.
type SKUVolume struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

// OverviewSummary describes one day's raw partitions plus the master data
// state the pipeline would plan against.
type OverviewSummary struct {
	Day              string      `json:"day"`
	OrderLines       int         `json:"order_lines"`
	TotalUnits       int64       `json:"total_units"`
	DistinctSKUs     int         `json:"distinct_skus"`
	StockRecords     int         `json:"stock_records"`
	Warehouses       int         `json:"warehouses"`
	ActiveProducts   int         `json:"active_products"`
	UnmappedProducts int         `json:"unmapped_products"`
	TopSKUs          []SKUVolume `json:"top_skus,omitempty"`
}

// OverviewCLI summarises the landed raw data for a day, the quick sanity
// check operators reach for before or after a run.
type OverviewCLI struct {
	store  OverviewStore
	master MasterCounts
}

// NewOverviewCLI constructs the helper around a partition store. master may
// be nil when no database is reachable.
func NewOverviewCLI(store OverviewStore, master MasterCounts) *OverviewCLI {
	return &OverviewCLI{store: store, master: master}
}

// Execute inspects the partitions and reports the summary.
func (c *OverviewCLI) Execute(ctx context.Context, opts OverviewOptions) error {
	if c == nil || c.store == nil {
		return errors.New("overview cli: store not configured")
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	var day time.Time
	if opts.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", opts.Date, time.UTC)
		if err != nil {
			return fmt.Errorf("overview cli: invalid date %q: %w", opts.Date, err)
		}
		day = parsed
	} else {
		days, err := c.store.ListOrderDays()
		if err != nil {
			return err
		}
		if len(days) == 0 {
			return errors.New("overview cli: no order partitions found")
		}
		day = days[len(days)-1]
	}

	summary, err := c.summarise(ctx, day, opts.TopN)
	if err != nil {
		return err
	}

	if opts.JSONOutput {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	fmt.Fprintf(stdout, "overview for %s\n", summary.Day)
	fmt.Fprintf(stdout, "  order_lines=%d total_units=%d distinct_skus=%d\n",
		summary.OrderLines, summary.TotalUnits, summary.DistinctSKUs)
	fmt.Fprintf(stdout, "  stock_records=%d warehouses=%d\n", summary.StockRecords, summary.Warehouses)
	if c.master != nil {
		fmt.Fprintf(stdout, "  active_products=%d unmapped_products=%d\n",
			summary.ActiveProducts, summary.UnmappedProducts)
	}
	for _, top := range summary.TopSKUs {
		fmt.Fprintf(stdout, "  %s %d\n", top.SKU, top.Quantity)
	}
	return nil
}

func (c *OverviewCLI) summarise(ctx context.Context, day time.Time, topN int) (OverviewSummary, error) {
	orders, err := c.store.ReadOrderLines(ctx, day)
	if err != nil {
		return OverviewSummary{}, err
	}
	stock, err := c.store.ReadStockRecords(ctx, day)
	if err != nil && !errors.Is(err, ingest.ErrPartitionMissing) {
		return OverviewSummary{}, err
	}

	volumes := make(map[string]int64, len(orders))
	var totalUnits int64
	for _, line := range orders {
		volumes[line.SKU] += line.Quantity
		totalUnits += line.Quantity
	}

	warehouses := make(map[string]struct{}, 4)
	for _, record := range stock {
		warehouses[record.WarehouseCode] = struct{}{}
	}

	ranked := make([]SKUVolume, 0, len(volumes))
	for sku, qty := range volumes {
		ranked = append(ranked, SKUVolume{SKU: sku, Quantity: qty})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		return ranked[i].SKU < ranked[j].SKU
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	var activeProducts, unmappedProducts int
	if c.master != nil {
		if activeProducts, err = c.master.CountActiveProducts(ctx); err != nil {
			return OverviewSummary{}, err
		}
		if unmappedProducts, err = c.master.CountUnmappedActiveProducts(ctx); err != nil {
			return OverviewSummary{}, err
		}
	}

	return OverviewSummary{
		Day:              day.Format("2006-01-02"),
		OrderLines:       len(orders),
		TotalUnits:       totalUnits,
		DistinctSKUs:     len(volumes),
		StockRecords:     len(stock),
		Warehouses:       len(warehouses),
		ActiveProducts:   activeProducts,
		UnmappedProducts: unmappedProducts,
		TopSKUs:          ranked,
	}, nil
}
