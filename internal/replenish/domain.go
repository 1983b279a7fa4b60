package replenish

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// NetDemand is the per-SKU replenishment need for a single day, derived from
// aggregated orders, pooled stock and the product's rule. Recomputed in full
// on every run; never carried across days.
type NetDemand struct {
	SKU              string `json:"sku"`
	ProductName      string `json:"product_name"`
	AggregatedOrders int64  `json:"aggregated_orders"`
	AvailableStock   int64  `json:"available_stock"`
	ReservedStock    int64  `json:"reserved_stock"`
	SafetyStock      int64  `json:"safety_stock"`
	NetDemand        int64  `json:"net_demand"`
	CaseSize         int64  `json:"case_size"`
	MinOrderQuantity int64  `json:"min_order_quantity"`
}

// SupplierOrderLine is one purchase-order line item addressed to a product's
// primary supplier. Ordered by (supplier_code, sku) ascending.
type SupplierOrderLine struct {
	SupplierCode  string `json:"supplier_code"`
	SupplierName  string `json:"supplier_name"`
	SKU           string `json:"sku"`
	ProductName   string `json:"product_name"`
	NetDemand     int64  `json:"net_demand"`
	CaseSize      int64  `json:"case_size"`
	OrderQuantity int64  `json:"order_quantity"`
}

// Severity classifies a data-quality finding.
type Severity string

const (
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Finding codes.
const (
	FindingUnmappedSKUs      = "UNMAPPED_SKUS"
	FindingDemandSpike       = "DEMAND_SPIKE"
	FindingAmbiguousSupplier = "AMBIGUOUS_SUPPLIER"
	FindingInvalidCaseSize   = "INVALID_CASE_SIZE"
)

// Finding is an advisory data-quality observation. Findings never abort a
// run; the caller decides what to do with them.
type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	SKU      string   `json:"sku,omitempty"`
	Message  string   `json:"message"`
}

// Run describes one completed pipeline execution for a business day.
type Run struct {
	ID           uuid.UUID `json:"id"`
	Day          time.Time `json:"day"`
	ProductCount int       `json:"product_count"`
	DemandCount  int       `json:"demand_count"`
	LineCount    int       `json:"line_count"`
	FindingCount int       `json:"finding_count"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// RunResult bundles everything a run produced.
type RunResult struct {
	Run      Run
	Demand   []NetDemand
	Orders   []SupplierOrderLine
	Findings []Finding
}

var (
	// ErrInvalidCaseSize occurs when a rule carries a case size below 1.
	ErrInvalidCaseSize = errors.New("replenish: case size must be at least 1")
	// ErrAmbiguousSupplier occurs when a SKU has more than one primary supplier.
	ErrAmbiguousSupplier = errors.New("replenish: multiple primary suppliers")
	// ErrNoPrimarySupplier occurs when a SKU with demand has no primary supplier.
	ErrNoPrimarySupplier = errors.New("replenish: no primary supplier")
	// ErrRunNotFound indicates no persisted run for the requested day.
	ErrRunNotFound = errors.New("replenish: run not found")
	// ErrRunConflict indicates a concurrent run already wrote the same day.
	ErrRunConflict = errors.New("replenish: run already in progress for day")
)

// RunID returns the deterministic identifier of a day's run. Re-running the
// same day reuses the same ID so overwrites stay idempotent.
func RunID(day time.Time) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte("replenish:run:"+day.Format("2006-01-02")))
}
