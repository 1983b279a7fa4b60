package replenish

import (
	"sort"

	"github.com/replenix/replenix/internal/ingest"
	"github.com/replenix/replenix/internal/masterdata"
)

// StockTotals pools a SKU's stock across every warehouse. Replenishment runs
// on the centralized pool, not per warehouse.
type StockTotals struct {
	Available int64
	Reserved  int64
}

// AggregateOrders sums order quantities per SKU across all stores.
func AggregateOrders(lines []ingest.OrderLine) map[string]int64 {
	totals := make(map[string]int64, len(lines))
	for _, line := range lines {
		totals[line.SKU] += line.Quantity
	}
	return totals
}

// AggregateStock sums available and reserved stock per SKU across all
// warehouses.
func AggregateStock(records []ingest.StockRecord) map[string]StockTotals {
	totals := make(map[string]StockTotals, len(records))
	for _, rec := range records {
		t := totals[rec.SKU]
		t.Available += rec.AvailableStock
		t.Reserved += rec.ReservedStock
		totals[rec.SKU] = t
	}
	return totals
}

// ComputeNetDemand produces exactly one NetDemand entry per product rule.
// SKUs absent from orders or stock default to zero; products without a rule
// are excluded upstream by the rules join, never zero-filled here.
//
//	net = max(orders + safety - (available - reserved), 0)
//
// Reserved exceeding available is a data anomaly but is still fed through the
// same formula; it simply raises net demand and gets flagged separately by
// the quality checks.
func ComputeNetDemand(rules []masterdata.ProductRule, orders map[string]int64, stock map[string]StockTotals) []NetDemand {
	demand := make([]NetDemand, 0, len(rules))
	for _, rule := range rules {
		ordered := orders[rule.SKU]
		pooled := stock[rule.SKU]
		net := ordered + rule.SafetyStock - (pooled.Available - pooled.Reserved)
		if net < 0 {
			net = 0
		}
		demand = append(demand, NetDemand{
			SKU:              rule.SKU,
			ProductName:      rule.ProductName,
			AggregatedOrders: ordered,
			AvailableStock:   pooled.Available,
			ReservedStock:    pooled.Reserved,
			SafetyStock:      rule.SafetyStock,
			NetDemand:        net,
			CaseSize:         rule.CaseSize,
			MinOrderQuantity: rule.MinOrderQuantity,
		})
	}
	sort.Slice(demand, func(i, j int) bool { return demand[i].SKU < demand[j].SKU })
	return demand
}
