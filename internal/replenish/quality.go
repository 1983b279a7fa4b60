package replenish

import (
	"fmt"
	"sort"

	"github.com/replenix/replenix/internal/masterdata"
)

// DefaultSpikeThreshold is the daily per-SKU order quantity above which a
// demand spike is reported.
const DefaultSpikeThreshold = 1000

// CheckUnmappedSKUs reports active planable products with no primary supplier
// link. A single WARNING finding summarises the count; derivation excludes
// the affected SKUs on its own, so this never blocks the run.
func CheckUnmappedSKUs(rules []masterdata.ProductRule, links []masterdata.SupplierLink) []Finding {
	mapped := make(map[string]struct{}, len(links))
	for _, link := range links {
		if link.IsPrimary {
			mapped[link.SKU] = struct{}{}
		}
	}
	unmapped := 0
	for _, rule := range rules {
		if _, ok := mapped[rule.SKU]; !ok {
			unmapped++
		}
	}
	if unmapped == 0 {
		return nil
	}
	return []Finding{{
		Severity: SeverityWarning,
		Code:     FindingUnmappedSKUs,
		Message:  fmt.Sprintf("%d active products without a primary supplier mapping", unmapped),
	}}
}

// CheckDemandSpikes reports each SKU whose aggregated daily demand exceeds
// the threshold. Advisory only; the SKU still produces an order line.
func CheckDemandSpikes(orders map[string]int64, threshold int64) []Finding {
	if threshold <= 0 {
		threshold = DefaultSpikeThreshold
	}
	var findings []Finding
	for sku, qty := range orders {
		if qty > threshold {
			findings = append(findings, Finding{
				Severity: SeverityInfo,
				Code:     FindingDemandSpike,
				SKU:      sku,
				Message:  fmt.Sprintf("sku %s ordered %d units in one day (threshold %d)", sku, qty, threshold),
			})
		}
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].SKU < findings[j].SKU })
	return findings
}
