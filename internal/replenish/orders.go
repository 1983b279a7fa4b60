package replenish

import (
	"fmt"
	"sort"

	"github.com/replenix/replenix/internal/masterdata"
)

// DeriveSupplierOrders maps every NetDemand entry with positive demand to a
// purchase-order line addressed at the product's primary supplier.
//
// SKUs that cannot be ordered are skipped, never silently: a missing primary
// supplier, a conflicting (duplicate) primary supplier and a case size below
// one each produce a finding and drop only that SKU. The run itself always
// completes; an empty result is a valid terminal state.
//
// Order quantity always rounds UP to the next full case. Min/max order
// quantities from the rule are carried through but not clamped.
func DeriveSupplierOrders(demand []NetDemand, links []masterdata.SupplierLink) ([]SupplierOrderLine, []Finding) {
	primaries := make(map[string][]masterdata.SupplierLink, len(links))
	for _, link := range links {
		if !link.IsPrimary {
			continue
		}
		primaries[link.SKU] = append(primaries[link.SKU], link)
	}

	lines := make([]SupplierOrderLine, 0, len(demand))
	var findings []Finding
	for _, d := range demand {
		if d.NetDemand <= 0 {
			continue
		}
		if d.CaseSize < 1 {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Code:     FindingInvalidCaseSize,
				SKU:      d.SKU,
				Message:  fmt.Sprintf("%v: sku %s has case_size %d", ErrInvalidCaseSize, d.SKU, d.CaseSize),
			})
			continue
		}
		candidates := primaries[d.SKU]
		switch {
		case len(candidates) == 0:
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Code:     FindingUnmappedSKUs,
				SKU:      d.SKU,
				Message:  fmt.Sprintf("%v: sku %s excluded from supplier orders", ErrNoPrimarySupplier, d.SKU),
			})
			continue
		case len(candidates) > 1:
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Code:     FindingAmbiguousSupplier,
				SKU:      d.SKU,
				Message:  fmt.Sprintf("%v: sku %s has %d primary supplier links", ErrAmbiguousSupplier, d.SKU, len(candidates)),
			})
			continue
		}
		supplier := candidates[0]
		lines = append(lines, SupplierOrderLine{
			SupplierCode:  supplier.SupplierCode,
			SupplierName:  supplier.SupplierName,
			SKU:           d.SKU,
			ProductName:   d.ProductName,
			NetDemand:     d.NetDemand,
			CaseSize:      d.CaseSize,
			OrderQuantity: roundUpToCase(d.NetDemand, d.CaseSize),
		})
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].SupplierCode != lines[j].SupplierCode {
			return lines[i].SupplierCode < lines[j].SupplierCode
		}
		return lines[i].SKU < lines[j].SKU
	})
	return lines, findings
}

// roundUpToCase returns the smallest multiple of caseSize >= qty.
func roundUpToCase(qty, caseSize int64) int64 {
	return (qty + caseSize - 1) / caseSize * caseSize
}
