package masterdata

// SupplierLink maps a product SKU to one of its suppliers. Rows with
// IsPrimary=true designate the default source. The schema intends at most one
// primary link per product, but readers must not rely on that and have to
// treat duplicates as a data defect.
type SupplierLink struct {
	SKU          string
	SupplierCode string
	SupplierName string
	IsPrimary    bool
}

// ProductRule joins an active product with its replenishment rule. Products
// without a rule never produce a ProductRule row.
type ProductRule struct {
	SKU              string
	ProductName      string
	SafetyStock      int64
	CaseSize         int64
	MinOrderQuantity int64
	MaxOrderQuantity int64
	PackSize         int64
	ReorderPoint     int64
}
