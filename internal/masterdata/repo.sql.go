package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads master data from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListActiveProductRules returns every active product joined with its
// replenishment rule. The inner join deliberately drops active products
// without a rule; they cannot be planned.
func (r *Repository) ListActiveProductRules(ctx context.Context) ([]ProductRule, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("masterdata repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT p.sku, p.product_name, rr.safety_stock, rr.case_size, rr.min_order_quantity, rr.max_order_quantity, rr.pack_size, rr.reorder_point
FROM products p
JOIN replenishment_rules rr ON rr.product_id = p.product_id
WHERE p.is_active = TRUE
ORDER BY p.sku ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rules := []ProductRule{}
	for rows.Next() {
		var rule ProductRule
		if err := rows.Scan(&rule.SKU, &rule.ProductName, &rule.SafetyStock, &rule.CaseSize, &rule.MinOrderQuantity, &rule.MaxOrderQuantity, &rule.PackSize, &rule.ReorderPoint); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// ListPrimarySupplierLinks returns one row per primary supplier link of an
// active product. Duplicate primaries for a SKU come back as separate rows so
// the caller can detect the conflict instead of silently picking one.
func (r *Repository) ListPrimarySupplierLinks(ctx context.Context) ([]SupplierLink, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("masterdata repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT p.sku, s.supplier_code, s.supplier_name
FROM products p
JOIN supplier_products sp ON sp.product_id = p.product_id AND sp.is_primary_supplier = TRUE
JOIN suppliers s ON s.supplier_id = sp.supplier_id
WHERE p.is_active = TRUE
ORDER BY p.sku ASC, s.supplier_code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	links := []SupplierLink{}
	for rows.Next() {
		link := SupplierLink{IsPrimary: true}
		if err := rows.Scan(&link.SKU, &link.SupplierCode, &link.SupplierName); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// CountActiveProducts reports how many products are currently active.
func (r *Repository) CountActiveProducts(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE is_active = TRUE`).Scan(&count)
	return count, err
}

// CountUnmappedActiveProducts reports how many active products lack a primary
// supplier link. Nonzero counts mean derivation will skip SKUs.
func (r *Repository) CountUnmappedActiveProducts(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p
WHERE p.is_active = TRUE
  AND NOT EXISTS (
    SELECT 1 FROM supplier_products sp
    WHERE sp.product_id = p.product_id AND sp.is_primary_supplier = TRUE
  )`).Scan(&count)
	return count, err
}
