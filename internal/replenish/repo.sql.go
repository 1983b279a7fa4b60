package replenish

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/replenix/replenix/internal/platform/db"
)

// Repository persists completed runs in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun stores a run with its order lines and findings. A re-run for the
// same day replaces the previous artifact inside one transaction, keeping
// per-day output write-once from a reader's point of view.
func (r *Repository) SaveRun(ctx context.Context, result RunResult) error {
	if r == nil || r.pool == nil {
		return errors.New("replenish repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM replenishment_runs WHERE run_day=$1`, result.Run.Day); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO replenishment_runs (id, run_day, product_count, demand_count, line_count, finding_count, generated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			result.Run.ID, result.Run.Day, result.Run.ProductCount, result.Run.DemandCount, result.Run.LineCount, result.Run.FindingCount, result.Run.GeneratedAt); err != nil {
			if isRunDayConflict(err) {
				return ErrRunConflict
			}
			return err
		}
		for _, line := range result.Orders {
			if _, err := tx.Exec(ctx, `INSERT INTO supplier_order_lines (run_id, supplier_code, supplier_name, sku, product_name, net_demand, case_size, order_quantity)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				result.Run.ID, line.SupplierCode, line.SupplierName, line.SKU, line.ProductName, line.NetDemand, line.CaseSize, line.OrderQuantity); err != nil {
				return err
			}
		}
		for _, finding := range result.Findings {
			if _, err := tx.Exec(ctx, `INSERT INTO run_findings (run_id, severity, code, sku, message)
VALUES ($1,$2,$3,$4,$5)`,
				result.Run.ID, string(finding.Severity), finding.Code, nullString(finding.SKU), finding.Message); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRun loads a persisted run for a day.
func (r *Repository) GetRun(ctx context.Context, day time.Time) (Run, error) {
	var run Run
	err := r.pool.QueryRow(ctx, `SELECT id, run_day, product_count, demand_count, line_count, finding_count, generated_at
FROM replenishment_runs WHERE run_day=$1`, day).
		Scan(&run.ID, &run.Day, &run.ProductCount, &run.DemandCount, &run.LineCount, &run.FindingCount, &run.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, err
	}
	return run, nil
}

// GetLatestRun loads the most recent persisted run.
func (r *Repository) GetLatestRun(ctx context.Context) (Run, error) {
	var run Run
	err := r.pool.QueryRow(ctx, `SELECT id, run_day, product_count, demand_count, line_count, finding_count, generated_at
FROM replenishment_runs ORDER BY run_day DESC LIMIT 1`).
		Scan(&run.ID, &run.Day, &run.ProductCount, &run.DemandCount, &run.LineCount, &run.FindingCount, &run.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, err
	}
	return run, nil
}

// ListOrderLines returns a run's order lines in stable output order.
func (r *Repository) ListOrderLines(ctx context.Context, day time.Time) ([]SupplierOrderLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT l.supplier_code, l.supplier_name, l.sku, l.product_name, l.net_demand, l.case_size, l.order_quantity
FROM supplier_order_lines l
JOIN replenishment_runs r ON r.id = l.run_id
WHERE r.run_day = $1
ORDER BY l.supplier_code ASC, l.sku ASC`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []SupplierOrderLine{}
	for rows.Next() {
		var line SupplierOrderLine
		if err := rows.Scan(&line.SupplierCode, &line.SupplierName, &line.SKU, &line.ProductName, &line.NetDemand, &line.CaseSize, &line.OrderQuantity); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListFindings returns a run's findings.
func (r *Repository) ListFindings(ctx context.Context, day time.Time) ([]Finding, error) {
	rows, err := r.pool.Query(ctx, `SELECT f.severity, f.code, COALESCE(f.sku, ''), f.message
FROM run_findings f
JOIN replenishment_runs r ON r.id = f.run_id
WHERE r.run_day = $1
ORDER BY f.id ASC`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	findings := []Finding{}
	for rows.Next() {
		var f Finding
		var severity string
		if err := rows.Scan(&severity, &f.Code, &f.SKU, &f.Message); err != nil {
			return nil, err
		}
		f.Severity = Severity(severity)
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// isRunDayConflict recognises the unique-day constraint violation raised when
// two runs insert the same day concurrently.
func isRunDayConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_replenishment_runs_day"
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
