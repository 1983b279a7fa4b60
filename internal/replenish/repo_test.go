package replenish

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestRunDayConflictDetection(t *testing.T) {
	conflict := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "uq_replenishment_runs_day",
	}
	require.True(t, isRunDayConflict(conflict))
	require.True(t, isRunDayConflict(fmt.Errorf("exec insert: %w", conflict)))

	other := &pgconn.PgError{Code: "23505", ConstraintName: "uq_products_sku"}
	require.False(t, isRunDayConflict(other))
	require.False(t, isRunDayConflict(errors.New("dial timeout")))
	require.False(t, isRunDayConflict(nil))
}
