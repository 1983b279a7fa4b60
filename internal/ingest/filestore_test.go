package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	orders := []OrderLine{
		{OrderID: "ORD-1", POSStoreID: "POS001", SKU: "SKU00001", Quantity: 3, OrderDate: "2026-08-31", UnitPrice: decimal.NewFromFloat(4.50)},
		{OrderID: "ORD-2", POSStoreID: "POS002", SKU: "SKU00002", Quantity: 1, OrderDate: "2026-08-31", UnitPrice: decimal.NewFromFloat(12.00)},
	}
	require.NoError(t, store.WriteOrderLines(day, "part-000", orders))

	stock := []StockRecord{
		{WarehouseCode: "WH001", SKU: "SKU00001", AvailableStock: 40, ReservedStock: 5, SnapshotDate: "2026-08-31"},
	}
	require.NoError(t, store.WriteStockRecords(day, "part-000", stock))

	gotOrders, err := store.ReadOrderLines(ctx, day)
	require.NoError(t, err)
	require.Len(t, gotOrders, 2)
	require.Equal(t, "SKU00001", gotOrders[0].SKU)
	require.True(t, gotOrders[0].UnitPrice.Equal(decimal.NewFromFloat(4.50)))

	gotStock, err := store.ReadStockRecords(ctx, day)
	require.NoError(t, err)
	require.Len(t, gotStock, 1)
	require.Equal(t, int64(40), gotStock[0].AvailableStock)

	ok, err := store.HasPartitions(day)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFileStoreMergesPartitionFiles(t *testing.T) {
	store := NewFileStore(t.TempDir())
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.WriteOrderLines(day, "part-001", []OrderLine{{OrderID: "B", SKU: "SKU00002", Quantity: 2}}))
	require.NoError(t, store.WriteOrderLines(day, "part-000", []OrderLine{{OrderID: "A", SKU: "SKU00001", Quantity: 1}}))

	lines, err := store.ReadOrderLines(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	// Files are read in lexical order for reproducible output.
	require.Equal(t, "A", lines[0].OrderID)
	require.Equal(t, "B", lines[1].OrderID)
}

func TestFileStoreMissingPartition(t *testing.T) {
	store := NewFileStore(t.TempDir())
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	_, err := store.ReadOrderLines(context.Background(), day)
	require.ErrorIs(t, err, ErrPartitionMissing)

	ok, err := store.HasPartitions(day)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileStoreListOrderDays(t *testing.T) {
	store := NewFileStore(t.TempDir())
	d1 := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.WriteOrderLines(d2, "part-000", nil))
	require.NoError(t, store.WriteOrderLines(d1, "part-000", nil))

	days, err := store.ListOrderDays()
	require.NoError(t, err)
	require.Len(t, days, 2)
	require.True(t, days[0].Equal(d1))
	require.True(t, days[1].Equal(d2))
}
