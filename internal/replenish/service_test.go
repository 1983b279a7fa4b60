package replenish

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/replenix/replenix/internal/ingest"
	"github.com/replenix/replenix/internal/masterdata"
)

type memoryMasterData struct {
	rules []masterdata.ProductRule
	links []masterdata.SupplierLink
}

func (m *memoryMasterData) ListActiveProductRules(ctx context.Context) ([]masterdata.ProductRule, error) {
	return append([]masterdata.ProductRule(nil), m.rules...), nil
}

func (m *memoryMasterData) ListPrimarySupplierLinks(ctx context.Context) ([]masterdata.SupplierLink, error) {
	return append([]masterdata.SupplierLink(nil), m.links...), nil
}

type memoryIngest struct {
	orders  []ingest.OrderLine
	stock   []ingest.StockRecord
	missing bool
}

func (m *memoryIngest) HasPartitions(day time.Time) (bool, error) {
	return !m.missing, nil
}

func (m *memoryIngest) ReadOrderLines(ctx context.Context, day time.Time) ([]ingest.OrderLine, error) {
	return append([]ingest.OrderLine(nil), m.orders...), nil
}

func (m *memoryIngest) ReadStockRecords(ctx context.Context, day time.Time) ([]ingest.StockRecord, error) {
	return append([]ingest.StockRecord(nil), m.stock...), nil
}

type memoryRunStore struct {
	saved []RunResult
}

func (m *memoryRunStore) SaveRun(ctx context.Context, result RunResult) error {
	m.saved = append(m.saved, result)
	return nil
}

func testDay() time.Time {
	return time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
}

func TestServiceRunEndToEnd(t *testing.T) {
	master := &memoryMasterData{
		rules: []masterdata.ProductRule{
			{SKU: "SKU00001", ProductName: "Apples", SafetyStock: 20, CaseSize: 12},
			{SKU: "SKU00002", ProductName: "Milk", SafetyStock: 20, CaseSize: 6},
		},
		links: []masterdata.SupplierLink{
			{SKU: "SKU00001", SupplierCode: "SUP001", SupplierName: "Fresh Foods Ltd", IsPrimary: true},
			{SKU: "SKU00002", SupplierCode: "SUP002", SupplierName: "Dairy Direct", IsPrimary: true},
		},
	}
	raw := &memoryIngest{
		orders: []ingest.OrderLine{
			{POSStoreID: "POS001", SKU: "SKU00001", Quantity: 60},
			{POSStoreID: "POS002", SKU: "SKU00001", Quantity: 40},
		},
		stock: []ingest.StockRecord{
			{WarehouseCode: "WH001", SKU: "SKU00001", AvailableStock: 60, ReservedStock: 10},
			{WarehouseCode: "WH001", SKU: "SKU00002", AvailableStock: 200},
		},
	}
	store := &memoryRunStore{}
	svc := NewService(master, raw, store, nil, nil, ServiceConfig{})

	result, err := svc.Run(context.Background(), testDay())
	require.NoError(t, err)

	// SKU00001: 100 + 20 - (60-10) = 70 -> 72. SKU00002: 0 + 20 - 200 -> 0,
	// excluded from supplier orders.
	require.Len(t, result.Demand, 2)
	require.Len(t, result.Orders, 1)
	require.Equal(t, "SKU00001", result.Orders[0].SKU)
	require.Equal(t, int64(70), result.Orders[0].NetDemand)
	require.Equal(t, int64(72), result.Orders[0].OrderQuantity)

	require.Len(t, store.saved, 1)
	require.Equal(t, RunID(testDay()), store.saved[0].Run.ID)
	require.Equal(t, 2, store.saved[0].Run.ProductCount)
	require.Equal(t, 1, store.saved[0].Run.LineCount)
}

func TestServiceRunSpikeStillProducesOrderLine(t *testing.T) {
	master := &memoryMasterData{
		rules: []masterdata.ProductRule{{SKU: "SKU00001", ProductName: "Apples", SafetyStock: 0, CaseSize: 10}},
		links: []masterdata.SupplierLink{{SKU: "SKU00001", SupplierCode: "SUP001", IsPrimary: true}},
	}
	raw := &memoryIngest{orders: []ingest.OrderLine{{SKU: "SKU00001", Quantity: 1500}}}
	svc := NewService(master, raw, nil, nil, nil, ServiceConfig{SpikeThreshold: 1000})

	result, err := svc.Run(context.Background(), testDay())
	require.NoError(t, err)
	require.Len(t, result.Orders, 1)
	require.Equal(t, int64(1500), result.Orders[0].OrderQuantity)

	var spike *Finding
	for i := range result.Findings {
		if result.Findings[i].Code == FindingDemandSpike {
			spike = &result.Findings[i]
		}
	}
	require.NotNil(t, spike)
	require.Equal(t, SeverityInfo, spike.Severity)
}

func TestServiceRunIsIdempotent(t *testing.T) {
	master := &memoryMasterData{
		rules: []masterdata.ProductRule{
			{SKU: "SKU00001", ProductName: "Apples", SafetyStock: 20, CaseSize: 12},
			{SKU: "SKU00003", ProductName: "Bread", SafetyStock: 5, CaseSize: 24},
		},
		links: []masterdata.SupplierLink{
			{SKU: "SKU00001", SupplierCode: "SUP002", IsPrimary: true},
			{SKU: "SKU00003", SupplierCode: "SUP001", IsPrimary: true},
		},
	}
	raw := &memoryIngest{
		orders: []ingest.OrderLine{{SKU: "SKU00001", Quantity: 33}, {SKU: "SKU00003", Quantity: 7}},
	}
	svc := NewService(master, raw, nil, nil, nil, ServiceConfig{})
	svc.clock = func() time.Time { return time.Date(2026, 8, 31, 22, 0, 0, 0, time.UTC) }

	first, err := svc.Run(context.Background(), testDay())
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), testDay())
	require.NoError(t, err)

	require.Equal(t, first.Run, second.Run)
	require.Equal(t, first.Orders, second.Orders)
	require.Equal(t, first.Findings, second.Findings)

	var bufA, bufB bytes.Buffer
	require.NoError(t, WriteOrdersCSV(&bufA, first.Orders))
	require.NoError(t, WriteOrdersCSV(&bufB, second.Orders))
	require.Equal(t, bufA.Bytes(), bufB.Bytes())
}

func TestServiceRunCollectsAllFindingKinds(t *testing.T) {
	master := &memoryMasterData{
		rules: []masterdata.ProductRule{
			{SKU: "SKU00001", SafetyStock: 10, CaseSize: 12}, // fine
			{SKU: "SKU00002", SafetyStock: 10, CaseSize: 0},  // invalid case size
			{SKU: "SKU00003", SafetyStock: 10, CaseSize: 6},  // unmapped
			{SKU: "SKU00004", SafetyStock: 10, CaseSize: 6},  // ambiguous
		},
		links: []masterdata.SupplierLink{
			{SKU: "SKU00001", SupplierCode: "SUP001", IsPrimary: true},
			{SKU: "SKU00002", SupplierCode: "SUP001", IsPrimary: true},
			{SKU: "SKU00004", SupplierCode: "SUP001", IsPrimary: true},
			{SKU: "SKU00004", SupplierCode: "SUP002", IsPrimary: true},
		},
	}
	svc := NewService(master, &memoryIngest{}, nil, nil, nil, ServiceConfig{})

	result, err := svc.Run(context.Background(), testDay())
	require.NoError(t, err)

	// Only SKU00001 survives derivation.
	require.Len(t, result.Orders, 1)
	require.Equal(t, "SKU00001", result.Orders[0].SKU)

	codes := map[string]int{}
	for _, f := range result.Findings {
		codes[f.Code]++
	}
	require.Equal(t, 1, codes[FindingInvalidCaseSize])
	require.Equal(t, 1, codes[FindingAmbiguousSupplier])
	// One summary finding plus the per-SKU derivation skip.
	require.Equal(t, 2, codes[FindingUnmappedSKUs])
	require.Equal(t, len(result.Findings), result.Run.FindingCount)
}

func TestServiceRunRefusesMissingPartitions(t *testing.T) {
	master := &memoryMasterData{
		rules: []masterdata.ProductRule{{SKU: "SKU00001", ProductName: "Apples", SafetyStock: 20, CaseSize: 12}},
		links: []masterdata.SupplierLink{{SKU: "SKU00001", SupplierCode: "SUP001", IsPrimary: true}},
	}
	store := &memoryRunStore{}
	svc := NewService(master, &memoryIngest{missing: true}, store, nil, nil, ServiceConfig{})

	_, err := svc.Run(context.Background(), testDay())
	require.ErrorIs(t, err, ingest.ErrPartitionMissing)
	require.Empty(t, store.saved)
}

func TestServiceRunWritesArtifact(t *testing.T) {
	dir := t.TempDir()
	master := &memoryMasterData{
		rules: []masterdata.ProductRule{{SKU: "SKU00001", ProductName: "Apples", SafetyStock: 12, CaseSize: 12}},
		links: []masterdata.SupplierLink{{SKU: "SKU00001", SupplierCode: "SUP001", SupplierName: "Fresh Foods Ltd", IsPrimary: true}},
	}
	svc := NewService(master, &memoryIngest{}, nil, nil, nil, ServiceConfig{OutputDir: dir})

	_, err := svc.Run(context.Background(), testDay())
	require.NoError(t, err)

	lines, err := readArtifact(t, dir, testDay())
	require.NoError(t, err)
	require.Equal(t, "supplier_code,supplier_name,sku,product_name,net_demand,case_size,order_quantity", lines[0])
	require.Equal(t, "SUP001,Fresh Foods Ltd,SKU00001,Apples,12,12,12", lines[1])
}
