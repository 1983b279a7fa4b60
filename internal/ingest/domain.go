package ingest

import (
	"errors"

	"github.com/shopspring/decimal"
)

// OrderLine is a single point-of-sale order line for one day. Partitions are
// append-only; the pipeline only ever reads them.
type OrderLine struct {
	OrderID    string          `json:"order_id"`
	POSStoreID string          `json:"pos_store_id"`
	SKU        string          `json:"sku"`
	Quantity   int64           `json:"quantity"`
	OrderDate  string          `json:"order_date"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// StockRecord is one warehouse's stock snapshot of a SKU for one day.
type StockRecord struct {
	WarehouseCode  string `json:"warehouse_code"`
	SKU            string `json:"sku"`
	AvailableStock int64  `json:"available_stock"`
	ReservedStock  int64  `json:"reserved_stock"`
	SnapshotDate   string `json:"snapshot_date"`
}

// ErrPartitionMissing indicates no data landed for the requested day.
var ErrPartitionMissing = errors.New("ingest: partition missing")
