package replenish

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const csvBufferSize = 32 * 1024

var csvHeader = []string{"supplier_code", "supplier_name", "sku", "product_name", "net_demand", "case_size", "order_quantity"}

// WriteOrdersCSV serialises supplier order lines as delimited text: one
// header plus one row per line, in the already-deterministic input order.
func WriteOrdersCSV(w io.Writer, lines []SupplierOrderLine) error {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, line := range lines {
		row := []string{
			line.SupplierCode,
			line.SupplierName,
			line.SKU,
			line.ProductName,
			strconv.FormatInt(line.NetDemand, 10),
			strconv.FormatInt(line.CaseSize, 10),
			strconv.FormatInt(line.OrderQuantity, 10),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return buf.Flush()
}

// ArtifactName returns the output file name for a day's run.
func ArtifactName(day time.Time) string {
	return fmt.Sprintf("supplier_orders_%s.csv", day.Format("20060102"))
}

// WriteOrdersArtifact writes the day's CSV into dir, replacing any previous
// artifact for the same day. Same inputs produce a byte-identical file.
func WriteOrdersArtifact(dir string, day time.Time, lines []SupplierOrderLine) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ArtifactName(day))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteOrdersCSV(f, lines); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
