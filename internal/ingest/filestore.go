package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// PartitionFormat is the calendar-day layout used for partition directories.
const PartitionFormat = "2006-01-02"

const (
	ordersSubdir = "raw/orders"
	stockSubdir  = "raw/stock"
)

// FileStore reads and writes day-partitioned JSON-lines files under a data
// root, one directory per calendar day:
//
//	<root>/raw/orders/2026-08-31/part-000.jsonl
//	<root>/raw/stock/2026-08-31/part-000.jsonl
//
// This mirrors the layout upstream collectors deliver into.
type FileStore struct {
	root string
}

// NewFileStore constructs a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// ReadOrderLines loads every order line of the day's partition.
func (s *FileStore) ReadOrderLines(ctx context.Context, day time.Time) ([]OrderLine, error) {
	var lines []OrderLine
	err := s.readPartition(ctx, ordersSubdir, day, func(data []byte) error {
		var line OrderLine
		if err := json.Unmarshal(data, &line); err != nil {
			return err
		}
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// ReadStockRecords loads every stock snapshot record of the day's partition.
func (s *FileStore) ReadStockRecords(ctx context.Context, day time.Time) ([]StockRecord, error) {
	var records []StockRecord
	err := s.readPartition(ctx, stockSubdir, day, func(data []byte) error {
		var rec StockRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// HasPartitions reports whether both the orders and stock partitions exist
// for the day. The pipeline refuses to run on half-delivered days.
func (s *FileStore) HasPartitions(day time.Time) (bool, error) {
	for _, subdir := range []string{ordersSubdir, stockSubdir} {
		info, err := os.Stat(s.partitionDir(subdir, day))
		if err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, err
		}
		if !info.IsDir() {
			return false, nil
		}
	}
	return true, nil
}

// ListOrderDays returns the available order partition days, ascending.
func (s *FileStore) ListOrderDays() ([]time.Time, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, ordersSubdir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	days := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		day, err := time.Parse(PartitionFormat, entry.Name())
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

// WriteOrderLines appends a partition file for the day. Used by data seeding,
// never by the pipeline itself.
func (s *FileStore) WriteOrderLines(day time.Time, name string, lines []OrderLine) error {
	return s.writePartition(ordersSubdir, day, name, len(lines), func(enc *json.Encoder, i int) error {
		return enc.Encode(lines[i])
	})
}

// WriteStockRecords appends a partition file for the day.
func (s *FileStore) WriteStockRecords(day time.Time, name string, records []StockRecord) error {
	return s.writePartition(stockSubdir, day, name, len(records), func(enc *json.Encoder, i int) error {
		return enc.Encode(records[i])
	})
}

func (s *FileStore) partitionDir(subdir string, day time.Time) string {
	return filepath.Join(s.root, subdir, day.Format(PartitionFormat))
}

func (s *FileStore) readPartition(ctx context.Context, subdir string, day time.Time, decode func([]byte) error) error {
	dir := s.partitionDir(subdir, day)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrPartitionMissing, dir)
		}
		return err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.readFile(filepath.Join(dir, name), decode); err != nil {
			return fmt.Errorf("ingest: read %s: %w", name, err)
		}
	}
	return nil
}

func (s *FileStore) readFile(path string, decode func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := decode([]byte(line)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *FileStore) writePartition(subdir string, day time.Time, name string, n int, encode func(*json.Encoder, int) error) error {
	dir := s.partitionDir(subdir, day)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if !strings.HasSuffix(name, ".jsonl") {
		name += ".jsonl"
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	writer := bufio.NewWriter(f)
	enc := json.NewEncoder(writer)
	for i := 0; i < n; i++ {
		if err := encode(enc, i); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
