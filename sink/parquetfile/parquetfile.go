// Package parquetfile writes generated tables as snappy-compressed Parquet,
// optionally split into Hive-style partition directories.
package parquetfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
)

// PartitionKey identifies one hour of event time.
type PartitionKey struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// HourKey maps a timestamp to its hourly partition.
func HourKey(ts time.Time) PartitionKey {
	ts = ts.UTC()
	return PartitionKey{
		Year:  ts.Year(),
		Month: int(ts.Month()),
		Day:   ts.Day(),
		Hour:  ts.Hour(),
	}
}

// Path renders the key as year=YYYY/month=MM/day=DD/hour=HH.
func (k PartitionKey) Path() string {
	return fmt.Sprintf("year=%04d/month=%02d/day=%02d/hour=%02d", k.Year, k.Month, k.Day, k.Hour)
}

func (k PartitionKey) less(o PartitionKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.Month != o.Month {
		return k.Month < o.Month
	}
	if k.Day != o.Day {
		return k.Day < o.Day
	}
	return k.Hour < o.Hour
}

// Partition describes one written file.
type Partition struct {
	Key  PartitionKey
	Path string
	Rows int
}

// WriteFile writes rows to path, creating parent directories.
func WriteFile[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := parquet.NewGenericWriter[T](f, parquet.Compression(&parquet.Snappy))
	if _, err := w.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("write rows to %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close parquet writer for %s: %w", path, err)
	}
	return f.Close()
}

// ReadFile loads every row of a file written by WriteFile.
func ReadFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// Group splits rows by key. Rows keep their relative order and the groups
// are returned in key order.
func Group[T any](rows []T, key func(T) PartitionKey) ([]PartitionKey, map[PartitionKey][]T) {
	groups := make(map[PartitionKey][]T)
	for _, r := range rows {
		k := key(r)
		groups[k] = append(groups[k], r)
	}
	keys := make([]PartitionKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys, groups
}

// SortKeys orders keys chronologically.
func SortKeys(keys []PartitionKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
}

// WritePartitioned writes one file named fileName under root/<key path>/
// for every distinct key. The key is derived from each row and never
// stored as a column.
func WritePartitioned[T any](root, fileName string, rows []T, key func(T) PartitionKey) ([]Partition, error) {
	keys, groups := Group(rows, key)
	written := make([]Partition, 0, len(keys))
	for _, k := range keys {
		path := filepath.Join(root, filepath.FromSlash(k.Path()), fileName)
		if err := WriteFile(path, groups[k]); err != nil {
			return written, err
		}
		written = append(written, Partition{Key: k, Path: path, Rows: len(groups[k])})
	}
	return written, nil
}
