// Package parquet writes the dimensional tables as partitioned parquet files
// with overwrite semantics over a lake.Store.
package parquet

import (
	"path"
	"sort"
	"strings"

	parquetgo "github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"

	"github.com/sparkify/lake"
)

// HiveDefaultPartition is the directory value used when a partition column
// is null, matching the hive layout convention.
const HiveDefaultPartition = "__HIVE_DEFAULT_PARTITION__"

// partName is the file name of a part within a table or partition directory.
// One part per partition keeps repeated runs byte-identical.
const partName = "part-00000.parquet"

// Partitioner describes a table's partition columns. Values returns the
// column values of a row in the same order as Columns; nil means null.
type Partitioner[T any] struct {
	Columns []string
	Values  func(T) []*string
}

// Write replaces the table at the given location with rows. Prior contents
// under the location are removed first, never appended to. When part is
// non-nil, rows are grouped into hive-style col=value directories and each
// partition is written in sorted key order. Zero rows is not an error: a
// schema-only part file is still written so the table exists.
func Write[T any](store lake.Store, table string, rows []T, part *Partitioner[T]) error {
	if err := store.RemoveAll(table); err != nil {
		return errors.Wrapf(err, "clearing %s", table)
	}
	if part == nil {
		return writeFile(store, path.Join(table, partName), rows)
	}

	groups := make(map[string][]T)
	for _, row := range rows {
		values := part.Values(row)
		segs := make([]string, len(values))
		for i, v := range values {
			value := HiveDefaultPartition
			if v != nil {
				value = *v
			}
			segs[i] = part.Columns[i] + "=" + value
		}
		dir := strings.Join(segs, "/")
		groups[dir] = append(groups[dir], row)
	}
	if len(groups) == 0 {
		return writeFile(store, path.Join(table, partName), rows)
	}

	dirs := make([]string, 0, len(groups))
	for dir := range groups {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		if err := writeFile(store, path.Join(table, dir, partName), groups[dir]); err != nil {
			return err
		}
	}
	return nil
}

func writeFile[T any](store lake.Store, key string, rows []T) error {
	w, err := store.Create(key)
	if err != nil {
		return errors.Wrapf(err, "creating %s", key)
	}
	pw := parquetgo.NewGenericWriter[T](w)
	for len(rows) > 0 {
		n, err := pw.Write(rows)
		if err != nil {
			w.Close()
			return errors.Wrapf(err, "writing rows to %s", key)
		}
		rows = rows[n:]
	}
	if err := pw.Close(); err != nil {
		w.Close()
		return errors.Wrapf(err, "closing parquet writer for %s", key)
	}
	return errors.Wrapf(w.Close(), "closing %s", key)
}
