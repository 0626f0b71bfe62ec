// Package tableio bridges the catalog's column metadata to the record
// codec and B+ tree key encoding: it knows how to turn a table's active
// column list into a decode schema, and a row's values into an index key,
// so the DDL and DML executors don't each re-derive this bookkeeping.
package tableio

import (
	"kizuna/pkg/catalog"
	"kizuna/pkg/dberrors"
	"kizuna/pkg/engine/indexkey"
	"kizuna/pkg/types"
)

// ActiveSchema returns tableID's active columns (ordinal order) and their
// parallel DataType slice, the shape TableHeap rows are encoded against.
func ActiveSchema(cat *catalog.Catalog, tableID uint32) ([]*catalog.ColumnEntry, []types.DataType) {
	cols := cat.GetColumns(tableID)
	schema := make([]types.DataType, len(cols))
	for i, c := range cols {
		schema[i] = c.Type
	}
	return cols, schema
}

// ColumnPosition returns the ordinal (row-vector) position of name among
// cols, and COLUMN_NOT_FOUND if absent.
func ColumnPosition(cols []*catalog.ColumnEntry, name string) (int, error) {
	for i, c := range cols {
		if c.Name == name {
			return i, nil
		}
	}
	return 0, dberrors.Newf(dberrors.ColumnNotFound, "column %q does not exist", name).WithDetail(name)
}

// IndexKey builds the B+ tree key for entry from a decoded row, given the
// row's active column list. It returns ok=false when any indexed column
// value is NULL: NULL values are never indexed, so lookups by an
// indexed-column IS NULL predicate always fall back to a sequential scan.
func IndexKey(entry *catalog.IndexEntry, cols []*catalog.ColumnEntry, values []types.Value) ([]byte, bool, error) {
	keyValues := make([]types.Value, len(entry.ColumnIDs))
	for i, colID := range entry.ColumnIDs {
		pos := -1
		for j, c := range cols {
			if c.ColumnID == colID {
				pos = j
				break
			}
		}
		if pos < 0 {
			return nil, false, dberrors.Newf(dberrors.InternalError, "index %q references missing column id %d", entry.Name, colID)
		}
		if values[pos].IsNull {
			return nil, false, nil
		}
		keyValues[i] = values[pos]
	}
	key, err := indexkey.Encode(keyValues)
	return key, true, err
}

// EqualityPrefixKey builds a probe key from literal values, given in the
// index's column order and already coerced to those columns' types, used
// to test an equality-index access path during WHERE evaluation. It
// returns ok=false if any value is NULL.
func EqualityPrefixKey(values []types.Value) ([]byte, bool, error) {
	for _, v := range values {
		if v.IsNull {
			return nil, false, nil
		}
	}
	key, err := indexkey.Encode(values)
	return key, true, err
}
