// Package dml implements INSERT/SELECT/UPDATE/DELETE/TRUNCATE, per
// spec.md §4.11: parse → bind → plan → execute, with no statement
// caching, against an engine.Context.
package dml

import (
	"fmt"

	"kizuna/pkg/catalog"
	"kizuna/pkg/dberrors"
	"kizuna/pkg/engine"
	"kizuna/pkg/engine/eval"
	"kizuna/pkg/engine/tableio"
	"kizuna/pkg/logging"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/storage/index"
	"kizuna/pkg/storage/page"
	"kizuna/pkg/storage/record"
	"kizuna/pkg/types"
)

// resolveInsertOrder maps each VALUES position to its target column's
// ordinal index among cols. An explicit column list must name every
// table column exactly once; spec.md §4.11 rejects partial lists.
func resolveInsertOrder(cols []*catalog.ColumnEntry, listed []string) ([]int, error) {
	if len(listed) == 0 {
		order := make([]int, len(cols))
		for i := range cols {
			order[i] = i
		}
		return order, nil
	}
	if len(listed) != len(cols) {
		return nil, dberrors.Newf(dberrors.InvalidArgument, "INSERT column list has %d columns but the table has %d; partial column lists are not supported", len(listed), len(cols))
	}
	order := make([]int, len(listed))
	seen := make(map[int]bool, len(cols))
	for i, name := range listed {
		pos, err := tableio.ColumnPosition(cols, name)
		if err != nil {
			return nil, err
		}
		if seen[pos] {
			return nil, dberrors.Newf(dberrors.DuplicateColumn, "column %q listed more than once", name).WithDetail(name)
		}
		seen[pos] = true
		order[i] = pos
	}
	return order, nil
}

// Insert evaluates and coerces every VALUES row, checks unique-index
// constraints before touching the heap, then inserts the row and every
// index entry, compensating (erasing the row, removing any index
// entries already written) if a later index insert fails.
func Insert(ctx *engine.Context, stmt *ast.InsertStatement) (*engine.Result, error) {
	table, err := ctx.Catalog.GetTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	cols, _ := tableio.ActiveSchema(ctx.Catalog, table.TableID)
	order, err := resolveInsertOrder(cols, stmt.Columns)
	if err != nil {
		return nil, err
	}

	h, err := ctx.OpenTableHeap(table)
	if err != nil {
		return nil, err
	}
	indexes := ctx.Catalog.ListIndexesForTable(table.TableID)
	handles := make([]*index.Handle, len(indexes))
	for i, entry := range indexes {
		handle, err := ctx.OpenIndexHandle(entry)
		if err != nil {
			return nil, err
		}
		handles[i] = handle
	}

	scope := eval.NewScope()
	inserted := 0
	for _, rowExprs := range stmt.Rows {
		if len(rowExprs) != len(order) {
			return nil, dberrors.Newf(dberrors.InvalidArgument, "expected %d values, got %d", len(order), len(rowExprs))
		}

		values := make([]types.Value, len(cols))
		for i, expr := range rowExprs {
			v, err := eval.Scalar(expr, scope, nil)
			if err != nil {
				return nil, err
			}
			target := cols[order[i]]
			coerced, err := types.CoerceToType(v, target.Type)
			if err != nil {
				return nil, err
			}
			if coerced.IsNull && target.NotNull {
				return nil, dberrors.Newf(dberrors.InvalidConstraint, "column %q is NOT NULL", target.Name).WithDetail(target.Name)
			}
			values[order[i]] = coerced
		}

		keys, err := checkUniqueConstraints(indexes, handles, cols, values)
		if err != nil {
			return nil, err
		}

		payload, err := record.Encode(values)
		if err != nil {
			return nil, err
		}
		loc, err := h.Insert(payload)
		if err != nil {
			return nil, err
		}

		if err := insertIndexEntries(indexes, handles, keys, loc); err != nil {
			_ = h.Erase(loc)
			return nil, err
		}
		inserted++
	}

	logging.WithTable(table.Name).Info("inserted rows", "count", inserted)
	return &engine.Result{Message: fmt.Sprintf("%d row(s) inserted", inserted), RowsAffected: inserted}, nil
}

// checkUniqueConstraints pre-computes every index's key for values and,
// for unique indexes, verifies no existing entry already claims it
// (spec.md §7: validate uniqueness via Search before the heap insert).
func checkUniqueConstraints(indexes []*catalog.IndexEntry, handles []*index.Handle, cols []*catalog.ColumnEntry, values []types.Value) ([]indexKey, error) {
	keys := make([]indexKey, len(indexes))
	for i, entry := range indexes {
		key, ok, err := tableio.IndexKey(entry, cols, values)
		if err != nil {
			return nil, err
		}
		keys[i] = indexKey{key: key, ok: ok}
		if !ok || !entry.IsUnique {
			continue
		}
		if _, found, err := handles[i].Search(key); err != nil {
			return nil, err
		} else if found {
			return nil, dberrors.Newf(dberrors.DuplicateKey, "duplicate value for unique index %q", entry.Name).WithDetail(entry.Name)
		}
	}
	return keys, nil
}

type indexKey struct {
	key []byte
	ok  bool
}

// insertIndexEntries inserts keys into every index, undoing any entries
// it already wrote if a later one fails.
func insertIndexEntries(indexes []*catalog.IndexEntry, handles []*index.Handle, keys []indexKey, loc page.RecordID) error {
	for i, k := range keys {
		if !k.ok {
			continue
		}
		if err := handles[i].Insert(k.key, loc); err != nil {
			for j := i - 1; j >= 0; j-- {
				if keys[j].ok {
					_ = handles[j].Remove(keys[j].key, loc)
				}
			}
			return err
		}
	}
	return nil
}
