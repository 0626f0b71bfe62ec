package dml

import (
	"fmt"

	"kizuna/pkg/dberrors"
	"kizuna/pkg/engine"
	"kizuna/pkg/engine/eval"
	"kizuna/pkg/engine/tableio"
	"kizuna/pkg/logging"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/storage/page"
	"kizuna/pkg/storage/record"
	"kizuna/pkg/types"
)

// Update evaluates stmt's WHERE over tb's rows, computes each matching
// row's new values from the SET list, then per row: checks unique-index
// constraints against the new key, calls heap.Update, and moves every
// affected index entry from the old key/rid to the new one.
func Update(ctx *engine.Context, stmt *ast.UpdateStatement) (*engine.Result, error) {
	table, err := ctx.Catalog.GetTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	scope := eval.NewScope()
	tb, err := bindTable(ctx, ast.TableRef{Name: stmt.Table}, scope)
	if err != nil {
		return nil, err
	}

	setPos := make([]int, len(stmt.Set))
	for i, assign := range stmt.Set {
		pos, err := tableio.ColumnPosition(tb.cols, assign.Column)
		if err != nil {
			return nil, err
		}
		setPos[i] = pos
	}

	rows, locs, err := singleTableRows(tb, stmt.Where, scope, nil)
	if err != nil {
		return nil, err
	}

	updated := 0
	for i, row := range rows {
		if stmt.Where != nil {
			matched, err := eval.Predicate(stmt.Where, scope, row)
			if err != nil {
				return nil, err
			}
			if matched != types.True {
				continue
			}
		}

		newValues := append([]types.Value{}, row...)
		for j, assign := range stmt.Set {
			v, err := eval.Scalar(assign.Value, scope, row)
			if err != nil {
				return nil, err
			}
			target := tb.cols[setPos[j]]
			coerced, err := types.CoerceToType(v, target.Type)
			if err != nil {
				return nil, err
			}
			if coerced.IsNull && target.NotNull {
				return nil, dberrors.Newf(dberrors.InvalidConstraint, "column %q is NOT NULL", target.Name).WithDetail(target.Name)
			}
			newValues[setPos[j]] = coerced
		}

		if err := applyUpdate(tb, row, newValues, locs[i]); err != nil {
			return nil, err
		}
		updated++
	}

	logging.WithTable(table.Name).Info("updated rows", "count", updated)
	return &engine.Result{Message: fmt.Sprintf("%d row(s) updated", updated), RowsAffected: updated}, nil
}

// applyUpdate validates uniqueness for oldValues -> newValues's changed
// keys, updates the heap row, and reconciles every index: remove the old
// (key, rid), insert the new one at the row's possibly-relocated rid.
func applyUpdate(tb *tableBinding, oldValues, newValues eval.Row, loc page.RecordID) error {
	oldKeys := make([]indexProbe, len(tb.indexes))
	newKeys := make([]indexProbe, len(tb.indexes))
	for i, entry := range tb.indexes {
		okey, isOK, err := tableio.IndexKey(entry, tb.cols, oldValues)
		if err != nil {
			return err
		}
		oldKeys[i] = indexProbe{key: okey, ok: isOK}
		nk, isOK, err := tableio.IndexKey(entry, tb.cols, newValues)
		if err != nil {
			return err
		}
		newKeys[i] = indexProbe{key: nk, ok: isOK}

		if !entry.IsUnique || !newKeys[i].ok {
			continue
		}
		if oldKeys[i].ok && bytesEqual(oldKeys[i].key, newKeys[i].key) {
			continue
		}
		if _, found, err := tb.handles[i].Search(nk); err != nil {
			return err
		} else if found {
			return dberrors.Newf(dberrors.DuplicateKey, "duplicate value for unique index %q", entry.Name).WithDetail(entry.Name)
		}
	}

	payload, err := record.Encode(newValues)
	if err != nil {
		return err
	}
	newLoc, _, err := tb.heap.Update(loc, payload)
	if err != nil {
		return err
	}

	for i := range tb.indexes {
		if oldKeys[i].ok {
			_ = tb.handles[i].Remove(oldKeys[i].key, loc)
		}
		if newKeys[i].ok {
			if err := tb.handles[i].Insert(newKeys[i].key, newLoc); err != nil {
				return err
			}
		}
	}
	return nil
}

type indexProbe struct {
	key []byte
	ok  bool
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
