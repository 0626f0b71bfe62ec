package dml

import (
	"fmt"

	"kizuna/pkg/engine"
	"kizuna/pkg/engine/eval"
	"kizuna/pkg/engine/tableio"
	"kizuna/pkg/logging"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/types"
)

// Delete erases every row matching stmt's WHERE from the heap and every
// index that references the table. rows_affected counts successful heap
// erasures only (spec.md §4.11).
func Delete(ctx *engine.Context, stmt *ast.DeleteStatement) (*engine.Result, error) {
	table, err := ctx.Catalog.GetTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	scope := eval.NewScope()
	tb, err := bindTable(ctx, ast.TableRef{Name: stmt.Table}, scope)
	if err != nil {
		return nil, err
	}

	rows, locs, err := singleTableRows(tb, stmt.Where, scope, nil)
	if err != nil {
		return nil, err
	}

	deleted := 0
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

		for _, entry := range tb.indexes {
			key, ok, err := tableio.IndexKey(entry, tb.cols, row)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			handle := tb.handleFor(entry)
			_ = handle.Remove(key, locs[i])
		}
		if err := tb.heap.Erase(locs[i]); err != nil {
			return nil, err
		}
		deleted++
	}

	logging.WithTable(table.Name).Info("deleted rows", "count", deleted)
	return &engine.Result{Message: fmt.Sprintf("%d row(s) deleted", deleted), RowsAffected: deleted}, nil
}
