package dml

import (
	"fmt"

	"kizuna/pkg/engine"
	"kizuna/pkg/logging"
	"kizuna/pkg/sql/ast"
)

// Truncate empties stmt.Table's heap and every one of its indexes.
// Clearing the indexes (rather than leaving them stale, per spec.md
// §4.11's Open Question) keeps a truncated table queryable through its
// indexes afterward instead of leaving them pointing at freed pages.
func Truncate(ctx *engine.Context, stmt *ast.TruncateStatement) (*engine.Result, error) {
	table, err := ctx.Catalog.GetTable(stmt.Table)
	if err != nil {
		return nil, err
	}

	h, err := ctx.OpenTableHeap(table)
	if err != nil {
		return nil, err
	}
	if err := h.Truncate(); err != nil {
		return nil, err
	}

	for _, entry := range ctx.Catalog.ListIndexesForTable(table.TableID) {
		if err := ctx.Indexes.DropIndex(entry.IndexID); err != nil {
			return nil, err
		}
		handle, err := ctx.Indexes.CreateIndex(entry.IndexID, entry.IsUnique)
		if err != nil {
			return nil, err
		}
		if err := ctx.Catalog.SetIndexRoot(entry.IndexID, handle.RootPageID()); err != nil {
			return nil, err
		}
	}

	logging.WithTable(table.Name).Info("truncated table")
	return &engine.Result{Message: fmt.Sprintf("table %q truncated", table.Name)}, nil
}
