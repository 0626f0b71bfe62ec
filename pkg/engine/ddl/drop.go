package ddl

import (
	"fmt"

	"kizuna/pkg/catalog"
	"kizuna/pkg/dberrors"
	"kizuna/pkg/engine"
	"kizuna/pkg/logging"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/storage/heap"
)

// DropTable drops every index over stmt.Table (file and catalog row, one
// at a time), removes the table's catalog rows, and frees its heap page
// chain (spec.md §4.10, §5's ordering guarantee: indexes before catalog
// rows before heap pages).
func DropTable(ctx *engine.Context, stmt *ast.DropTableStatement) (*engine.Result, error) {
	table, err := ctx.Catalog.GetTable(stmt.Table)
	if err != nil {
		if stmt.IfExists && dberrors.Is(err, dberrors.TableNotFound) {
			return &engine.Result{Message: fmt.Sprintf("table %q does not exist (IF EXISTS)", stmt.Table)}, nil
		}
		return nil, err
	}

	indexes := ctx.Catalog.ListIndexesForTable(table.TableID)
	if err := dropIndexes(ctx, indexes); err != nil {
		return nil, dberrors.Wrap(err, dberrors.InternalError, "dropping table indexes")
	}

	if _, err := ctx.Catalog.DropTable(stmt.Table); err != nil {
		return nil, err
	}

	if err := heap.FreeChain(ctx.PM, table.RootPageID); err != nil {
		logging.WithTable(stmt.Table).Warn("failed to free heap chain after DROP TABLE", "error", err)
	}

	logging.WithTable(stmt.Table).Info("dropped table", "indexes", len(indexes))
	return &engine.Result{Message: fmt.Sprintf("table %q dropped", stmt.Table)}, nil
}

// dropIndexes drops each of indexes, one at a time. Statement execution
// is single-threaded and synchronous (spec.md §5), so index-file
// cascades run sequentially rather than fanned out.
func dropIndexes(ctx *engine.Context, indexes []*catalog.IndexEntry) error {
	for _, entry := range indexes {
		if err := dropIndexEntry(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}
