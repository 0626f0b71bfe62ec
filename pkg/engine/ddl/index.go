package ddl

import (
	"fmt"

	"kizuna/pkg/dberrors"
	"kizuna/pkg/engine"
	"kizuna/pkg/sql/ast"
)

// CreateIndex validates stmt's column list against table's active
// columns, then registers and populates a brand new index (spec.md
// §4.10).
func CreateIndex(ctx *engine.Context, stmt *ast.CreateIndexStatement) (*engine.Result, error) {
	if stmt.Index == "" {
		return nil, dberrors.New(dberrors.SyntaxError, "index name must not be empty")
	}
	if len(stmt.Columns) == 0 {
		return nil, dberrors.New(dberrors.InvalidArgument, "CREATE INDEX requires at least one column")
	}
	if _, err := ctx.Catalog.GetIndexByName(stmt.Index); err == nil {
		return nil, dberrors.Newf(dberrors.InvalidArgument, "index %q already exists", stmt.Index).WithDetail(stmt.Index)
	}

	table, err := ctx.Catalog.GetTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	for _, name := range stmt.Columns {
		if _, err := ctx.Catalog.GetColumn(table.TableID, name); err != nil {
			return nil, err
		}
	}

	if _, err := createIndexEntry(ctx, stmt.Index, table, stmt.Columns, stmt.IsUnique, true); err != nil {
		return nil, err
	}
	return &engine.Result{Message: fmt.Sprintf("index %q created on %q", stmt.Index, stmt.Table)}, nil
}

// DropIndex removes stmt.Index's file and catalog row. IF EXISTS turns a
// missing index into a no-op (spec.md §4.10).
func DropIndex(ctx *engine.Context, stmt *ast.DropIndexStatement) (*engine.Result, error) {
	entry, err := ctx.Catalog.GetIndexByName(stmt.Index)
	if err != nil {
		if stmt.IfExists && dberrors.Is(err, dberrors.IndexNotFound) {
			return &engine.Result{Message: fmt.Sprintf("index %q does not exist (IF EXISTS)", stmt.Index)}, nil
		}
		return nil, err
	}
	if err := dropIndexEntry(ctx, entry); err != nil {
		return nil, err
	}
	return &engine.Result{Message: fmt.Sprintf("index %q dropped", stmt.Index)}, nil
}
