package ddl

import (
	"fmt"

	"kizuna/pkg/catalog"
	"kizuna/pkg/config"
	"kizuna/pkg/dberrors"
	"kizuna/pkg/engine"
	"kizuna/pkg/logging"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/storage/heap"
)

// CreateTable validates stmt, allocates a heap root, registers the table
// and its columns in the catalog, and synthesizes a unique index on the
// primary key column if one was declared. Any failure after the heap
// root is allocated rolls the table and its root back out.
func CreateTable(ctx *engine.Context, stmt *ast.CreateTableStatement) (*engine.Result, error) {
	if stmt.Table == "" {
		return nil, dberrors.New(dberrors.SyntaxError, "table name must not be empty")
	}
	if len(stmt.Columns) == 0 {
		return nil, dberrors.New(dberrors.SyntaxError, "CREATE TABLE requires at least one column")
	}
	if len(stmt.Columns) > config.MaxColumnsPerTable {
		return nil, dberrors.Newf(dberrors.InvalidConstraint, "table would have %d columns, exceeding the maximum of %d", len(stmt.Columns), config.MaxColumnsPerTable)
	}

	var names []string
	var pkColumn string
	pkCount := 0
	for _, col := range stmt.Columns {
		if duplicateNameCaseInsensitive(names, col.Name) {
			return nil, dberrors.Newf(dberrors.DuplicateColumn, "column %q is declared more than once", col.Name).WithDetail(col.Name)
		}
		names = append(names, col.Name)
		if col.PrimaryKey {
			pkCount++
			pkColumn = col.Name
		}
	}
	if pkCount > 1 {
		return nil, dberrors.New(dberrors.InvalidConstraint, "a table may declare at most one PRIMARY KEY column")
	}

	colDefs := make([]catalog.ColumnDef, len(stmt.Columns))
	for i, col := range stmt.Columns {
		colDefs[i] = toColumnDef(col)
	}

	newHeap, err := heap.Create(ctx.PM)
	if err != nil {
		return nil, err
	}
	rootID := newHeap.RootPageID()

	table, err := ctx.Catalog.CreateTable(stmt.Table, colDefs, rootID, stmt.SQLText)
	if err != nil {
		_ = heap.FreeChain(ctx.PM, rootID)
		return nil, err
	}

	if pkColumn != "" {
		indexName := stmt.Table + "_pk"
		if _, err := createIndexEntry(ctx, indexName, table, []string{pkColumn}, true, false); err != nil {
			_, _ = ctx.Catalog.DropTable(stmt.Table)
			_ = heap.FreeChain(ctx.PM, rootID)
			return nil, dberrors.Wrap(err, dberrors.InternalError, "creating implicit primary key index")
		}
	}

	logging.WithTable(stmt.Table).Info("created table", "columns", len(stmt.Columns), "primary_key", pkColumn != "")
	return &engine.Result{Message: fmt.Sprintf("table %q created", stmt.Table)}, nil
}
