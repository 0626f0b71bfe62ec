package ddl

import (
	"fmt"

	"kizuna/pkg/catalog"
	"kizuna/pkg/dberrors"
	"kizuna/pkg/engine"
	"kizuna/pkg/engine/tableio"
	"kizuna/pkg/logging"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/storage/heap"
	"kizuna/pkg/storage/record"
	"kizuna/pkg/types"
)

// AlterTable dispatches to AddColumn or DropColumn depending on stmt's
// action (spec.md §4.10).
func AlterTable(ctx *engine.Context, stmt *ast.AlterTableStatement) (*engine.Result, error) {
	table, err := ctx.Catalog.GetTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	switch action := stmt.Action.(type) {
	case *ast.AddColumnAction:
		return addColumn(ctx, table, action.Column)
	case *ast.DropColumnAction:
		return dropColumn(ctx, table, action.Column)
	default:
		return nil, dberrors.Newf(dberrors.InternalError, "unsupported ALTER TABLE action %T", action)
	}
}

// addColumn rewrites table's heap to append def's value to every row
// (its default, or NULL if nullable), registers the column in the
// catalog, and rebuilds every index on the table since the rewrite gives
// every row a new RecordID.
func addColumn(ctx *engine.Context, table *catalog.TableEntry, def ast.ColumnDef) (*engine.Result, error) {
	if def.PrimaryKey {
		return nil, dberrors.New(dberrors.InvalidConstraint, "cannot add a PRIMARY KEY column via ALTER TABLE")
	}

	defaultValue := def.Default
	switch {
	case def.HasDefault:
		coerced, err := types.CoerceToType(def.Default, def.Type)
		if err != nil {
			return nil, err
		}
		defaultValue = coerced
	case def.NotNull:
		return nil, dberrors.Newf(dberrors.InvalidConstraint, "column %q is NOT NULL and has no DEFAULT", def.Name)
	default:
		defaultValue = types.Null(def.Type)
	}

	_, oldSchema := tableio.ActiveSchema(ctx.Catalog, table.TableID)
	oldIndexes := ctx.Catalog.ListIndexesForTable(table.TableID)

	oldHeap, err := ctx.OpenTableHeap(table)
	if err != nil {
		return nil, err
	}

	newRoot, err := heap.Rewrite(ctx.PM, oldHeap, func(payload []byte) ([]byte, error) {
		values, derr := record.Decode(payload, oldSchema)
		if derr != nil {
			return nil, derr
		}
		values = append(values, defaultValue)
		return record.Encode(values)
	})
	if err != nil {
		return nil, err
	}

	catalogDef := catalog.ColumnDef{
		Name:       def.Name,
		Type:       def.Type,
		NotNull:    def.NotNull,
		Unique:     def.Unique,
		HasDefault: true,
		Default:    defaultValue,
	}
	if _, err := ctx.Catalog.AddColumn(table.TableID, catalogDef, nil); err != nil {
		_ = heap.FreeChain(ctx.PM, newRoot)
		return nil, err
	}
	oldRoot := table.RootPageID
	if err := ctx.Catalog.SetTableRoot(table.TableID, newRoot); err != nil {
		return nil, err
	}
	if err := heap.FreeChain(ctx.PM, oldRoot); err != nil {
		logging.WithTable(table.Name).Warn("failed to free superseded heap chain", "error", err)
	}

	if err := rebuildIndexes(ctx, table.TableID, oldIndexes); err != nil {
		return nil, dberrors.Wrap(err, dberrors.InternalError, "rebuilding indexes after ADD COLUMN")
	}

	logging.WithTable(table.Name).Info("added column", "column", def.Name)
	return &engine.Result{Message: fmt.Sprintf("column %q added to %q", def.Name, table.Name)}, nil
}

// dropColumn rewrites table's heap to drop name's value from every row,
// marks the column inactive in the catalog, drops every index that
// referenced it, and rebuilds every surviving index (their RecordIDs
// changed too, since the rewrite gave every row a new location).
func dropColumn(ctx *engine.Context, table *catalog.TableEntry, name string) (*engine.Result, error) {
	oldCols, oldSchema := tableio.ActiveSchema(ctx.Catalog, table.TableID)
	pos, err := tableio.ColumnPosition(oldCols, name)
	if err != nil {
		return nil, err
	}
	if oldCols[pos].PrimaryKey {
		return nil, dberrors.New(dberrors.InvalidConstraint, "cannot drop a primary key column")
	}
	if len(oldCols) <= 1 {
		return nil, dberrors.New(dberrors.InvalidConstraint, "cannot drop the last remaining column")
	}
	droppedColumnID := oldCols[pos].ColumnID

	allIndexes := ctx.Catalog.ListIndexesForTable(table.TableID)
	var surviving []*catalog.IndexEntry
	var obsolete []*catalog.IndexEntry
	for _, idx := range allIndexes {
		if referencesColumn(idx, droppedColumnID) {
			obsolete = append(obsolete, idx)
		} else {
			surviving = append(surviving, idx)
		}
	}

	oldHeap, err := ctx.OpenTableHeap(table)
	if err != nil {
		return nil, err
	}
	newRoot, err := heap.Rewrite(ctx.PM, oldHeap, func(payload []byte) ([]byte, error) {
		values, derr := record.Decode(payload, oldSchema)
		if derr != nil {
			return nil, derr
		}
		values = append(values[:pos], values[pos+1:]...)
		return record.Encode(values)
	})
	if err != nil {
		return nil, err
	}

	if err := ctx.Catalog.DropColumn(table.TableID, name); err != nil {
		_ = heap.FreeChain(ctx.PM, newRoot)
		return nil, err
	}
	oldRoot := table.RootPageID
	if err := ctx.Catalog.SetTableRoot(table.TableID, newRoot); err != nil {
		return nil, err
	}
	if err := heap.FreeChain(ctx.PM, oldRoot); err != nil {
		logging.WithTable(table.Name).Warn("failed to free superseded heap chain", "error", err)
	}

	if err := dropIndexes(ctx, obsolete); err != nil {
		return nil, dberrors.Wrap(err, dberrors.InternalError, "dropping indexes over the removed column")
	}
	if err := rebuildIndexes(ctx, table.TableID, surviving); err != nil {
		return nil, dberrors.Wrap(err, dberrors.InternalError, "rebuilding surviving indexes after DROP COLUMN")
	}

	logging.WithTable(table.Name).Info("dropped column", "column", name)
	return &engine.Result{Message: fmt.Sprintf("column %q dropped from %q", name, table.Name)}, nil
}

func referencesColumn(idx *catalog.IndexEntry, columnID uint32) bool {
	for _, id := range idx.ColumnIDs {
		if id == columnID {
			return true
		}
	}
	return false
}

// rebuildIndexes drops and recreates every listed index against the
// table's current heap, one at a time. Statement execution is
// single-threaded and synchronous (spec.md §5); the rebuilds share
// ctx.PM and ctx.Catalog, so they run sequentially rather than fanned
// out.
func rebuildIndexes(ctx *engine.Context, tableID uint32, indexes []*catalog.IndexEntry) error {
	table, err := ctx.Catalog.GetTableByID(tableID)
	if err != nil {
		return err
	}
	cols := ctx.Catalog.GetColumns(tableID)
	for _, idx := range indexes {
		columnNames := make([]string, len(idx.ColumnIDs))
		for i, colID := range idx.ColumnIDs {
			name, err := columnNameByID(cols, colID)
			if err != nil {
				return err
			}
			columnNames[i] = name
		}
		if err := dropIndexEntry(ctx, idx); err != nil {
			return err
		}
		if _, err := createIndexEntry(ctx, idx.Name, table, columnNames, idx.IsUnique, true); err != nil {
			return err
		}
	}
	return nil
}

func columnNameByID(cols []*catalog.ColumnEntry, columnID uint32) (string, error) {
	for _, c := range cols {
		if c.ColumnID == columnID {
			return c.Name, nil
		}
	}
	return "", dberrors.Newf(dberrors.InternalError, "index references missing column id %d", columnID)
}
