// Package ddl implements CREATE/DROP/ALTER TABLE and CREATE/DROP INDEX,
// per spec.md §4.10: validate, mutate the catalog, then mutate the heap
// and index files to match, rolling back the catalog on any storage
// failure.
package ddl

import (
	"strings"

	"kizuna/pkg/catalog"
	"kizuna/pkg/engine"
	"kizuna/pkg/engine/tableio"
	"kizuna/pkg/logging"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/storage/index"
	"kizuna/pkg/storage/page"
	"kizuna/pkg/storage/record"
	"kizuna/pkg/types"
)

// toColumnDef maps a parsed column definition to the catalog's input
// shape. PRIMARY KEY implies NOT NULL and UNIQUE (spec.md §4.10).
func toColumnDef(c ast.ColumnDef) catalog.ColumnDef {
	return catalog.ColumnDef{
		Name:       c.Name,
		Type:       c.Type,
		NotNull:    c.NotNull || c.PrimaryKey,
		PrimaryKey: c.PrimaryKey,
		Unique:     c.Unique || c.PrimaryKey,
		HasDefault: c.HasDefault,
		Default:    c.Default,
	}
}

func duplicateNameCaseInsensitive(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// createIndexEntry registers indexName in the catalog, creates its
// backing file, and optionally populates it from table's current rows.
// On any failure it unwinds everything it already created, so the
// caller sees either a fully-registered index or no trace of one.
func createIndexEntry(ctx *engine.Context, indexName string, table *catalog.TableEntry, columnNames []string, isUnique, populate bool) (*catalog.IndexEntry, error) {
	cols := ctx.Catalog.GetColumns(table.TableID)
	columnIDs := make([]uint32, len(columnNames))
	for i, name := range columnNames {
		pos, err := tableio.ColumnPosition(cols, name)
		if err != nil {
			return nil, err
		}
		columnIDs[i] = cols[pos].ColumnID
	}

	entry, err := ctx.Catalog.CreateIndex(indexName, table.TableID, columnIDs, isUnique)
	if err != nil {
		return nil, err
	}

	handle, err := ctx.Indexes.CreateIndex(entry.IndexID, isUnique)
	if err != nil {
		_, _ = ctx.Catalog.DropIndex(indexName)
		return nil, err
	}

	if populate {
		if err := populateIndexFromHeap(ctx, handle, entry, table, cols); err != nil {
			_ = ctx.Indexes.DropIndex(entry.IndexID)
			_, _ = ctx.Catalog.DropIndex(indexName)
			return nil, err
		}
	}

	if err := ctx.Catalog.SetIndexRoot(entry.IndexID, handle.RootPageID()); err != nil {
		_ = ctx.Indexes.DropIndex(entry.IndexID)
		_, _ = ctx.Catalog.DropIndex(indexName)
		return nil, err
	}

	logging.WithIndex(indexName).Info("created index", "table", table.Name, "unique", isUnique)
	return entry, nil
}

// populateIndexFromHeap scans table's current rows and inserts a key for
// every one whose indexed columns are all non-NULL (spec.md §4.10, §9:
// NULL-valued indexed columns are simply excluded from the index).
func populateIndexFromHeap(ctx *engine.Context, handle *index.Handle, entry *catalog.IndexEntry, table *catalog.TableEntry, cols []*catalog.ColumnEntry) error {
	h, err := ctx.OpenTableHeap(table)
	if err != nil {
		return err
	}
	schema := make([]types.DataType, len(cols))
	for i, c := range cols {
		schema[i] = c.Type
	}
	return h.ForEach(func(loc page.RecordID, payload []byte) error {
		values, derr := record.Decode(payload, schema)
		if derr != nil {
			return derr
		}
		key, ok, kerr := tableio.IndexKey(entry, cols, values)
		if kerr != nil {
			return kerr
		}
		if !ok {
			return nil
		}
		return handle.Insert(key, loc)
	})
}

// dropIndexEntry removes one index's file and catalog row. Used both for
// an explicit DROP INDEX and, one index at a time in a plain loop, during
// DROP TABLE and ALTER TABLE column rebuilds.
func dropIndexEntry(ctx *engine.Context, entry *catalog.IndexEntry) error {
	if err := ctx.Indexes.DropIndex(entry.IndexID); err != nil {
		return err
	}
	if _, err := ctx.Catalog.DropIndex(entry.Name); err != nil {
		return err
	}
	return nil
}
