package dml

import (
	"kizuna/pkg/catalog"
	"kizuna/pkg/engine"
	"kizuna/pkg/engine/eval"
	"kizuna/pkg/engine/tableio"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/storage/heap"
	"kizuna/pkg/storage/index"
	"kizuna/pkg/storage/page"
	"kizuna/pkg/storage/record"
	"kizuna/pkg/types"
)

// tableBinding is one FROM/JOIN table resolved against the catalog and
// registered into a shared eval.Scope, per spec.md §4.11's "flat
// bound-column list in table-then-column order."
type tableBinding struct {
	entry   *catalog.TableEntry
	alias   string
	cols    []*catalog.ColumnEntry
	schema  []types.DataType
	start   int // this table's first column's index in the shared scope
	heap    *heap.TableHeap
	indexes []*catalog.IndexEntry
	handles []*index.Handle
}

func bindTable(ctx *engine.Context, ref ast.TableRef, scope *eval.Scope) (*tableBinding, error) {
	table, err := ctx.Catalog.GetTable(ref.Name)
	if err != nil {
		return nil, err
	}
	alias := ref.Alias
	if alias == "" {
		alias = ref.Name
	}
	cols, schema := tableio.ActiveSchema(ctx.Catalog, table.TableID)
	start := scope.Len()
	for _, c := range cols {
		scope.Add(alias, c.Name, c.Type)
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

	return &tableBinding{
		entry:   table,
		alias:   alias,
		cols:    cols,
		schema:  schema,
		start:   start,
		heap:    h,
		indexes: indexes,
		handles: handles,
	}, nil
}

// scanAll decodes every live row in tb's heap, in page-then-slot order,
// alongside each row's RecordID.
func (tb *tableBinding) scanAll() ([]eval.Row, []page.RecordID, error) {
	var rows []eval.Row
	var locs []page.RecordID
	err := tb.heap.ForEach(func(loc page.RecordID, payload []byte) error {
		values, derr := record.Decode(payload, tb.schema)
		if derr != nil {
			return derr
		}
		rows = append(rows, eval.Row(values))
		locs = append(locs, loc)
		return nil
	})
	return rows, locs, err
}
