package dml

import (
	"kizuna/pkg/catalog"
	"kizuna/pkg/engine"
	"kizuna/pkg/engine/eval"
	"kizuna/pkg/engine/tableio"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/storage/index"
	"kizuna/pkg/storage/page"
	"kizuna/pkg/storage/record"
	"kizuna/pkg/types"
)

// equalityPredicates walks where's AND-connected comparisons and
// collects every `column = literal` pair scoped to tb, keyed by column
// id (spec.md §4.11 step 3). Predicate shapes it can't interpret this
// way are simply not collected — they are still applied in full by
// eval.Predicate afterward, so skipping one here only costs an
// optimization, never correctness.
func equalityPredicates(where ast.Expression, scope *eval.Scope, tb *tableBinding) map[uint32]types.Value {
	found := make(map[uint32]types.Value)
	var walk func(expr ast.Expression)
	walk = func(expr ast.Expression) {
		bin, ok := expr.(*ast.Binary)
		if !ok {
			return
		}
		if bin.Op == ast.OpAnd {
			walk(bin.Left)
			walk(bin.Right)
			return
		}
		if bin.Op != ast.OpEq {
			return
		}
		colExpr, litExpr, ok := splitColumnLiteral(bin.Left, bin.Right)
		if !ok {
			return
		}
		ref := colExpr.(*ast.ColumnRef)
		b, err := scope.Resolve(ref)
		if err != nil || b.Index < tb.start || b.Index >= tb.start+len(tb.cols) {
			return
		}
		lit := litExpr.(*ast.Literal)
		coerced, err := types.CoerceToType(lit.Value, b.Type)
		if err != nil || coerced.IsNull {
			return
		}
		colID := tb.cols[b.Index-tb.start].ColumnID
		found[colID] = coerced
	}
	if where != nil {
		walk(where)
	}
	return found
}

func splitColumnLiteral(left, right ast.Expression) (ast.Expression, ast.Expression, bool) {
	if _, ok := left.(*ast.ColumnRef); ok {
		if _, ok := right.(*ast.Literal); ok {
			return left, right, true
		}
	}
	if _, ok := right.(*ast.ColumnRef); ok {
		if _, ok := left.(*ast.Literal); ok {
			return right, left, true
		}
	}
	return nil, nil, false
}

// chooseEqualityIndex picks the widest index fully covered by eq
// (spec.md §4.11: "prefer an index whose column list is a complete
// prefix covered by equality predicates (widest wins)").
func chooseEqualityIndex(indexes []*catalog.IndexEntry, eq map[uint32]types.Value) *catalog.IndexEntry {
	var best *catalog.IndexEntry
	for _, entry := range indexes {
		covered := true
		for _, colID := range entry.ColumnIDs {
			if _, ok := eq[colID]; !ok {
				covered = false
				break
			}
		}
		if !covered {
			continue
		}
		if best == nil || len(entry.ColumnIDs) > len(best.ColumnIDs) {
			best = entry
		}
	}
	return best
}

// singleTableRows produces the candidate rows (with their RecordIDs) for
// a one-table query, accelerating through an equality index scan when
// the WHERE clause supports one, and otherwise falling back to a
// sequential heap scan.
func singleTableRows(tb *tableBinding, where ast.Expression, scope *eval.Scope, onIndexUse func(engine.IndexUse)) ([]eval.Row, []page.RecordID, error) {
	eq := equalityPredicates(where, scope, tb)
	entry := chooseEqualityIndex(tb.indexes, eq)
	if entry == nil {
		return tb.scanAll()
	}

	handle := tb.handleFor(entry)
	keyValues := make([]types.Value, len(entry.ColumnIDs))
	for i, colID := range entry.ColumnIDs {
		keyValues[i] = eq[colID]
	}
	key, ok, err := tableio.EqualityPrefixKey(keyValues)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return tb.scanAll()
	}
	locs, err := handle.ScanEqual(key)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]eval.Row, len(locs))
	for i, loc := range locs {
		payload, rerr := tb.heap.Read(loc)
		if rerr != nil {
			return nil, nil, rerr
		}
		values, derr := record.Decode(payload, tb.schema)
		if derr != nil {
			return nil, nil, derr
		}
		rows[i] = eval.Row(values)
	}
	if onIndexUse != nil {
		ids := make([]uint64, len(locs))
		for i, loc := range locs {
			ids[i] = uint64(loc)
		}
		onIndexUse(engine.IndexUse{IndexName: entry.Name, MatchedRecordIDs: ids})
	}
	return rows, locs, nil
}

func (tb *tableBinding) handleFor(entry *catalog.IndexEntry) *index.Handle {
	for i, e := range tb.indexes {
		if e.IndexID == entry.IndexID {
			return tb.handles[i]
		}
	}
	return nil
}
