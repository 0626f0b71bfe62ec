package dml

import (
	"kizuna/pkg/engine"
	"kizuna/pkg/engine/eval"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/storage/page"
	"kizuna/pkg/types"
)

// joinedRow is one flattened row produced by joinTables, alongside every
// contributing table's RecordID (aligned with the bindings slice).
type joinedRow struct {
	row  eval.Row
	locs []page.RecordID
}

// joinTables evaluates a left-deep nested-loop join across bindings, in
// FROM order, applying each join's ON predicate as it's introduced
// (spec.md §4.11: "multi-table queries use a left-deep nested-loop
// join"). The first binding drives an index-accelerated scan when where
// supports one; every joined-in table always does a full scan, since its
// rows must be tested against every row already accumulated.
func joinTables(bindings []*tableBinding, joins []ast.JoinClause, where ast.Expression, scope *eval.Scope, onIndexUse func(engine.IndexUse)) ([]joinedRow, error) {
	firstRows, firstLocs, err := singleTableRows(bindings[0], where, scope, onIndexUse)
	if err != nil {
		return nil, err
	}
	current := make([]joinedRow, len(firstRows))
	for i := range firstRows {
		current[i] = joinedRow{row: firstRows[i], locs: []page.RecordID{firstLocs[i]}}
	}

	for i := 1; i < len(bindings); i++ {
		tb := bindings[i]
		rows, locs, err := tb.scanAll()
		if err != nil {
			return nil, err
		}
		on := joins[i-1].On

		var next []joinedRow
		for _, left := range current {
			for j, right := range rows {
				combined := make(eval.Row, 0, len(left.row)+len(right))
				combined = append(combined, left.row...)
				combined = append(combined, right...)

				if on != nil {
					matched, err := eval.Predicate(on, scope, combined)
					if err != nil {
						return nil, err
					}
					if matched != types.True {
						continue
					}
				}

				rowLocs := append(append([]page.RecordID{}, left.locs...), locs[j])
				next = append(next, joinedRow{row: combined, locs: rowLocs})
			}
		}
		current = next
	}
	return current, nil
}
