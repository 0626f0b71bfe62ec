package dml

import (
	"fmt"
	"sort"

	"kizuna/pkg/engine"
	"kizuna/pkg/engine/eval"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/types"
)

// projectedColumn is one output column of a non-aggregate SELECT: its
// display header and the expression evaluated per row to fill it. Star
// expands into one projectedColumn per bound column, in scope order.
type projectedColumn struct {
	header string
	expr   ast.Expression
}

func expandItems(items []ast.SelectItem, scope *eval.Scope) []projectedColumn {
	var out []projectedColumn
	for _, item := range items {
		if _, ok := item.Expr.(*ast.Star); ok {
			for _, b := range scope.Bindings() {
				out = append(out, projectedColumn{header: b.Name, expr: &ast.ColumnRef{Table: b.Table, Name: b.Name}})
			}
			continue
		}
		out = append(out, projectedColumn{header: columnHeader(item), expr: item.Expr})
	}
	return out
}

func columnHeader(item ast.SelectItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	switch e := item.Expr.(type) {
	case *ast.ColumnRef:
		return e.Name
	case *ast.Aggregate:
		return aggregateHeader(e)
	default:
		return "?column?"
	}
}

func aggregateHeader(agg *ast.Aggregate) string {
	if agg.Arg == nil {
		return fmt.Sprintf("%s(*)", agg.Func)
	}
	ref, ok := agg.Arg.(*ast.ColumnRef)
	arg := "?"
	if ok {
		arg = ref.Name
	}
	if agg.Distinct {
		return fmt.Sprintf("%s(DISTINCT %s)", agg.Func, arg)
	}
	return fmt.Sprintf("%s(%s)", agg.Func, arg)
}

// Select executes stmt against ctx, following spec.md §4.11's pipeline:
// bind FROM/JOINs, choose an access path and evaluate WHERE, branch to
// aggregation or projection, then ORDER BY, DISTINCT, and LIMIT.
// onIndexUse, if non-nil, is invoked once per index scan the access-path
// selection actually uses.
func Select(ctx *engine.Context, stmt *ast.SelectStatement, onIndexUse func(engine.IndexUse)) (*engine.SelectResult, error) {
	if err := validateAggregateMix(stmt.Items); err != nil {
		return nil, err
	}

	scope := eval.NewScope()
	bindings := make([]*tableBinding, 0, 1+len(stmt.Joins))
	first, err := bindTable(ctx, stmt.From, scope)
	if err != nil {
		return nil, err
	}
	bindings = append(bindings, first)
	for _, j := range stmt.Joins {
		tb, err := bindTable(ctx, j.Table, scope)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, tb)
	}

	joined, err := joinTables(bindings, stmt.Joins, stmt.Where, scope, onIndexUse)
	if err != nil {
		return nil, err
	}

	filtered := make([]eval.Row, 0, len(joined))
	for _, jr := range joined {
		if stmt.Where == nil {
			filtered = append(filtered, jr.row)
			continue
		}
		matched, err := eval.Predicate(stmt.Where, scope, jr.row)
		if err != nil {
			return nil, err
		}
		if matched == types.True {
			filtered = append(filtered, jr.row)
		}
	}

	limitZero := stmt.Limit != nil && *stmt.Limit == 0

	if hasAggregate(stmt.Items) {
		headers := make([]string, len(stmt.Items))
		for i, item := range stmt.Items {
			headers[i] = columnHeader(item)
		}
		if limitZero {
			return &engine.SelectResult{Columns: headers, Rows: [][]string{}}, nil
		}
		values, err := evalAggregates(stmt.Items, scope, filtered)
		if err != nil {
			return nil, err
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = v.DisplayString()
		}
		return &engine.SelectResult{Columns: headers, Rows: [][]string{row}}, nil
	}

	if err := sortRows(filtered, stmt.OrderBy, scope); err != nil {
		return nil, err
	}

	columns := expandItems(stmt.Items, scope)
	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = c.header
	}

	rows := make([][]string, 0, len(filtered))
	seen := make(map[string]bool)
	for _, r := range filtered {
		cells := make([]string, len(columns))
		sig := ""
		for i, c := range columns {
			v, err := eval.Scalar(c.expr, scope, r)
			if err != nil {
				return nil, err
			}
			cells[i] = v.DisplayString()
			if stmt.Distinct {
				sig += v.Signature() + "\x1f"
			}
		}
		if stmt.Distinct {
			if seen[sig] {
				continue
			}
			seen[sig] = true
		}
		rows = append(rows, cells)
	}

	if stmt.Limit != nil {
		n := int(*stmt.Limit)
		if n < len(rows) {
			rows = rows[:n]
		}
	}

	return &engine.SelectResult{Columns: headers, Rows: rows}, nil
}

// sortRows stable-sorts rows in place per order, nulls sorting first for
// ascending keys and last for descending ones.
func sortRows(rows []eval.Row, order []ast.OrderItem, scope *eval.Scope) error {
	if len(order) == 0 {
		return nil
	}
	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		less, err := lessRows(rows[i], rows[j], order, scope)
		if err != nil {
			sortErr = err
			return false
		}
		return less
	})
	return sortErr
}

func lessRows(a, b eval.Row, order []ast.OrderItem, scope *eval.Scope) (bool, error) {
	for _, item := range order {
		av, err := eval.Scalar(item.Expr, scope, a)
		if err != nil {
			return false, err
		}
		bv, err := eval.Scalar(item.Expr, scope, b)
		if err != nil {
			return false, err
		}

		switch {
		case av.IsNull && bv.IsNull:
			continue
		case av.IsNull:
			return !item.Desc, nil
		case bv.IsNull:
			return item.Desc, nil
		}

		cmp, err := types.Compare(av, bv)
		if err != nil {
			return false, err
		}
		if cmp == 0 {
			continue
		}
		if item.Desc {
			return cmp > 0, nil
		}
		return cmp < 0, nil
	}
	return false, nil
}
