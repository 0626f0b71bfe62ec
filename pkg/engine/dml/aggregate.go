package dml

import (
	"kizuna/pkg/dberrors"
	"kizuna/pkg/engine/eval"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/types"
)

// hasAggregate reports whether any select item is an aggregate call.
func hasAggregate(items []ast.SelectItem) bool {
	for _, item := range items {
		if _, ok := item.Expr.(*ast.Aggregate); ok {
			return true
		}
	}
	return false
}

// validateAggregateMix rejects a select list mixing aggregate and
// non-aggregate items (spec.md §4.11: no GROUP BY support, so a
// non-aggregate column alongside an aggregate has no well-defined value).
func validateAggregateMix(items []ast.SelectItem) error {
	agg, plain := false, false
	for _, item := range items {
		if _, ok := item.Expr.(*ast.Aggregate); ok {
			agg = true
		} else {
			plain = true
		}
	}
	if agg && plain {
		return dberrors.New(dberrors.InvalidArgument, "cannot mix aggregate and non-aggregate select items without GROUP BY")
	}
	return nil
}

// evalAggregates reduces rows to the single row spec.md §4.11 requires:
// one value per aggregate select item, zero rows if rows is empty and a
// LIMIT 0 truncates it away upstream (an empty rows slice still produces
// one output row here, since COUNT/SUM/etc. are defined over zero input
// rows).
func evalAggregates(items []ast.SelectItem, scope *eval.Scope, rows []eval.Row) ([]types.Value, error) {
	out := make([]types.Value, len(items))
	for i, item := range items {
		agg, ok := item.Expr.(*ast.Aggregate)
		if !ok {
			return nil, dberrors.New(dberrors.InternalError, "non-aggregate item in aggregate select list")
		}
		v, err := evalOneAggregate(agg, scope, rows)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func evalOneAggregate(agg *ast.Aggregate, scope *eval.Scope, rows []eval.Row) (types.Value, error) {
	switch agg.Func {
	case ast.AggCount:
		return evalCount(agg, scope, rows)
	case ast.AggSum:
		return evalSum(agg, scope, rows)
	case ast.AggAvg:
		return evalAvg(agg, scope, rows)
	case ast.AggMin:
		return evalMinMax(agg, scope, rows, true)
	case ast.AggMax:
		return evalMinMax(agg, scope, rows, false)
	default:
		return types.Value{}, dberrors.Newf(dberrors.InternalError, "unsupported aggregate function %v", agg.Func)
	}
}

func evalCount(agg *ast.Aggregate, scope *eval.Scope, rows []eval.Row) (types.Value, error) {
	if agg.Arg == nil {
		return types.NewBigInt(int64(len(rows))), nil
	}
	seen := make(map[string]bool)
	var count int64
	for _, row := range rows {
		v, err := eval.Scalar(agg.Arg, scope, row)
		if err != nil {
			return types.Value{}, err
		}
		if v.IsNull {
			continue
		}
		if agg.Distinct {
			sig := v.Signature()
			if seen[sig] {
				continue
			}
			seen[sig] = true
		}
		count++
	}
	return types.NewBigInt(count), nil
}

func evalSum(agg *ast.Aggregate, scope *eval.Scope, rows []eval.Row) (types.Value, error) {
	values, err := nonNullArgs(agg, scope, rows)
	if err != nil {
		return types.Value{}, err
	}
	if len(values) == 0 {
		return types.Null(types.BigInt), nil
	}
	if isFloatingColumn(values[0].Type) {
		var sum float64
		for _, v := range values {
			sum += v.AsFloat64()
		}
		return types.NewDouble(sum), nil
	}
	var sum int64
	for _, v := range values {
		sum += v.AsInt64()
	}
	return types.NewBigInt(sum), nil
}

func evalAvg(agg *ast.Aggregate, scope *eval.Scope, rows []eval.Row) (types.Value, error) {
	values, err := nonNullArgs(agg, scope, rows)
	if err != nil {
		return types.Value{}, err
	}
	if len(values) == 0 {
		return types.Null(types.Double), nil
	}
	var sum float64
	for _, v := range values {
		sum += v.AsFloat64()
	}
	return types.NewDouble(sum / float64(len(values))), nil
}

func evalMinMax(agg *ast.Aggregate, scope *eval.Scope, rows []eval.Row, wantMin bool) (types.Value, error) {
	values, err := nonNullArgs(agg, scope, rows)
	if err != nil {
		return types.Value{}, err
	}
	if len(values) == 0 {
		return types.Null(argType(agg, scope)), nil
	}
	best := values[0]
	for _, v := range values[1:] {
		cmp, err := types.Compare(v, best)
		if err != nil {
			return types.Value{}, err
		}
		if (wantMin && cmp < 0) || (!wantMin && cmp > 0) {
			best = v
		}
	}
	return best, nil
}

func nonNullArgs(agg *ast.Aggregate, scope *eval.Scope, rows []eval.Row) ([]types.Value, error) {
	var out []types.Value
	seen := make(map[string]bool)
	for _, row := range rows {
		v, err := eval.Scalar(agg.Arg, scope, row)
		if err != nil {
			return nil, err
		}
		if v.IsNull {
			continue
		}
		if agg.Distinct {
			sig := v.Signature()
			if seen[sig] {
				continue
			}
			seen[sig] = true
		}
		out = append(out, v)
	}
	return out, nil
}

func isFloatingColumn(t types.DataType) bool {
	return t == types.Float || t == types.Double
}

func argType(agg *ast.Aggregate, scope *eval.Scope) types.DataType {
	if ref, ok := agg.Arg.(*ast.ColumnRef); ok {
		if b, err := scope.Resolve(ref); err == nil {
			return b.Type
		}
	}
	return types.BigInt
}
