package eval

import (
	"kizuna/pkg/dberrors"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/types"
)

// Row is one flattened, joined row: values positioned per a Scope's
// bindings.
type Row []types.Value

// Scalar evaluates expr to a single Value against row under scope. Only
// literals and column references are valid scalar expressions; boolean
// connectives and NULL tests are evaluated through Predicate instead.
func Scalar(expr ast.Expression, scope *Scope, row Row) (types.Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return e.Value, nil
	case *ast.ColumnRef:
		b, err := scope.Resolve(e)
		if err != nil {
			return types.Value{}, err
		}
		return row[b.Index], nil
	case *ast.Star:
		return types.Value{}, dberrors.New(dberrors.InternalError, "* is not a scalar expression")
	default:
		return types.Value{}, dberrors.Newf(dberrors.InternalError, "expression of type %T is not a scalar", expr)
	}
}

// Predicate evaluates expr to a TriBool against row under scope, applying
// Kleene three-valued logic throughout (spec.md §4.9, §9). A bare column
// reference used as a predicate must be BOOLEAN-typed.
func Predicate(expr ast.Expression, scope *Scope, row Row) (types.TriBool, error) {
	switch e := expr.(type) {
	case *ast.Binary:
		return evalBinaryPredicate(e, scope, row)
	case *ast.Unary:
		if e.Op != ast.OpNot {
			return types.Unknown, dberrors.Newf(dberrors.InternalError, "unsupported unary operator %d", e.Op)
		}
		inner, err := Predicate(e.Operand, scope, row)
		if err != nil {
			return types.Unknown, err
		}
		return types.Not(inner), nil
	case *ast.NullTest:
		v, err := Scalar(e.Operand, scope, row)
		if err != nil {
			return types.Unknown, err
		}
		result := v.IsNull
		if e.Negated {
			result = !result
		}
		return types.FromBool(result), nil
	case *ast.Literal:
		if e.Value.IsNull {
			return types.Unknown, nil
		}
		if e.Value.Type != types.Boolean {
			return types.Unknown, dberrors.Newf(dberrors.TypeError, "non-boolean literal used as a predicate")
		}
		return types.FromBool(e.Value.Bool()), nil
	case *ast.ColumnRef:
		v, err := Scalar(e, scope, row)
		if err != nil {
			return types.Unknown, err
		}
		if v.IsNull {
			return types.Unknown, nil
		}
		if v.Type != types.Boolean {
			return types.Unknown, dberrors.Newf(dberrors.TypeError, "column %q is not BOOLEAN", e.Name)
		}
		return types.FromBool(v.Bool()), nil
	default:
		return types.Unknown, dberrors.Newf(dberrors.InternalError, "expression of type %T is not a predicate", expr)
	}
}

func evalBinaryPredicate(e *ast.Binary, scope *Scope, row Row) (types.TriBool, error) {
	switch e.Op {
	case ast.OpAnd:
		left, err := Predicate(e.Left, scope, row)
		if err != nil {
			return types.Unknown, err
		}
		right, err := Predicate(e.Right, scope, row)
		if err != nil {
			return types.Unknown, err
		}
		return types.And(left, right), nil
	case ast.OpOr:
		left, err := Predicate(e.Left, scope, row)
		if err != nil {
			return types.Unknown, err
		}
		right, err := Predicate(e.Right, scope, row)
		if err != nil {
			return types.Unknown, err
		}
		return types.Or(left, right), nil
	default:
		return evalComparison(e, scope, row)
	}
}

func evalComparison(e *ast.Binary, scope *Scope, row Row) (types.TriBool, error) {
	left, err := Scalar(e.Left, scope, row)
	if err != nil {
		return types.Unknown, err
	}
	right, err := Scalar(e.Right, scope, row)
	if err != nil {
		return types.Unknown, err
	}
	if left.IsNull || right.IsNull {
		return types.Unknown, nil
	}

	left, right, err = coerceForComparisonSide(e.Left, e.Right, left, right)
	if err != nil {
		return types.Unknown, err
	}

	if e.Op == ast.OpEq || e.Op == ast.OpNeq {
		eq, err := types.Equal(left, right)
		if err != nil {
			return types.Unknown, err
		}
		if e.Op == ast.OpNeq {
			eq = !eq
		}
		return types.FromBool(eq), nil
	}

	cmp, err := types.Compare(left, right)
	if err != nil {
		return types.Unknown, err
	}
	switch e.Op {
	case ast.OpLt:
		return types.FromBool(cmp < 0), nil
	case ast.OpLe:
		return types.FromBool(cmp <= 0), nil
	case ast.OpGt:
		return types.FromBool(cmp > 0), nil
	case ast.OpGe:
		return types.FromBool(cmp >= 0), nil
	default:
		return types.Unknown, dberrors.Newf(dberrors.InternalError, "unsupported comparison operator %d", e.Op)
	}
}

// coerceForComparisonSide applies types.CoerceForComparison, treating a
// bound column expression as the target-typed side per spec.md §4.9: a
// literal on either side widens toward the column's declared type.
func coerceForComparisonSide(leftExpr, rightExpr ast.Expression, left, right types.Value) (types.Value, types.Value, error) {
	_, leftIsCol := leftExpr.(*ast.ColumnRef)
	_, rightIsCol := rightExpr.(*ast.ColumnRef)
	switch {
	case leftIsCol && !rightIsCol:
		l, r, err := types.CoerceForComparison(left, right)
		return l, r, err
	case rightIsCol && !leftIsCol:
		r, l, err := types.CoerceForComparison(right, left)
		return l, r, err
	default:
		if left.Type == right.Type {
			return left, right, nil
		}
		l, r, err := types.CoerceForComparison(left, right)
		return l, r, err
	}
}
