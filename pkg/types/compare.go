package types

import "kizuna/pkg/dberrors"

// Compare orders two non-null Values. Numeric types widen per spec.md
// §4.9 (INTEGER -> BIGINT -> DOUBLE); DATE/TIMESTAMP compare only with
// their own type; BOOLEAN/VARCHAR/TEXT compare only with their own type.
// Callers handle NULL specially (ORDER BY placement, three-valued
// comparison semantics) before reaching Compare.
func Compare(a, b Value) (int, error) {
	if a.IsNull || b.IsNull {
		return 0, dberrors.New(dberrors.InternalError, "Compare called with a NULL value")
	}

	if a.Type.IsNumeric() && b.Type.IsNumeric() {
		return compareNumeric(a, b), nil
	}

	if a.Type != b.Type {
		return 0, dberrors.Newf(dberrors.TypeError, "cannot compare %s with %s", a.Type, b.Type)
	}

	switch a.Type {
	case Boolean:
		return compareBool(a.boolVal, b.boolVal), nil
	case Date, Timestamp:
		return compareInt64(a.bigVal, b.bigVal), nil
	case Varchar, Text:
		return compareString(a.strVal, b.strVal), nil
	default:
		return 0, dberrors.Newf(dberrors.TypeError, "type %s is not comparable", a.Type)
	}
}

func compareNumeric(a, b Value) int {
	if a.Type == Float || a.Type == Double || b.Type == Float || b.Type == Double {
		return compareFloat64(a.AsFloat64(), b.AsFloat64())
	}
	return compareInt64(a.AsInt64(), b.AsInt64())
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a && b:
		return -1
	default:
		return 1
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equal reports whether two non-null Values of comparable types are equal.
func Equal(a, b Value) (bool, error) {
	if a.IsNull != b.IsNull {
		return false, nil
	}
	if a.IsNull {
		return true, nil
	}
	c, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}
