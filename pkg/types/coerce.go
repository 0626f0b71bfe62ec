package types

import "kizuna/pkg/dberrors"

// CoerceToType interprets a literal Value (as produced by the parser,
// untyped beyond its own literal form) against a target column type,
// per spec.md §4.9: integer literals coerce to
// BOOLEAN/INTEGER/BIGINT/DATE/TIMESTAMP; string literals coerce to DATE
// via YYYY-MM-DD parse or to BOOLEAN via TRUE/FALSE. Any incompatible
// coercion raises TYPE_ERROR.
func CoerceToType(v Value, target DataType) (Value, error) {
	if v.IsNull {
		return Null(target), nil
	}
	if v.Type == target {
		return v, nil
	}

	switch target {
	case Boolean:
		return coerceToBool(v)
	case Integer:
		return coerceToInt32(v)
	case BigInt:
		return coerceToInt64(v)
	case Float:
		return coerceToFloat32(v)
	case Double:
		return coerceToFloat64(v)
	case Date:
		return coerceToDate(v)
	case Timestamp:
		return coerceToTimestamp(v)
	case Varchar, Text:
		return coerceToString(v, target)
	default:
		return Value{}, dberrors.Newf(dberrors.TypeError, "unsupported target type %s", target)
	}
}

func typeErr(v Value, target DataType) error {
	return dberrors.Newf(dberrors.TypeError, "cannot coerce %s value to %s", v.Type, target)
}

func coerceToBool(v Value) (Value, error) {
	switch v.Type {
	case Integer, BigInt:
		return NewBool(v.AsInt64() != 0), nil
	case Varchar, Text:
		switch v.strVal {
		case "TRUE", "true":
			return NewBool(true), nil
		case "FALSE", "false":
			return NewBool(false), nil
		}
	}
	return Value{}, typeErr(v, Boolean)
}

func coerceToInt32(v Value) (Value, error) {
	switch v.Type {
	case Integer:
		return v, nil
	case BigInt:
		if v.bigVal < -2147483648 || v.bigVal > 2147483647 {
			return Value{}, dberrors.Newf(dberrors.TypeError, "value %d overflows INTEGER", v.bigVal)
		}
		return NewInt(int32(v.bigVal)), nil
	}
	return Value{}, typeErr(v, Integer)
}

func coerceToInt64(v Value) (Value, error) {
	switch v.Type {
	case Integer:
		return NewBigInt(int64(v.intVal)), nil
	case BigInt:
		return v, nil
	}
	return Value{}, typeErr(v, BigInt)
}

func coerceToFloat32(v Value) (Value, error) {
	if v.Type.IsNumeric() {
		return NewFloat(float32(v.AsFloat64())), nil
	}
	return Value{}, typeErr(v, Float)
}

func coerceToFloat64(v Value) (Value, error) {
	if v.Type.IsNumeric() {
		return NewDouble(v.AsFloat64()), nil
	}
	return Value{}, typeErr(v, Double)
}

func coerceToDate(v Value) (Value, error) {
	switch v.Type {
	case Integer:
		return NewDateDays(int64(v.intVal)), nil
	case BigInt:
		return NewDateDays(v.bigVal), nil
	case Varchar, Text:
		days, err := ParseDate(v.strVal)
		if err != nil {
			return Value{}, dberrors.Wrap(err, dberrors.TypeError, "invalid DATE literal")
		}
		return NewDateDays(days), nil
	}
	return Value{}, typeErr(v, Date)
}

func coerceToTimestamp(v Value) (Value, error) {
	switch v.Type {
	case Integer:
		return NewTimestamp(int64(v.intVal)), nil
	case BigInt:
		return NewTimestamp(v.bigVal), nil
	}
	return Value{}, typeErr(v, Timestamp)
}

func coerceToString(v Value, target DataType) (Value, error) {
	switch v.Type {
	case Varchar, Text:
		return NewString(target, v.strVal), nil
	}
	return Value{}, typeErr(v, target)
}

// CoerceForComparison coerces a and b so they can be compared, applying the
// same-type-family widening Compare expects: when one side is a literal
// (untyped beyond its own literal form) and the other is a bound column
// value, the literal is coerced toward the column's declared type.
func CoerceForComparison(columnVal, literalVal Value) (Value, Value, error) {
	if literalVal.IsNull || columnVal.IsNull {
		return columnVal, literalVal, nil
	}
	if columnVal.Type == literalVal.Type {
		return columnVal, literalVal, nil
	}
	coerced, err := CoerceToType(literalVal, columnVal.Type)
	if err != nil {
		// allow numeric cross-widening both ways (e.g. BIGINT column vs
		// literal parsed as the wider type already)
		if columnVal.Type.IsNumeric() && literalVal.Type.IsNumeric() {
			widened, werr := CoerceToType(columnVal, literalVal.Type)
			if werr == nil {
				return widened, literalVal, nil
			}
		}
		return Value{}, Value{}, err
	}
	return columnVal, coerced, nil
}
