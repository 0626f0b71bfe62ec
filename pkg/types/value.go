package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Value is a typed scalar: one of the DataType variants, or NULL of a
// given type. It is the unit the expression evaluator, record codec, and
// B+ tree key encoder all operate on.
type Value struct {
	Type   DataType
	IsNull bool

	boolVal   bool
	intVal    int32
	bigVal    int64 // BIGINT, DATE (epoch days), TIMESTAMP (epoch seconds)
	floatVal  float32
	doubleVal float64
	strVal    string // VARCHAR/TEXT
}

// Null returns the NULL value typed as t (t may be NullType for an
// as-yet-unbound literal NULL).
func Null(t DataType) Value { return Value{Type: t, IsNull: true} }

func NewBool(v bool) Value      { return Value{Type: Boolean, boolVal: v} }
func NewInt(v int32) Value      { return Value{Type: Integer, intVal: v} }
func NewBigInt(v int64) Value   { return Value{Type: BigInt, bigVal: v} }
func NewFloat(v float32) Value  { return Value{Type: Float, floatVal: v} }
func NewDouble(v float64) Value { return Value{Type: Double, doubleVal: v} }
func NewDateDays(days int64) Value      { return Value{Type: Date, bigVal: days} }
func NewTimestamp(seconds int64) Value  { return Value{Type: Timestamp, bigVal: seconds} }
func NewString(t DataType, v string) Value {
	return Value{Type: t, strVal: v}
}

func (v Value) Bool() bool      { return v.boolVal }
func (v Value) Int32() int32    { return v.intVal }
func (v Value) Int64() int64    { return v.bigVal }
func (v Value) Float32() float32 { return v.floatVal }
func (v Value) Float64() float64 { return v.doubleVal }
func (v Value) Str() string     { return v.strVal }

// AsFloat64 widens any numeric value to float64, for DOUBLE comparisons.
func (v Value) AsFloat64() float64 {
	switch v.Type {
	case Integer:
		return float64(v.intVal)
	case BigInt:
		return float64(v.bigVal)
	case Float:
		return float64(v.floatVal)
	case Double:
		return v.doubleVal
	default:
		return 0
	}
}

// AsInt64 widens INTEGER/BIGINT to int64.
func (v Value) AsInt64() int64 {
	switch v.Type {
	case Integer:
		return int64(v.intVal)
	case BigInt:
		return v.bigVal
	default:
		return 0
	}
}

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD literal into epoch days.
func ParseDate(s string) (int64, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid date literal %q: %w", s, err)
	}
	return t.Unix() / 86400, nil
}

// FormatDate renders epoch days as YYYY-MM-DD.
func FormatDate(days int64) string {
	t := time.Unix(days*86400, 0).UTC()
	return t.Format(dateLayout)
}

// DisplayString renders v the way spec.md §6 requires for a SelectResult
// cell: "NULL" for null, "TRUE"/"FALSE" for booleans, YYYY-MM-DD for dates,
// locale-independent number formatting otherwise.
func (v Value) DisplayString() string {
	if v.IsNull {
		return "NULL"
	}
	switch v.Type {
	case Boolean:
		if v.boolVal {
			return "TRUE"
		}
		return "FALSE"
	case Integer:
		return strconv.FormatInt(int64(v.intVal), 10)
	case BigInt:
		return strconv.FormatInt(v.bigVal, 10)
	case Timestamp:
		return strconv.FormatInt(v.bigVal, 10)
	case Date:
		return FormatDate(v.bigVal)
	case Float:
		return formatFloat(float64(v.floatVal), 32)
	case Double:
		return formatFloat(v.doubleVal, 64)
	case Varchar, Text:
		return v.strVal
	default:
		return ""
	}
}

func formatFloat(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'f', -1, bitSize)
	// strconv never uses a locale-dependent separator, but guard against
	// exponent notation creeping in for very large/small magnitudes.
	if strings.ContainsAny(s, "eE") {
		s = strconv.FormatFloat(f, 'f', 6, bitSize)
	}
	return s
}

// Signature returns a canonical string used to deduplicate Values for
// DISTINCT and COUNT(DISTINCT col): type tag plus display form, so that
// e.g. INTEGER 1 and BIGINT 1 are treated as distinct signatures (they are
// distinct column values even though their printed form collides).
func (v Value) Signature() string {
	if v.IsNull {
		return "N:" + v.Type.String()
	}
	return v.Type.String() + ":" + v.DisplayString()
}
