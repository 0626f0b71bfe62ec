// Package types implements the engine's scalar type system: the closed set
// of column types, a typed Value able to hold any of them (including SQL
// NULL), three-valued predicate logic, and the coercion rules the
// expression evaluator and DML executor apply when literals meet typed
// columns.
package types

import "fmt"

// DataType is the closed set of column types spec.md §3 defines, plus
// NullType for the untyped NULL literal before it is bound to a column.
type DataType uint8

const (
	Invalid DataType = iota
	Boolean
	Integer
	BigInt
	Float
	Double
	Date
	Timestamp
	Varchar
	Text
	NullType
)

func (t DataType) String() string {
	switch t {
	case Boolean:
		return "BOOLEAN"
	case Integer:
		return "INTEGER"
	case BigInt:
		return "BIGINT"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case Date:
		return "DATE"
	case Timestamp:
		return "TIMESTAMP"
	case Varchar:
		return "VARCHAR"
	case Text:
		return "TEXT"
	case NullType:
		return "NULL"
	default:
		return "INVALID"
	}
}

// IsNumeric reports whether t participates in numeric widening
// (INTEGER/BIGINT/FLOAT/DOUBLE).
func (t DataType) IsNumeric() bool {
	switch t {
	case Integer, BigInt, Float, Double:
		return true
	default:
		return false
	}
}

// FixedSize returns the at-rest payload size in bytes for types with a
// fixed-width encoding, and ok=false for variable-length types
// (VARCHAR/TEXT) whose size is the field's declared length / unbounded.
func (t DataType) FixedSize() (int, bool) {
	switch t {
	case Boolean:
		return 1, true
	case Integer:
		return 4, true
	case BigInt, Date, Timestamp:
		return 8, true
	case Float:
		return 4, true
	case Double:
		return 8, true
	default:
		return 0, false
	}
}

// ParseDataType maps an uppercased type-name token from the parser into a
// DataType. A VARCHAR length argument is consumed by the parser, not here.
func ParseDataType(name string) (DataType, error) {
	switch name {
	case "BOOLEAN", "BOOL":
		return Boolean, nil
	case "INTEGER", "INT":
		return Integer, nil
	case "BIGINT":
		return BigInt, nil
	case "FLOAT", "REAL":
		return Float, nil
	case "DOUBLE":
		return Double, nil
	case "DATE":
		return Date, nil
	case "TIMESTAMP":
		return Timestamp, nil
	case "VARCHAR":
		return Varchar, nil
	case "TEXT":
		return Text, nil
	default:
		return Invalid, fmt.Errorf("unsupported type %q", name)
	}
}
