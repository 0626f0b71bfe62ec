// Package eval implements column binding and three-valued expression
// evaluation over a flattened joined row, per spec.md §4.9. A Scope maps
// unqualified and qualified column references to a position in the row
// vector the DML executor builds by concatenating each FROM/JOIN table's
// columns in scan order.
package eval

import (
	"strings"

	"kizuna/pkg/dberrors"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/types"
)

// Binding is one column made visible to expression evaluation: its source
// table (or alias), its name, its position in a flattened Row, and its
// declared type (used for literal coercion on the column side of a
// comparison).
type Binding struct {
	Table string
	Name  string
	Index int
	Type  types.DataType
}

// Scope is the ordered set of bindings visible while evaluating one
// statement's expressions.
type Scope struct {
	bindings []Binding
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Add appends one column binding at the next row index.
func (s *Scope) Add(table, name string, dt types.DataType) {
	s.bindings = append(s.bindings, Binding{Table: table, Name: name, Index: len(s.bindings), Type: dt})
}

// Len returns the flattened row width the scope describes.
func (s *Scope) Len() int {
	return len(s.bindings)
}

// Bindings returns every binding, in row order.
func (s *Scope) Bindings() []Binding {
	return s.bindings
}

// Resolve looks up a column reference, applying spec.md §4.9's rule: an
// unqualified name matching more than one table's column is AMBIGUOUS_COLUMN;
// a qualified name is matched against the table/alias exactly.
func (s *Scope) Resolve(ref *ast.ColumnRef) (Binding, error) {
	if ref.Table != "" {
		for _, b := range s.bindings {
			if strings.EqualFold(b.Table, ref.Table) && b.Name == ref.Name {
				return b, nil
			}
		}
		return Binding{}, dberrors.Newf(dberrors.ColumnNotFound, "column %q not found on %q", ref.Name, ref.Table).WithDetail(ref.Name)
	}

	var found *Binding
	for i, b := range s.bindings {
		if b.Name == ref.Name {
			if found != nil {
				return Binding{}, dberrors.Newf(dberrors.AmbiguousColumn, "column %q is ambiguous across joined tables", ref.Name).WithDetail(ref.Name)
			}
			found = &s.bindings[i]
		}
	}
	if found == nil {
		return Binding{}, dberrors.Newf(dberrors.ColumnNotFound, "column %q does not exist", ref.Name).WithDetail(ref.Name)
	}
	return *found, nil
}
