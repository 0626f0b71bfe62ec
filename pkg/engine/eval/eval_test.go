package eval

import (
	"testing"

	"kizuna/pkg/sql/ast"
	"kizuna/pkg/types"
)

func testScope() (*Scope, Row) {
	s := NewScope()
	s.Add("employees", "active", types.Boolean)
	s.Add("employees", "age", types.Integer)
	s.Add("employees", "nickname", types.Varchar)
	row := Row{types.NewBool(true), types.NewInt(34), types.Null(types.Varchar)}
	return s, row
}

func col(name string) *ast.ColumnRef { return &ast.ColumnRef{Name: name} }

func TestPredicateAndOverBooleanAndComparison(t *testing.T) {
	scope, row := testScope()
	expr := &ast.Binary{
		Op:   ast.OpAnd,
		Left: col("active"),
		Right: &ast.Binary{
			Op:    ast.OpGe,
			Left:  col("age"),
			Right: &ast.Literal{Value: types.NewBigInt(30)},
		},
	}
	got, err := Predicate(expr, scope, row)
	if err != nil {
		t.Fatalf("Predicate: %v", err)
	}
	if got != types.True {
		t.Fatalf("expected True, got %v", got)
	}
}

func TestNullTestOnNullColumn(t *testing.T) {
	scope, row := testScope()
	got, err := Predicate(&ast.NullTest{Operand: col("nickname")}, scope, row)
	if err != nil {
		t.Fatalf("Predicate: %v", err)
	}
	if got != types.True {
		t.Fatalf("expected True for IS NULL on a null column, got %v", got)
	}
}

func TestComparisonAgainstNullIsUnknown(t *testing.T) {
	scope, row := testScope()
	expr := &ast.Binary{Op: ast.OpEq, Left: col("nickname"), Right: &ast.Literal{Value: types.NewString(types.Varchar, "ace")}}
	got, err := Predicate(expr, scope, row)
	if err != nil {
		t.Fatalf("Predicate: %v", err)
	}
	if got != types.Unknown {
		t.Fatalf("expected Unknown, got %v", got)
	}
}

func TestAmbiguousColumnAcrossJoinedTables(t *testing.T) {
	s := NewScope()
	s.Add("employees", "id", types.Integer)
	s.Add("badges", "id", types.Integer)
	_, err := s.Resolve(col("id"))
	if err == nil {
		t.Fatal("expected an ambiguity error")
	}
}

func TestQualifiedColumnResolution(t *testing.T) {
	s := NewScope()
	s.Add("employees", "id", types.Integer)
	s.Add("badges", "id", types.Integer)
	b, err := s.Resolve(&ast.ColumnRef{Table: "badges", Name: "id"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b.Index != 1 {
		t.Fatalf("expected index 1, got %d", b.Index)
	}
}

func TestNotOverFalseIsTrue(t *testing.T) {
	scope, row := testScope()
	expr := &ast.Unary{Op: ast.OpNot, Operand: &ast.NullTest{Operand: col("age"), Negated: false}}
	got, err := Predicate(expr, scope, row)
	if err != nil {
		t.Fatalf("Predicate: %v", err)
	}
	// age is non-null so IS NULL is False, NOT False is True.
	if got != types.True {
		t.Fatalf("expected True, got %v", got)
	}
}
