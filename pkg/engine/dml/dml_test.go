package dml

import (
	"path/filepath"
	"testing"

	"kizuna/pkg/catalog"
	"kizuna/pkg/dberrors"
	"kizuna/pkg/engine"
	"kizuna/pkg/engine/ddl"
	"kizuna/pkg/sql/ast"
	"kizuna/pkg/storage/index"
	"kizuna/pkg/storage/page"
	"kizuna/pkg/types"
)

func newTestContext(t *testing.T) *engine.Context {
	t.Helper()
	dir := t.TempDir()
	fm, err := page.OpenFile(filepath.Join(dir, "db.kz"), true)
	if err != nil {
		t.Fatalf("page.OpenFile: %v", err)
	}
	pm, err := page.Open(fm, 32)
	if err != nil {
		t.Fatalf("page.Open: %v", err)
	}
	cat, err := catalog.Open(pm)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	idx, err := index.NewManager(filepath.Join(dir, "db.indexes"))
	if err != nil {
		t.Fatalf("index.NewManager: %v", err)
	}
	return &engine.Context{Catalog: cat, PM: pm, Indexes: idx}
}

func createUsers(t *testing.T, ctx *engine.Context) {
	t.Helper()
	stmt := &ast.CreateTableStatement{
		Table: "users",
		Columns: []ast.ColumnDef{
			{Name: "id", Type: types.Integer, PrimaryKey: true},
			{Name: "name", Type: types.Varchar, NotNull: true},
		},
	}
	if _, err := ddl.CreateTable(ctx, stmt); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
}

func intLit(v int32) ast.Expression  { return &ast.Literal{Value: types.NewInt(v)} }
func strLit(v string) ast.Expression { return &ast.Literal{Value: types.NewString(types.Varchar, v)} }

func TestInsertRejectsNotNullViolation(t *testing.T) {
	ctx := newTestContext(t)
	createUsers(t, ctx)

	stmt := &ast.InsertStatement{
		Table: "users",
		Rows:  [][]ast.Expression{{intLit(1), &ast.Literal{Value: types.Value{Type: types.Varchar, IsNull: true}}}},
	}
	_, err := Insert(ctx, stmt)
	if !dberrors.Is(err, dberrors.InvalidConstraint) {
		t.Fatalf("expected InvalidConstraint, got %v", err)
	}
}

func TestInsertRejectsPartialColumnList(t *testing.T) {
	ctx := newTestContext(t)
	createUsers(t, ctx)

	stmt := &ast.InsertStatement{
		Table:   "users",
		Columns: []string{"id"},
		Rows:    [][]ast.Expression{{intLit(1)}},
	}
	_, err := Insert(ctx, stmt)
	if !dberrors.Is(err, dberrors.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestInsertRejectsDuplicateUniqueKey(t *testing.T) {
	ctx := newTestContext(t)
	createUsers(t, ctx)

	first := &ast.InsertStatement{Table: "users", Rows: [][]ast.Expression{{intLit(1), strLit("alice")}}}
	if _, err := Insert(ctx, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	dup := &ast.InsertStatement{Table: "users", Rows: [][]ast.Expression{{intLit(1), strLit("someone-else")}}}
	_, err := Insert(ctx, dup)
	if !dberrors.Is(err, dberrors.DuplicateKey) {
		t.Fatalf("expected DuplicateKey for a repeated primary key, got %v", err)
	}
}

func selectAll(t *testing.T, ctx *engine.Context, table string) *engine.SelectResult {
	t.Helper()
	sel, err := Select(ctx, &ast.SelectStatement{
		Items: []ast.SelectItem{{Expr: &ast.Star{}}},
		From:  ast.TableRef{Name: table, Alias: table},
	}, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	return sel
}

func TestEqualityAccessPathNarrowsToMatchingRow(t *testing.T) {
	ctx := newTestContext(t)
	createUsers(t, ctx)
	for i, name := range []string{"alice", "bob", "carol"} {
		stmt := &ast.InsertStatement{Table: "users", Rows: [][]ast.Expression{{intLit(int32(i + 1)), strLit(name)}}}
		if _, err := Insert(ctx, stmt); err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
	}

	var uses []engine.IndexUse
	sel, err := Select(ctx, &ast.SelectStatement{
		Items: []ast.SelectItem{{Expr: &ast.ColumnRef{Table: "users", Name: "name"}}},
		From:  ast.TableRef{Name: "users", Alias: "users"},
		Where: &ast.Binary{
			Op:    ast.OpEq,
			Left:  &ast.ColumnRef{Table: "users", Name: "id"},
			Right: intLit(2),
		},
	}, func(u engine.IndexUse) { uses = append(uses, u) })
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(sel.Rows) != 1 || sel.Rows[0][0] != "bob" {
		t.Fatalf("expected exactly bob, got %v", sel.Rows)
	}
	if len(uses) != 1 {
		t.Fatalf("expected the primary key index to be used, got %d use(s)", len(uses))
	}
}

func TestSelectStarExpandsAllColumns(t *testing.T) {
	ctx := newTestContext(t)
	createUsers(t, ctx)
	stmt := &ast.InsertStatement{Table: "users", Rows: [][]ast.Expression{{intLit(1), strLit("alice")}}}
	if _, err := Insert(ctx, stmt); err != nil {
		t.Fatalf("insert: %v", err)
	}

	sel := selectAll(t, ctx, "users")
	if len(sel.Columns) != 2 || sel.Columns[0] != "id" || sel.Columns[1] != "name" {
		t.Fatalf("unexpected columns: %v", sel.Columns)
	}
	if len(sel.Rows) != 1 || sel.Rows[0][0] != "1" || sel.Rows[0][1] != "alice" {
		t.Fatalf("unexpected rows: %v", sel.Rows)
	}
}

func TestAggregatesOnEmptyTableReturnNull(t *testing.T) {
	ctx := newTestContext(t)
	createUsers(t, ctx)

	sel, err := Select(ctx, &ast.SelectStatement{
		Items: []ast.SelectItem{
			{Expr: &ast.Aggregate{Func: ast.AggCount}},
			{Expr: &ast.Aggregate{Func: ast.AggSum, Arg: &ast.ColumnRef{Table: "users", Name: "id"}}},
		},
		From: ast.TableRef{Name: "users", Alias: "users"},
	}, nil)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(sel.Rows) != 1 {
		t.Fatalf("expected exactly one aggregate row, got %d", len(sel.Rows))
	}
	if sel.Rows[0][0] != "0" {
		t.Fatalf("COUNT(*) over zero rows: got %q", sel.Rows[0][0])
	}
	if sel.Rows[0][1] != "NULL" {
		t.Fatalf("SUM over zero rows should be NULL, got %q", sel.Rows[0][1])
	}
}
