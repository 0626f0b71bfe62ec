package ddl

import (
	"path/filepath"
	"testing"

	"kizuna/pkg/catalog"
	"kizuna/pkg/dberrors"
	"kizuna/pkg/engine"
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

func usersColumns() []ast.ColumnDef {
	return []ast.ColumnDef{
		{Name: "id", Type: types.Integer, PrimaryKey: true},
		{Name: "name", Type: types.Varchar, NotNull: true},
		{Name: "age", Type: types.Integer},
	}
}

func TestCreateTableRejectsMultiplePrimaryKeys(t *testing.T) {
	ctx := newTestContext(t)
	stmt := &ast.CreateTableStatement{
		Table: "users",
		Columns: []ast.ColumnDef{
			{Name: "id", Type: types.Integer, PrimaryKey: true},
			{Name: "other_id", Type: types.Integer, PrimaryKey: true},
		},
	}
	_, err := CreateTable(ctx, stmt)
	if !dberrors.Is(err, dberrors.InvalidConstraint) {
		t.Fatalf("expected InvalidConstraint, got %v", err)
	}
}

func TestCreateTableAllowsNoPrimaryKey(t *testing.T) {
	ctx := newTestContext(t)
	stmt := &ast.CreateTableStatement{
		Table: "badges",
		Columns: []ast.ColumnDef{
			{Name: "employee_id", Type: types.Integer},
			{Name: "badge", Type: types.Varchar},
		},
	}
	if _, err := CreateTable(ctx, stmt); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	entry, err := ctx.Catalog.GetTable("badges")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if len(ctx.Catalog.ListIndexesForTable(entry.TableID)) != 0 {
		t.Fatalf("expected no implicit index without a primary key")
	}
}

func TestCreateTableSynthesizesPrimaryKeyIndex(t *testing.T) {
	ctx := newTestContext(t)
	if _, err := CreateTable(ctx, &ast.CreateTableStatement{Table: "users", Columns: usersColumns()}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	entry, err := ctx.Catalog.GetTable("users")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	idxs := ctx.Catalog.ListIndexesForTable(entry.TableID)
	if len(idxs) != 1 || !idxs[0].IsUnique {
		t.Fatalf("expected one unique implicit index, got %+v", idxs)
	}
}

func TestDropTableRemovesItsIndexes(t *testing.T) {
	ctx := newTestContext(t)
	if _, err := CreateTable(ctx, &ast.CreateTableStatement{Table: "users", Columns: usersColumns()}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := CreateIndex(ctx, &ast.CreateIndexStatement{Index: "idx_users_name", Table: "users", Columns: []string{"name"}, IsUnique: true}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	if _, err := DropTable(ctx, &ast.DropTableStatement{Table: "users"}); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if _, err := ctx.Catalog.GetTable("users"); !dberrors.Is(err, dberrors.TableNotFound) {
		t.Fatalf("expected TableNotFound after drop, got %v", err)
	}
	if _, err := ctx.Catalog.GetIndexByName("idx_users_name"); !dberrors.Is(err, dberrors.IndexNotFound) {
		t.Fatalf("expected the index to be gone too, got %v", err)
	}
}

func TestAlterTableDropColumnDropsReferencingIndex(t *testing.T) {
	ctx := newTestContext(t)
	if _, err := CreateTable(ctx, &ast.CreateTableStatement{Table: "users", Columns: usersColumns()}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := CreateIndex(ctx, &ast.CreateIndexStatement{Index: "idx_users_age", Table: "users", Columns: []string{"age"}}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	if _, err := AlterTable(ctx, &ast.AlterTableStatement{Table: "users", Action: &ast.DropColumnAction{Column: "age"}}); err != nil {
		t.Fatalf("AlterTable drop column: %v", err)
	}
	if _, err := ctx.Catalog.GetIndexByName("idx_users_age"); !dberrors.Is(err, dberrors.IndexNotFound) {
		t.Fatalf("expected idx_users_age to be dropped, got %v", err)
	}

	entry, err := ctx.Catalog.GetTable("users")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	for _, c := range ctx.Catalog.GetColumns(entry.TableID) {
		if c.Name == "age" {
			t.Fatalf("age should no longer be an active column")
		}
	}
}

func TestAlterTableAddColumnIncrementsSchemaVersion(t *testing.T) {
	ctx := newTestContext(t)
	if _, err := CreateTable(ctx, &ast.CreateTableStatement{Table: "users", Columns: usersColumns()}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	before, err := ctx.Catalog.GetTable("users")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	beforeVersion := before.SchemaVersion

	col := ast.ColumnDef{Name: "status", Type: types.Boolean, HasDefault: true, Default: types.NewBool(true)}
	if _, err := AlterTable(ctx, &ast.AlterTableStatement{Table: "users", Action: &ast.AddColumnAction{Column: col}}); err != nil {
		t.Fatalf("AlterTable add column: %v", err)
	}

	after, err := ctx.Catalog.GetTable("users")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if after.SchemaVersion != beforeVersion+1 {
		t.Fatalf("expected schema_version to increase by 1, got %d -> %d", beforeVersion, after.SchemaVersion)
	}
}

func TestCreateIndexRejectsUnknownColumn(t *testing.T) {
	ctx := newTestContext(t)
	if _, err := CreateTable(ctx, &ast.CreateTableStatement{Table: "users", Columns: usersColumns()}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	_, err := CreateIndex(ctx, &ast.CreateIndexStatement{Index: "idx_bad", Table: "users", Columns: []string{"nope"}})
	if !dberrors.Is(err, dberrors.ColumnNotFound) {
		t.Fatalf("expected ColumnNotFound, got %v", err)
	}
}
