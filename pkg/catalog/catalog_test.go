package catalog

import (
	"path/filepath"
	"testing"

	"kizuna/pkg/dberrors"
	"kizuna/pkg/storage/page"
	"kizuna/pkg/types"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	fm, err := page.OpenFile(filepath.Join(t.TempDir(), "db.kz"), true)
	if err != nil {
		t.Fatalf("page.OpenFile: %v", err)
	}
	pm, err := page.Open(fm, 32)
	if err != nil {
		t.Fatalf("page.Open: %v", err)
	}
	c, err := Open(pm)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	return c
}

func sampleColumns() []ColumnDef {
	return []ColumnDef{
		{Name: "id", Type: types.Integer, NotNull: true, PrimaryKey: true},
		{Name: "name", Type: types.Varchar},
	}
}

func TestCreateAndGetTable(t *testing.T) {
	c := newTestCatalog(t)
	entry, err := c.CreateTable("users", sampleColumns(), 2, "CREATE TABLE users (...)")
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if entry.SchemaVersion != 1 {
		t.Fatalf("expected schema_version 1, got %d", entry.SchemaVersion)
	}
	if entry.NextColumnID != 3 {
		t.Fatalf("expected next_column_id 3, got %d", entry.NextColumnID)
	}

	got, err := c.GetTable("users")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if got.TableID != entry.TableID {
		t.Fatalf("mismatched table id")
	}

	cols := c.GetColumns(entry.TableID)
	if len(cols) != 2 || cols[0].Name != "id" || cols[1].Name != "name" {
		t.Fatalf("unexpected columns: %+v", cols)
	}
}

func TestCreateTableRejectsDuplicate(t *testing.T) {
	c := newTestCatalog(t)
	if _, err := c.CreateTable("users", sampleColumns(), 2, ""); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	_, err := c.CreateTable("users", sampleColumns(), 5, "")
	if !dberrors.Is(err, dberrors.TableExists) {
		t.Fatalf("expected TableExists, got %v", err)
	}
}

func TestAddColumnThenDropColumnRestoresActiveList(t *testing.T) {
	c := newTestCatalog(t)
	entry, err := c.CreateTable("users", sampleColumns(), 2, "")
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	initialVersion := entry.SchemaVersion

	newCol, err := c.AddColumn(entry.TableID, ColumnDef{Name: "email", Type: types.Varchar}, nil)
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if newCol.OrdinalPosition != 2 {
		t.Fatalf("expected new column appended at ordinal 2, got %d", newCol.OrdinalPosition)
	}

	if err := c.DropColumn(entry.TableID, "email"); err != nil {
		t.Fatalf("DropColumn: %v", err)
	}

	active := c.GetColumns(entry.TableID)
	if len(active) != 2 {
		t.Fatalf("expected 2 active columns after add+drop, got %d", len(active))
	}
	names := map[string]bool{}
	for _, col := range active {
		names[col.Name] = true
	}
	if !names["id"] || !names["name"] {
		t.Fatalf("expected original columns active, got %+v", active)
	}

	all := c.GetAllColumns(entry.TableID)
	if len(all) != 3 {
		t.Fatalf("expected 3 total columns including dropped, got %d", len(all))
	}

	updated, err := c.GetTableByID(entry.TableID)
	if err != nil {
		t.Fatalf("GetTableByID: %v", err)
	}
	if updated.SchemaVersion <= initialVersion+1 {
		t.Fatalf("expected schema_version to strictly increase across add+drop, got %d", updated.SchemaVersion)
	}
}

func TestDropColumnRejectsLastColumn(t *testing.T) {
	c := newTestCatalog(t)
	entry, err := c.CreateTable("single", []ColumnDef{{Name: "id", Type: types.Integer}}, 2, "")
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	err = c.DropColumn(entry.TableID, "id")
	if !dberrors.Is(err, dberrors.InvalidConstraint) {
		t.Fatalf("expected InvalidConstraint, got %v", err)
	}
}

func TestDropColumnRejectsPrimaryKey(t *testing.T) {
	c := newTestCatalog(t)
	entry, err := c.CreateTable("users", sampleColumns(), 2, "")
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	err = c.DropColumn(entry.TableID, "id")
	if !dberrors.Is(err, dberrors.InvalidConstraint) {
		t.Fatalf("expected InvalidConstraint, got %v", err)
	}
}

func TestCreateIndexAndDrop(t *testing.T) {
	c := newTestCatalog(t)
	entry, err := c.CreateTable("users", sampleColumns(), 2, "")
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	idx, err := c.CreateIndex("users_pkey", entry.TableID, []uint32{1}, true)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := c.SetIndexRoot(idx.IndexID, 7); err != nil {
		t.Fatalf("SetIndexRoot: %v", err)
	}
	got, err := c.GetIndexByName("users_pkey")
	if err != nil || got.RootPageID != 7 {
		t.Fatalf("expected root 7, got %+v err=%v", got, err)
	}

	removed, err := c.DropIndex("users_pkey")
	if err != nil || !removed {
		t.Fatalf("expected DropIndex to remove row, err=%v removed=%v", err, removed)
	}
	removedAgain, err := c.DropIndex("users_pkey")
	if err != nil || removedAgain {
		t.Fatalf("expected idempotent DropIndex to report false, got %v err=%v", removedAgain, err)
	}
}

func TestDropTableCascadesColumnsAndIndexes(t *testing.T) {
	c := newTestCatalog(t)
	entry, err := c.CreateTable("users", sampleColumns(), 2, "")
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := c.CreateIndex("users_pkey", entry.TableID, []uint32{1}, true); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	dropped, err := c.DropTable("users")
	if err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if len(dropped) != 1 {
		t.Fatalf("expected 1 cascaded index, got %d", len(dropped))
	}
	if _, err := c.GetTable("users"); !dberrors.Is(err, dberrors.TableNotFound) {
		t.Fatalf("expected TableNotFound after drop, got %v", err)
	}
	if len(c.GetAllColumns(entry.TableID)) != 0 {
		t.Fatal("expected no columns left after DropTable")
	}
	if _, err := c.GetIndexByName("users_pkey"); !dberrors.Is(err, dberrors.IndexNotFound) {
		t.Fatalf("expected IndexNotFound after cascade drop, got %v", err)
	}
}

func TestCatalogSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.kz")

	fm, err := page.OpenFile(path, true)
	if err != nil {
		t.Fatalf("page.OpenFile: %v", err)
	}
	pm, err := page.Open(fm, 32)
	if err != nil {
		t.Fatalf("page.Open: %v", err)
	}
	c, err := Open(pm)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	if _, err := c.CreateTable("users", sampleColumns(), 2, "CREATE TABLE users (...)"); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := pm.Close(); err != nil {
		t.Fatalf("pm.Close: %v", err)
	}

	fm2, err := page.OpenFile(path, false)
	if err != nil {
		t.Fatalf("reopen page.OpenFile: %v", err)
	}
	pm2, err := page.Open(fm2, 32)
	if err != nil {
		t.Fatalf("reopen page.Open: %v", err)
	}
	c2, err := Open(pm2)
	if err != nil {
		t.Fatalf("reopen catalog.Open: %v", err)
	}
	got, err := c2.GetTable("users")
	if err != nil {
		t.Fatalf("expected table to survive reopen: %v", err)
	}
	if cols := c2.GetColumns(got.TableID); len(cols) != 2 {
		t.Fatalf("expected 2 columns after reopen, got %d", len(cols))
	}
}
