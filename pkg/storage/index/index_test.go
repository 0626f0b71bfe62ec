package index

import (
	"testing"

	"kizuna/pkg/dberrors"
	"kizuna/pkg/storage/page"
)

func TestCreateInsertSearchRoundTrip(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	h, err := m.CreateIndex(1, true)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := h.Insert([]byte("1"), page.NewRecordID(2, 0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	loc, found, err := h.Search([]byte("1"))
	if err != nil || !found {
		t.Fatalf("expected to find key, err=%v found=%v", err, found)
	}
	if loc != page.NewRecordID(2, 0) {
		t.Fatalf("got %v", loc)
	}
}

func TestCreateIndexRejectsExisting(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m.CreateIndex(7, true); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := m.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}

	m2, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m2.CreateIndex(7, true); err == nil {
		t.Fatal("expected error creating an index whose file already exists")
	}
}

func TestDropIndexRemovesFile(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m.CreateIndex(3, true); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := m.DropIndex(3); err != nil {
		t.Fatalf("DropIndex: %v", err)
	}
	if _, err := m.OpenIndex(3, true); !dberrors.Is(err, dberrors.IndexNotFound) {
		t.Fatalf("expected IndexNotFound after DropIndex, got %v", err)
	}
}

func TestRootPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	h, err := m.CreateIndex(9, true)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := h.Insert([]byte{byte(i)}, page.NewRecordID(2, page.SlotID(i))); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := m.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}

	m2, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	h2, err := m2.OpenIndex(9, true)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	_, found, err := h2.Search([]byte{5})
	if err != nil || !found {
		t.Fatalf("expected reopened index to still find key, err=%v found=%v", err, found)
	}
}

func TestUniqueHandleRejectsDuplicate(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	h, err := m.CreateIndex(5, true)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := h.Insert([]byte("k"), page.NewRecordID(2, 0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	err = h.Insert([]byte("k"), page.NewRecordID(2, 1))
	if !dberrors.Is(err, dberrors.DuplicateKey) {
		t.Fatalf("expected DuplicateKey, got %v", err)
	}
}
