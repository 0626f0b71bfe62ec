package btree

import (
	"fmt"
	"path/filepath"
	"testing"

	"kizuna/pkg/dberrors"
	"kizuna/pkg/storage/page"
)

func newTestPageManager(t *testing.T) *page.PageManager {
	t.Helper()
	fm, err := page.OpenFile(filepath.Join(t.TempDir(), "idx.kz"), true)
	if err != nil {
		t.Fatalf("page.OpenFile: %v", err)
	}
	pm, err := page.Open(fm, 32)
	if err != nil {
		t.Fatalf("buffer pool open: %v", err)
	}
	return pm
}

func TestInsertSearch(t *testing.T) {
	pm := newTestPageManager(t)
	tree := New(pm, page.InvalidPageID, true)

	if err := tree.Insert([]byte("alice"), page.NewRecordID(2, 0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tree.Insert([]byte("bob"), page.NewRecordID(2, 1)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	loc, found, err := tree.Search([]byte("alice"))
	if err != nil || !found {
		t.Fatalf("expected to find alice, err=%v found=%v", err, found)
	}
	if loc != page.NewRecordID(2, 0) {
		t.Fatalf("got %v", loc)
	}

	if _, found, _ := tree.Search([]byte("carol")); found {
		t.Fatal("did not expect to find carol")
	}
}

func TestUniqueRejectsDuplicate(t *testing.T) {
	pm := newTestPageManager(t)
	tree := New(pm, page.InvalidPageID, true)
	if err := tree.Insert([]byte("k"), page.NewRecordID(2, 0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	err := tree.Insert([]byte("k"), page.NewRecordID(2, 1))
	if !dberrors.Is(err, dberrors.DuplicateKey) {
		t.Fatalf("expected DuplicateKey, got %v", err)
	}
}

func TestNonUniquePreservesInsertionOrder(t *testing.T) {
	pm := newTestPageManager(t)
	tree := New(pm, page.InvalidPageID, false)
	for i := 0; i < 5; i++ {
		if err := tree.Insert([]byte("dup"), page.NewRecordID(2, page.SlotID(i))); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
	locs, err := tree.ScanEqual([]byte("dup"))
	if err != nil {
		t.Fatalf("ScanEqual: %v", err)
	}
	if len(locs) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(locs))
	}
	for i, l := range locs {
		if l.SlotID() != page.SlotID(i) {
			t.Fatalf("entry %d out of insertion order: %v", i, l)
		}
	}
}

func TestUniqueTreeRoundTripsEightyKeys(t *testing.T) {
	pm := newTestPageManager(t)
	tree := New(pm, page.InvalidPageID, true)

	for i := 0; i < 80; i++ {
		key := []byte(fmt.Sprintf("key_%d", i))
		if err := tree.Insert(key, page.NewRecordID(2, page.SlotID(i+1))); err != nil {
			t.Fatalf("Insert %s: %v", key, err)
		}
	}
	for i := 0; i < 80; i++ {
		key := []byte(fmt.Sprintf("key_%d", i))
		loc, found, err := tree.Search(key)
		if err != nil || !found {
			t.Fatalf("expected to find %s, err=%v found=%v", key, err, found)
		}
		if loc.SlotID() != page.SlotID(i+1) {
			t.Fatalf("%s: expected value %d, got %d", key, i+1, loc.SlotID())
		}
	}
	if err := tree.Insert([]byte("key_10"), page.NewRecordID(2, 111)); !dberrors.Is(err, dberrors.DuplicateKey) {
		t.Fatalf("expected DuplicateKey re-inserting key_10, got %v", err)
	}
}

// TestNonUniqueSearchReturnsLastWritten covers spec.md §8 scenario 4: a
// second Insert under the same key in a non-unique tree must win the
// point Search, even though ScanEqual still returns both in insertion
// order.
func TestNonUniqueSearchReturnsLastWritten(t *testing.T) {
	pm := newTestPageManager(t)
	tree := New(pm, page.InvalidPageID, false)

	if err := tree.Insert([]byte("same"), page.NewRecordID(2, 100)); err != nil {
		t.Fatalf("Insert 100: %v", err)
	}
	if err := tree.Insert([]byte("same"), page.NewRecordID(2, 200)); err != nil {
		t.Fatalf("Insert 200: %v", err)
	}

	loc, found, err := tree.Search([]byte("same"))
	if err != nil || !found {
		t.Fatalf("Search: err=%v found=%v", err, found)
	}
	if loc != page.NewRecordID(2, 200) {
		t.Fatalf("expected last-written value 200, got %v", loc)
	}

	locs, err := tree.ScanEqual([]byte("same"))
	if err != nil {
		t.Fatalf("ScanEqual: %v", err)
	}
	if len(locs) != 2 || locs[0] != page.NewRecordID(2, 100) || locs[1] != page.NewRecordID(2, 200) {
		t.Fatalf("expected [100, 200] in insertion order, got %v", locs)
	}
}

func TestSplitAcrossManyKeys(t *testing.T) {
	pm := newTestPageManager(t)
	tree := New(pm, page.InvalidPageID, true)

	const n = 2000
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%06d", i))
		if err := tree.Insert(key, page.NewRecordID(2, page.SlotID(i%65536))); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}
	for i := 0; i < n; i += 97 {
		key := []byte(fmt.Sprintf("key-%06d", i))
		if _, found, err := tree.Search(key); err != nil || !found {
			t.Fatalf("expected to find %s, err=%v found=%v", key, err, found)
		}
	}
}

func TestScanRange(t *testing.T) {
	pm := newTestPageManager(t)
	tree := New(pm, page.InvalidPageID, true)
	for i := 0; i < 50; i++ {
		key := []byte(fmt.Sprintf("k%03d", i))
		if err := tree.Insert(key, page.NewRecordID(2, page.SlotID(i))); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	locs, err := tree.ScanRange([]byte("k010"), true, []byte("k020"), false)
	if err != nil {
		t.Fatalf("ScanRange: %v", err)
	}
	if len(locs) != 10 {
		t.Fatalf("expected 10 results (k010..k019), got %d", len(locs))
	}
	if locs[0].SlotID() != 10 {
		t.Fatalf("expected first slot 10, got %d", locs[0].SlotID())
	}
}

func TestRemove(t *testing.T) {
	pm := newTestPageManager(t)
	tree := New(pm, page.InvalidPageID, true)
	if err := tree.Insert([]byte("x"), page.NewRecordID(2, 0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tree.Remove([]byte("x"), page.NewRecordID(2, 0)); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, found, _ := tree.Search([]byte("x")); found {
		t.Fatal("expected key to be gone after Remove")
	}
}

func TestSerializeRejectsOversizedKey(t *testing.T) {
	leaf := NewLeaf(2)
	leaf.LeafEntries = []LeafEntry{{Key: make([]byte, MaxKeyLength+1), Value: page.NewRecordID(2, 0)}}
	err := leaf.Serialize(page.Scratch())
	if !dberrors.Is(err, dberrors.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}
