// Package index manages the lifecycle of per-index files: each index owns
// its own backing file, buffer pool, and B+ tree, rather than sharing the
// table's file, per spec.md §4.7. The catalog records each index's file
// path and uniqueness; this package turns that into a live Handle.
package index

import (
	"fmt"
	"os"
	"path/filepath"

	"kizuna/pkg/config"
	"kizuna/pkg/dberrors"
	"kizuna/pkg/storage/btree"
	"kizuna/pkg/storage/page"
)

// Handle is one open index: its own file manager, buffer pool, and B+
// tree, kept in sync after every mutation. Per spec.md §5, statement
// execution is single-threaded and synchronous, so a Handle needs no
// internal locking.
type Handle struct {
	path     string
	isUnique bool
	fm       *page.FileManager
	pm       *page.PageManager
	tree     *btree.BPlusTree
}

// Manager resolves index ids to backing file paths and keeps track of
// which indexes are currently open. Each index is named by its index_id,
// matching the catalog's identity for the index rather than its SQL name
// (which can be dropped and recreated under the same name with a new id).
type Manager struct {
	dir  string
	open map[uint32]*Handle
}

// NewManager returns a Manager that stores index files under dir,
// creating dir if it does not already exist.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		dir = config.DefaultIndexDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dberrors.Wrap(err, dberrors.IOError, "creating index directory")
	}
	return &Manager{dir: dir, open: make(map[uint32]*Handle)}, nil
}

func (m *Manager) pathFor(indexID uint32) string {
	return filepath.Join(m.dir, fmt.Sprintf("%d%s", indexID, config.FileExtension))
}

// CreateIndex creates a brand new, empty index file for indexID.
func (m *Manager) CreateIndex(indexID uint32, isUnique bool) (*Handle, error) {
	if _, ok := m.open[indexID]; ok {
		return nil, dberrors.Newf(dberrors.InvalidArgument, "index %d is already open", indexID)
	}
	path := m.pathFor(indexID)
	if _, err := os.Stat(path); err == nil {
		return nil, dberrors.Newf(dberrors.InvalidArgument, "index file %q already exists", path)
	}
	h, err := openHandle(path, isUnique, true)
	if err != nil {
		return nil, err
	}
	m.open[indexID] = h
	return h, nil
}

// OpenIndex reopens an existing index file for indexID, failing with
// IndexNotFound if no such file exists.
func (m *Manager) OpenIndex(indexID uint32, isUnique bool) (*Handle, error) {
	if h, ok := m.open[indexID]; ok {
		return h, nil
	}
	path := m.pathFor(indexID)
	if _, err := os.Stat(path); err != nil {
		return nil, dberrors.Newf(dberrors.IndexNotFound, "index file for id %d not found", indexID)
	}
	h, err := openHandle(path, isUnique, false)
	if err != nil {
		return nil, err
	}
	m.open[indexID] = h
	return h, nil
}

// DropIndex closes (if open) and best-effort-removes indexID's backing
// file.
func (m *Manager) DropIndex(indexID uint32) error {
	if h, ok := m.open[indexID]; ok {
		_ = h.Close()
		delete(m.open, indexID)
	}
	path := m.pathFor(indexID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return dberrors.Wrap(err, dberrors.IOError, "removing index file")
	}
	return nil
}

// CloseAll flushes and closes every currently open index.
func (m *Manager) CloseAll() error {
	for name, h := range m.open {
		if err := h.Close(); err != nil {
			return err
		}
		delete(m.open, name)
	}
	return nil
}

func openHandle(path string, isUnique bool, createIfMissing bool) (*Handle, error) {
	fm, err := page.OpenFile(path, createIfMissing)
	if err != nil {
		return nil, err
	}
	pm, err := page.Open(fm, config.DefaultBufferPoolFrames)
	if err != nil {
		return nil, err
	}
	mp, err := pm.Metadata()
	if err != nil {
		return nil, err
	}
	rootID := mp.IndexRootPageID()
	pm.Unpin(config.MetadataPageID, false)

	return &Handle{
		path:     path,
		isUnique: isUnique,
		fm:       fm,
		pm:       pm,
		tree:     btree.New(pm, rootID, isUnique),
	}, nil
}

func (h *Handle) persistRoot() error {
	mp, err := h.pm.Metadata()
	if err != nil {
		return err
	}
	mp.SetIndexRootPageID(h.tree.RootPageID())
	h.pm.Unpin(config.MetadataPageID, true)
	return nil
}

// Insert adds (key, value) to the index.
func (h *Handle) Insert(key []byte, value page.RecordID) error {
	if err := h.tree.Insert(key, value); err != nil {
		return err
	}
	return h.persistRoot()
}

// Remove deletes (key, value) from the index.
func (h *Handle) Remove(key []byte, value page.RecordID) error {
	if err := h.tree.Remove(key, value); err != nil {
		return err
	}
	return h.persistRoot()
}

// Search returns the most recently inserted value stored under key.
func (h *Handle) Search(key []byte) (page.RecordID, bool, error) {
	return h.tree.Search(key)
}

// ScanEqual returns every value stored under key, in insertion order.
func (h *Handle) ScanEqual(key []byte) ([]page.RecordID, error) {
	return h.tree.ScanEqual(key)
}

// ScanRange returns every value whose key falls within [lower, upper].
func (h *Handle) ScanRange(lower []byte, loInclusive bool, upper []byte, hiInclusive bool) ([]page.RecordID, error) {
	return h.tree.ScanRange(lower, loInclusive, upper, hiInclusive)
}

// IsUnique reports whether this index rejects duplicate keys.
func (h *Handle) IsUnique() bool { return h.isUnique }

// RootPageID returns the B+ tree's current root page, for callers (the
// catalog) that mirror it alongside the rest of an index's metadata.
func (h *Handle) RootPageID() page.PageID {
	return h.tree.RootPageID()
}

// Close flushes and closes the index's backing file.
func (h *Handle) Close() error {
	return h.pm.Close()
}
