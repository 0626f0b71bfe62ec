package btree

import (
	"kizuna/pkg/dberrors"
	"kizuna/pkg/storage/page"
)

// BPlusTree is a disk-resident B+ tree keyed by opaque byte strings,
// storing page.RecordID values at its leaves. A tree with RootPageID ==
// page.InvalidPageID is empty; the first Insert allocates a root leaf.
//
// Unique trees reject a second Insert of an already-present key with
// DuplicateKey. Non-unique trees accept repeated keys and preserve the
// relative insertion order of entries sharing a key, which ScanEqual
// relies on.
type BPlusTree struct {
	pm       *page.PageManager
	rootID   page.PageID
	isUnique bool
}

// New wraps an existing (possibly empty) tree rooted at rootID. Pass
// page.InvalidPageID for a brand new, empty tree.
func New(pm *page.PageManager, rootID page.PageID, isUnique bool) *BPlusTree {
	return &BPlusTree{pm: pm, rootID: rootID, isUnique: isUnique}
}

// RootPageID returns the tree's current root page id, which changes
// whenever the root splits. Callers persist this into the owning index's
// catalog entry after every mutating call.
func (t *BPlusTree) RootPageID() page.PageID { return t.rootID }

func (t *BPlusTree) fetchNode(id page.PageID) (*Node, error) {
	p, err := t.pm.Fetch(id)
	if err != nil {
		return nil, err
	}
	n, err := Deserialize(p, id)
	t.pm.Unpin(id, false)
	return n, err
}

func (t *BPlusTree) writeNode(n *Node) error {
	p, err := t.pm.Fetch(n.PageID)
	if err != nil {
		return err
	}
	if err := p.Init(page.Index); err != nil {
		t.pm.Unpin(n.PageID, false)
		return err
	}
	if err := n.Serialize(p); err != nil {
		t.pm.Unpin(n.PageID, false)
		return err
	}
	t.pm.Unpin(n.PageID, true)
	return nil
}

func (t *BPlusTree) allocNode() (page.PageID, error) {
	return t.pm.NewPage(page.Index)
}

// childIndex returns the index into an internal node's Children slice that
// descent should follow for key: the last child whose preceding separator
// is <= key.
func childIndex(n *Node, key []byte) int {
	i := 0
	for i < len(n.Keys) && compareKeys(key, n.Keys[i]) >= 0 {
		i++
	}
	return i
}

// descend walks from the root to the leaf that would hold key, returning
// the path of internal nodes visited (root first) alongside the leaf.
func (t *BPlusTree) descend(key []byte) (path []*Node, leaf *Node, err error) {
	if t.rootID == page.InvalidPageID {
		return nil, nil, nil
	}
	id := t.rootID
	for {
		n, ferr := t.fetchNode(id)
		if ferr != nil {
			return nil, nil, ferr
		}
		if n.Type == Leaf {
			return path, n, nil
		}
		path = append(path, n)
		id = n.Children[childIndex(n, key)]
	}
}

// Search returns the single value stored for key. For a non-unique tree
// holding several entries under key, it returns the most recently
// inserted one: entries sharing a key are appended in insertion order,
// possibly spanning more than one leaf after a split, so Search walks
// the leaf chain the same way ScanEqual does and keeps the last match
// rather than stopping at the first.
func (t *BPlusTree) Search(key []byte) (page.RecordID, bool, error) {
	_, leaf, err := t.descend(key)
	if err != nil {
		return 0, false, err
	}
	var value page.RecordID
	found := false
	for leaf != nil {
		for _, e := range leaf.LeafEntries {
			c := compareKeys(e.Key, key)
			if c > 0 {
				return value, found, nil
			}
			if c == 0 {
				value = e.Value
				found = true
			}
		}
		if leaf.NextLeaf == page.InvalidPageID {
			break
		}
		leaf, err = t.fetchNode(leaf.NextLeaf)
		if err != nil {
			return 0, false, err
		}
	}
	return value, found, nil
}

// ScanEqual returns every value stored under key, in insertion order.
func (t *BPlusTree) ScanEqual(key []byte) ([]page.RecordID, error) {
	_, leaf, err := t.descend(key)
	if err != nil {
		return nil, err
	}
	var out []page.RecordID
	for leaf != nil {
		for _, e := range leaf.LeafEntries {
			c := compareKeys(e.Key, key)
			if c > 0 {
				return out, nil
			}
			if c == 0 {
				out = append(out, e.Value)
			}
		}
		if leaf.NextLeaf == page.InvalidPageID {
			break
		}
		leaf, err = t.fetchNode(leaf.NextLeaf)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ScanRange returns every value whose key falls within [lower, upper]
// (inclusivity controlled per bound), in ascending key order. A nil bound
// is unbounded on that side.
func (t *BPlusTree) ScanRange(lower []byte, loInclusive bool, upper []byte, hiInclusive bool) ([]page.RecordID, error) {
	var leaf *Node
	var err error
	if lower == nil {
		leaf, err = t.firstLeaf()
	} else {
		_, leaf, err = t.descend(lower)
	}
	if err != nil {
		return nil, err
	}
	var out []page.RecordID
	for leaf != nil {
		for _, e := range leaf.LeafEntries {
			if lower != nil {
				c := compareKeys(e.Key, lower)
				if c < 0 || (c == 0 && !loInclusive) {
					continue
				}
			}
			if upper != nil {
				c := compareKeys(e.Key, upper)
				if c > 0 || (c == 0 && !hiInclusive) {
					return out, nil
				}
			}
			out = append(out, e.Value)
		}
		if leaf.NextLeaf == page.InvalidPageID {
			break
		}
		leaf, err = t.fetchNode(leaf.NextLeaf)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *BPlusTree) firstLeaf() (*Node, error) {
	if t.rootID == page.InvalidPageID {
		return nil, nil
	}
	id := t.rootID
	for {
		n, err := t.fetchNode(id)
		if err != nil {
			return nil, err
		}
		if n.Type == Leaf {
			return n, nil
		}
		id = n.Children[0]
	}
}

// Insert adds (key, value) to the tree, splitting nodes bottom-up as
// needed. For a unique tree, inserting a key that already exists fails
// with DuplicateKey and the tree is left unmodified.
func (t *BPlusTree) Insert(key []byte, value page.RecordID) error {
	if len(key) > MaxKeyLength {
		return dberrors.Newf(dberrors.InvalidArgument, "key of %d bytes exceeds MAX_KEY_LENGTH %d", len(key), MaxKeyLength)
	}

	if t.rootID == page.InvalidPageID {
		rootID, err := t.allocNode()
		if err != nil {
			return err
		}
		root := NewLeaf(rootID)
		root.LeafEntries = []LeafEntry{{Key: key, Value: value}}
		if err := t.writeNode(root); err != nil {
			return err
		}
		t.rootID = rootID
		return nil
	}

	path, leaf, err := t.descend(key)
	if err != nil {
		return err
	}

	pos := 0
	for pos < len(leaf.LeafEntries) && compareKeys(leaf.LeafEntries[pos].Key, key) <= 0 {
		if t.isUnique && compareKeys(leaf.LeafEntries[pos].Key, key) == 0 {
			return dberrors.Newf(dberrors.DuplicateKey, "key already present in unique index")
		}
		pos++
	}
	entries := make([]LeafEntry, 0, len(leaf.LeafEntries)+1)
	entries = append(entries, leaf.LeafEntries[:pos]...)
	entries = append(entries, LeafEntry{Key: key, Value: value})
	entries = append(entries, leaf.LeafEntries[pos:]...)
	leaf.LeafEntries = entries

	if !t.needsSplit(leaf) {
		return t.writeNode(leaf)
	}
	return t.splitLeafAndPropagate(leaf, path)
}

func (t *BPlusTree) needsSplit(n *Node) bool {
	if n.KeyCount() > MaxKeys {
		return true
	}
	probe := page.Scratch()
	return n.Serialize(probe) != nil
}

func (t *BPlusTree) splitLeafAndPropagate(leaf *Node, path []*Node) error {
	mid := len(leaf.LeafEntries) / 2
	rightEntries := append([]LeafEntry(nil), leaf.LeafEntries[mid:]...)
	leaf.LeafEntries = append([]LeafEntry(nil), leaf.LeafEntries[:mid]...)

	rightID, err := t.allocNode()
	if err != nil {
		return err
	}
	right := NewLeaf(rightID)
	right.LeafEntries = rightEntries
	right.NextLeaf = leaf.NextLeaf
	right.PrevLeaf = leaf.PageID
	right.ParentPageID = leaf.ParentPageID

	if leaf.NextLeaf != page.InvalidPageID {
		oldNext, err := t.fetchNode(leaf.NextLeaf)
		if err != nil {
			return err
		}
		oldNext.PrevLeaf = rightID
		if err := t.writeNode(oldNext); err != nil {
			return err
		}
	}
	leaf.NextLeaf = rightID

	if err := t.writeNode(leaf); err != nil {
		return err
	}
	if err := t.writeNode(right); err != nil {
		return err
	}

	promotedKey := right.LeafEntries[0].Key
	return t.insertIntoParent(path, leaf.PageID, promotedKey, rightID)
}

// insertIntoParent inserts (promotedKey, newChild) into the parent of
// leftChild (the last node on path), splitting internal nodes upward as
// needed and growing the tree's height when the root itself splits.
func (t *BPlusTree) insertIntoParent(path []*Node, leftChild page.PageID, promotedKey []byte, newChild page.PageID) error {
	if len(path) == 0 {
		newRootID, err := t.allocNode()
		if err != nil {
			return err
		}
		root := NewInternal(newRootID)
		root.Keys = [][]byte{promotedKey}
		root.Children = []page.PageID{leftChild, newChild}
		if err := t.writeNode(root); err != nil {
			return err
		}
		if err := t.setParent(leftChild, newRootID); err != nil {
			return err
		}
		if err := t.setParent(newChild, newRootID); err != nil {
			return err
		}
		t.rootID = newRootID
		return nil
	}

	parent := path[len(path)-1]
	rest := path[:len(path)-1]

	pos := 0
	for pos < len(parent.Children) && parent.Children[pos] != leftChild {
		pos++
	}

	keys := make([][]byte, 0, len(parent.Keys)+1)
	keys = append(keys, parent.Keys[:pos]...)
	keys = append(keys, promotedKey)
	keys = append(keys, parent.Keys[pos:]...)

	children := make([]page.PageID, 0, len(parent.Children)+1)
	children = append(children, parent.Children[:pos+1]...)
	children = append(children, newChild)
	children = append(children, parent.Children[pos+1:]...)

	parent.Keys = keys
	parent.Children = children

	if err := t.setParent(newChild, parent.PageID); err != nil {
		return err
	}

	if !t.needsSplit(parent) {
		return t.writeNode(parent)
	}

	mid := len(parent.Keys) / 2
	promoted := parent.Keys[mid]

	rightID, err := t.allocNode()
	if err != nil {
		return err
	}
	right := NewInternal(rightID)
	right.Keys = append([][]byte(nil), parent.Keys[mid+1:]...)
	right.Children = append([]page.PageID(nil), parent.Children[mid+1:]...)
	right.ParentPageID = parent.ParentPageID

	parent.Keys = append([][]byte(nil), parent.Keys[:mid]...)
	parent.Children = append([]page.PageID(nil), parent.Children[:mid+1]...)

	if err := t.writeNode(parent); err != nil {
		return err
	}
	if err := t.writeNode(right); err != nil {
		return err
	}
	for _, c := range right.Children {
		if err := t.setParent(c, rightID); err != nil {
			return err
		}
	}

	return t.insertIntoParent(rest, parent.PageID, promoted, rightID)
}

func (t *BPlusTree) setParent(childID page.PageID, parentID page.PageID) error {
	child, err := t.fetchNode(childID)
	if err != nil {
		return err
	}
	if child.ParentPageID == parentID {
		return nil
	}
	child.ParentPageID = parentID
	return t.writeNode(child)
}

// Remove deletes one (key, value) entry from the tree. It does not merge
// underflowing siblings; keys are simply removed from their leaf, which
// keeps delete-heavy workloads simple at the cost of leaving sparse
// leaves in the chain.
func (t *BPlusTree) Remove(key []byte, value page.RecordID) error {
	_, leaf, err := t.descend(key)
	if err != nil {
		return err
	}
	if leaf == nil {
		return dberrors.New(dberrors.RecordNotFound, "key not found")
	}
	idx := -1
	for i, e := range leaf.LeafEntries {
		if compareKeys(e.Key, key) == 0 && e.Value == value {
			idx = i
			break
		}
	}
	if idx < 0 {
		return dberrors.New(dberrors.RecordNotFound, "key not found")
	}
	leaf.LeafEntries = append(leaf.LeafEntries[:idx], leaf.LeafEntries[idx+1:]...)
	return t.writeNode(leaf)
}
