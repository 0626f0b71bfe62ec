// Package btree implements the disk-resident B+ tree used for both unique
// and non-unique indexes, per spec.md §4.6. Nodes are encoded one per
// page: an INTERNAL node holds key_count+1 child page ids and key_count
// separator keys; a LEAF node holds key_count (key, RecordID) entries and
// is doubly linked to its neighbors for range scans.
package btree

import (
	"bytes"
	"encoding/binary"

	"kizuna/pkg/config"
	"kizuna/pkg/dberrors"
	"kizuna/pkg/storage/page"
)

// NodeMagic identifies a serialized B+ tree node page, guarding against
// decoding a page that holds something else.
const NodeMagic uint32 = 0x4B5A4958

// MaxKeyLength caps an individual key's serialized byte length.
const MaxKeyLength = config.MaxKeyLength

// MaxKeys forces a split once key_count exceeds this, independent of
// whether the page still has physical room.
const MaxKeys = config.BTreeMaxKeys

type NodeType uint8

const (
	Internal NodeType = 0
	Leaf     NodeType = 1
)

// LeafEntry is one (key, RecordID) pair in a leaf node.
type LeafEntry struct {
	Key   []byte
	Value page.RecordID
}

// Node is the in-memory decoded form of one B+ tree page.
type Node struct {
	Type         NodeType
	PageID       page.PageID
	ParentPageID page.PageID
	NextLeaf     page.PageID // INVALID on internal nodes
	PrevLeaf     page.PageID // INVALID on internal nodes

	LeafEntries []LeafEntry   // populated when Type == Leaf
	Keys        [][]byte      // populated when Type == Internal, len == len(Children)-1
	Children    []page.PageID // populated when Type == Internal, len == len(Keys)+1
}

func NewLeaf(pageID page.PageID) *Node {
	return &Node{
		Type:         Leaf,
		PageID:       pageID,
		ParentPageID: page.InvalidPageID,
		NextLeaf:     page.InvalidPageID,
		PrevLeaf:     page.InvalidPageID,
	}
}

func NewInternal(pageID page.PageID) *Node {
	return &Node{
		Type:         Internal,
		PageID:       pageID,
		ParentPageID: page.InvalidPageID,
	}
}

// KeyCount returns the number of keys/entries in this node.
func (n *Node) KeyCount() int {
	if n.Type == Leaf {
		return len(n.LeafEntries)
	}
	return len(n.Keys)
}

// header layout, written starting at byte 0 of the page (byte 0 doubles as
// the generic page.Page's page_type discriminant, which callers set to
// page.Index via Page.Init before Serialize is ever invoked).
const (
	hdrPageType    = 0 // shared with page.Page
	hdrNodeType    = 1
	hdrMagic       = 4
	hdrKeyCount    = 8
	hdrParent      = 10
	hdrNextLeaf    = 14
	hdrPrevLeaf    = 18
	headerSize     = 24
)

func compareKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Serialize encodes n into p's underlying byte buffer. It fails with
// INVALID_ARGUMENT if any key exceeds MaxKeyLength, and with PAGE_FULL if
// the encoded node does not fit in one page.
func (n *Node) Serialize(p *page.Page) error {
	buf := p.Bytes()

	binary.LittleEndian.PutUint32(buf[hdrMagic:], NodeMagic)
	buf[hdrNodeType] = byte(n.Type)
	binary.LittleEndian.PutUint16(buf[hdrKeyCount:], uint16(n.KeyCount()))
	binary.LittleEndian.PutUint32(buf[hdrParent:], n.ParentPageID)
	binary.LittleEndian.PutUint32(buf[hdrNextLeaf:], n.NextLeaf)
	binary.LittleEndian.PutUint32(buf[hdrPrevLeaf:], n.PrevLeaf)

	var keys [][]byte
	if n.Type == Leaf {
		keys = make([][]byte, len(n.LeafEntries))
		for i, e := range n.LeafEntries {
			keys[i] = e.Key
		}
	} else {
		keys = n.Keys
	}
	for _, k := range keys {
		if len(k) > MaxKeyLength {
			return dberrors.Newf(dberrors.InvalidArgument, "key of %d bytes exceeds MAX_KEY_LENGTH %d", len(k), MaxKeyLength)
		}
	}

	var fixedOff int
	if n.Type == Leaf {
		fixedOff = headerSize + 8*len(n.LeafEntries)
	} else {
		fixedOff = headerSize + 4*len(n.Children)
	}
	dirOff := fixedOff
	dirSize := 2 * len(keys)
	keyAreaStart := dirOff + dirSize

	tail := page.PageSize
	keyOffsets := make([]uint16, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		entrySize := 2 + len(keys[i])
		tail -= entrySize
		if tail < keyAreaStart {
			return dberrors.New(dberrors.PageFull, "node does not fit in one page")
		}
		keyOffsets[i] = uint16(tail)
	}

	if n.Type == Leaf {
		for i, e := range n.LeafEntries {
			binary.LittleEndian.PutUint64(buf[headerSize+8*i:], uint64(e.Value))
		}
	} else {
		for i, c := range n.Children {
			binary.LittleEndian.PutUint32(buf[headerSize+4*i:], c)
		}
	}
	for i, off := range keyOffsets {
		binary.LittleEndian.PutUint16(buf[dirOff+2*i:], off)
	}
	for i, k := range keys {
		off := keyOffsets[i]
		binary.LittleEndian.PutUint16(buf[off:], uint16(len(k)))
		copy(buf[int(off)+2:int(off)+2+len(k)], k)
	}

	return nil
}

// Deserialize decodes a Node from p, which must hold pageID's bytes. It
// fails with INVALID_RECORD_FORMAT if the node magic does not match.
func Deserialize(p *page.Page, pageID page.PageID) (*Node, error) {
	buf := p.Bytes()
	if binary.LittleEndian.Uint32(buf[hdrMagic:]) != NodeMagic {
		return nil, dberrors.New(dberrors.InvalidRecordFormat, "b+ tree node magic mismatch")
	}
	nodeType := NodeType(buf[hdrNodeType])
	keyCount := int(binary.LittleEndian.Uint16(buf[hdrKeyCount:]))
	parent := page.PageID(binary.LittleEndian.Uint32(buf[hdrParent:]))
	next := page.PageID(binary.LittleEndian.Uint32(buf[hdrNextLeaf:]))
	prev := page.PageID(binary.LittleEndian.Uint32(buf[hdrPrevLeaf:]))

	n := &Node{Type: nodeType, PageID: pageID, ParentPageID: parent, NextLeaf: next, PrevLeaf: prev}

	var fixedOff int
	if nodeType == Leaf {
		fixedOff = headerSize + 8*keyCount
	} else {
		fixedOff = headerSize + 4*(keyCount+1)
	}
	dirOff := fixedOff

	readKey := func(i int) ([]byte, error) {
		off := binary.LittleEndian.Uint16(buf[dirOff+2*i:])
		if int(off)+2 > page.PageSize {
			return nil, dberrors.New(dberrors.InvalidRecordFormat, "key offset out of range")
		}
		length := binary.LittleEndian.Uint16(buf[off:])
		start := int(off) + 2
		end := start + int(length)
		if end > page.PageSize {
			return nil, dberrors.New(dberrors.InvalidRecordFormat, "key payload out of range")
		}
		key := make([]byte, length)
		copy(key, buf[start:end])
		return key, nil
	}

	if nodeType == Leaf {
		n.LeafEntries = make([]LeafEntry, keyCount)
		for i := 0; i < keyCount; i++ {
			value := page.RecordID(binary.LittleEndian.Uint64(buf[headerSize+8*i:]))
			key, err := readKey(i)
			if err != nil {
				return nil, err
			}
			n.LeafEntries[i] = LeafEntry{Key: key, Value: value}
		}
	} else {
		n.Children = make([]page.PageID, keyCount+1)
		for i := 0; i <= keyCount; i++ {
			n.Children[i] = page.PageID(binary.LittleEndian.Uint32(buf[headerSize+4*i:]))
		}
		n.Keys = make([][]byte, keyCount)
		for i := 0; i < keyCount; i++ {
			key, err := readKey(i)
			if err != nil {
				return nil, err
			}
			n.Keys[i] = key
		}
	}
	return n, nil
}
