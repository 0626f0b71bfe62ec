// Package page implements the fixed-size paged file, the slotted page
// layout, and the buffer pool (PageManager) that sits above it. Every other
// storage package (heap, btree, index, catalog) is built on top of the
// types and operations defined here.
package page

import "kizuna/pkg/config"

// PageID identifies a page within a single backing file. 0 is
// config.InvalidPageID; the metadata page is id 1; data begins at id 2.
type PageID = uint32

// SlotID is a page-local slot index.
type SlotID = uint16

// RecordID identifies a physical row location: the high 32 bits are the
// PageID, the low 32 bits the SlotID. It changes only when a row is
// relocated (an update that doesn't fit in place, or a heap-page overflow
// on insert never needs a relocation since it allocates at the chain tail).
type RecordID uint64

// InvalidPageID is the sentinel "no page" value.
const InvalidPageID PageID = config.InvalidPageID

// NewRecordID packs a page id and slot id into a RecordID.
func NewRecordID(pageID PageID, slotID SlotID) RecordID {
	return RecordID(uint64(pageID)<<32 | uint64(slotID))
}

// PageID extracts the page id half of a RecordID.
func (r RecordID) PageID() PageID { return PageID(uint64(r) >> 32) }

// SlotID extracts the slot id half of a RecordID.
func (r RecordID) SlotID() SlotID { return SlotID(uint64(r) & 0xFFFFFFFF) }

// PageType is the closed set of page roles a page's header can declare.
type PageType uint8

const (
	Invalid PageType = iota
	Metadata
	Data
	Index
)

func (t PageType) String() string {
	switch t {
	case Metadata:
		return "METADATA"
	case Data:
		return "DATA"
	case Index:
		return "INDEX"
	default:
		return "INVALID"
	}
}
