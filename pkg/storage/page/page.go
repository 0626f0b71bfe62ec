package page

import (
	"encoding/binary"

	"kizuna/pkg/config"
	"kizuna/pkg/dberrors"
)

// PageSize is the fixed size in bytes of every page.
const PageSize = config.PageSize

// Header layout. kHeaderSize is the fixed prefix; the slot directory grows
// forward immediately after it.
const (
	offPageType        = 0
	offReserved        = 1
	offSlotCount       = 2
	offRecordCount     = 4
	offFreeSpaceOffset = 6
	offPrevPageID      = 8
	offNextPageID      = 12
	kHeaderSize        = 16
)

// SlotEntry layout: 2-byte offset, 2-byte length, 1-byte tombstone flag,
// 1 byte padding.
const (
	slotEntrySize      = 6
	slotOffOffset      = 0
	slotOffLength      = 2
	slotOffTombstone   = 4
)

// Page is an in-memory view over one PAGE_SIZE byte buffer, laid out as a
// fixed header, a slot directory growing forward from the header, and
// record payloads growing backward from the page tail.
type Page struct {
	data []byte // len == PageSize
}

// Wrap adapts an existing PageSize-length byte buffer (freshly read from
// disk, or zero-initialized for a brand new page) into a Page.
func Wrap(data []byte) (*Page, error) {
	if len(data) != PageSize {
		return nil, dberrors.Newf(dberrors.InvalidRecordFormat, "page data must be %d bytes, got %d", PageSize, len(data))
	}
	return &Page{data: data}, nil
}

// Scratch returns a fresh, zero-initialized Page backed by no file or
// buffer frame. Callers use it to probe whether some content would fit on
// a page (e.g. before committing a B+ tree node split) without touching
// the pool.
func Scratch() *Page {
	return &Page{data: make([]byte, PageSize)}
}

// Bytes returns the underlying buffer, for writing back to disk.
func (p *Page) Bytes() []byte { return p.data }

func (p *Page) PageType() PageType { return PageType(p.data[offPageType]) }
func (p *Page) setPageType(t PageType) { p.data[offPageType] = byte(t) }

func (p *Page) SlotCount() uint16 {
	return binary.LittleEndian.Uint16(p.data[offSlotCount:])
}
func (p *Page) setSlotCount(n uint16) {
	binary.LittleEndian.PutUint16(p.data[offSlotCount:], n)
}

func (p *Page) RecordCount() uint16 {
	return binary.LittleEndian.Uint16(p.data[offRecordCount:])
}
func (p *Page) setRecordCount(n uint16) {
	binary.LittleEndian.PutUint16(p.data[offRecordCount:], n)
}

func (p *Page) FreeSpaceOffset() uint16 {
	return binary.LittleEndian.Uint16(p.data[offFreeSpaceOffset:])
}
func (p *Page) setFreeSpaceOffset(n uint16) {
	binary.LittleEndian.PutUint16(p.data[offFreeSpaceOffset:], n)
}

func (p *Page) PrevPageID() PageID {
	return PageID(binary.LittleEndian.Uint32(p.data[offPrevPageID:]))
}
func (p *Page) SetPrevPageID(id PageID) {
	binary.LittleEndian.PutUint32(p.data[offPrevPageID:], id)
}

func (p *Page) NextPageID() PageID {
	return PageID(binary.LittleEndian.Uint32(p.data[offNextPageID:]))
}
func (p *Page) SetNextPageID(id PageID) {
	binary.LittleEndian.PutUint32(p.data[offNextPageID:], id)
}

// Init (re)formats the page as an empty page of the given type. A page may
// be reinitialized as DATA only from INVALID (freshly allocated, or
// recycled off the freelist); once a page is INDEX or METADATA it must
// never be reinitialized as DATA.
func (p *Page) Init(t PageType) error {
	if t == Data && p.PageType() != Invalid && p.PageType() != Data {
		return dberrors.Newf(dberrors.InvalidPageType, "page of type %s cannot become DATA", p.PageType())
	}
	p.setPageType(t)
	p.setSlotCount(0)
	p.setRecordCount(0)
	p.setFreeSpaceOffset(kHeaderSize)
	p.SetPrevPageID(InvalidPageID)
	p.SetNextPageID(InvalidPageID)
	return nil
}

func (p *Page) slotOffset(s SlotID) int {
	return kHeaderSize + int(s)*slotEntrySize
}

func (p *Page) slotRecordOffset(s SlotID) uint16 {
	return binary.LittleEndian.Uint16(p.data[p.slotOffset(s)+slotOffOffset:])
}
func (p *Page) setSlotRecordOffset(s SlotID, off uint16) {
	binary.LittleEndian.PutUint16(p.data[p.slotOffset(s)+slotOffOffset:], off)
}

func (p *Page) slotLength(s SlotID) uint16 {
	return binary.LittleEndian.Uint16(p.data[p.slotOffset(s)+slotOffLength:])
}
func (p *Page) setSlotLength(s SlotID, n uint16) {
	binary.LittleEndian.PutUint16(p.data[p.slotOffset(s)+slotOffLength:], n)
}

func (p *Page) slotTombstoned(s SlotID) bool {
	return p.data[p.slotOffset(s)+slotOffTombstone] != 0
}
func (p *Page) setSlotTombstoned(s SlotID, v bool) {
	if v {
		p.data[p.slotOffset(s)+slotOffTombstone] = 1
	} else {
		p.data[p.slotOffset(s)+slotOffTombstone] = 0
	}
}

// payloadTail returns the offset of the start of the lowest-addressed
// record payload currently on the page, i.e. the boundary free space grows
// up against from the tail.
func (p *Page) payloadTail() uint16 {
	tail := uint16(PageSize)
	n := p.SlotCount()
	for i := SlotID(0); i < n; i++ {
		if off := p.slotRecordOffset(i); off < tail {
			tail = off
		}
	}
	return tail
}

// Insert appends payload as a new slot. It fails with PAGE_FULL if there is
// not enough contiguous room for a new slot entry plus the payload.
func (p *Page) Insert(payload []byte) (SlotID, error) {
	n := len(payload)
	fso := p.FreeSpaceOffset()
	tail := p.payloadTail()
	if int(fso)+slotEntrySize > int(tail)-n {
		return 0, dberrors.New(dberrors.PageFull, "not enough room on page for insert")
	}

	newOffset := tail - uint16(n)
	copy(p.data[newOffset:newOffset+uint16(n)], payload)

	slot := SlotID(p.SlotCount())
	p.setSlotRecordOffset(slot, newOffset)
	p.setSlotLength(slot, uint16(n))
	p.setSlotTombstoned(slot, false)

	p.setSlotCount(p.SlotCount() + 1)
	p.setRecordCount(p.RecordCount() + 1)
	p.setFreeSpaceOffset(fso + slotEntrySize)
	return slot, nil
}

// Read returns the payload bytes for slot, or RECORD_NOT_FOUND if the slot
// is out of range or tombstoned.
func (p *Page) Read(slot SlotID) ([]byte, error) {
	if uint16(slot) >= p.SlotCount() {
		return nil, dberrors.New(dberrors.RecordNotFound, "slot out of range")
	}
	if p.slotTombstoned(slot) {
		return nil, dberrors.New(dberrors.RecordNotFound, "slot is tombstoned")
	}
	off := p.slotRecordOffset(slot)
	ln := p.slotLength(slot)
	out := make([]byte, ln)
	copy(out, p.data[off:off+ln])
	return out, nil
}

// Update overwrites slot in place if newBytes fits within the slot's
// existing length, shrinking the logical length as needed. Returns
// false, nil if it does not fit; the caller must relocate (erase + insert
// elsewhere).
func (p *Page) Update(slot SlotID, newBytes []byte) (bool, error) {
	if uint16(slot) >= p.SlotCount() {
		return false, dberrors.New(dberrors.RecordNotFound, "slot out of range")
	}
	if p.slotTombstoned(slot) {
		return false, dberrors.New(dberrors.RecordNotFound, "slot is tombstoned")
	}
	existingLen := p.slotLength(slot)
	if uint16(len(newBytes)) > existingLen {
		return false, nil
	}
	off := p.slotRecordOffset(slot)
	copy(p.data[off:off+uint16(len(newBytes))], newBytes)
	p.setSlotLength(slot, uint16(len(newBytes)))
	return true, nil
}

// Erase tombstones slot. Space is not reclaimed until a page-level
// rewrite (truncate or ALTER migration).
func (p *Page) Erase(slot SlotID) error {
	if uint16(slot) >= p.SlotCount() {
		return dberrors.New(dberrors.RecordNotFound, "slot out of range")
	}
	if p.slotTombstoned(slot) {
		return dberrors.New(dberrors.RecordNotFound, "slot already tombstoned")
	}
	p.setSlotTombstoned(slot, true)
	p.setRecordCount(p.RecordCount() - 1)
	return nil
}

// IsTombstoned reports a slot's tombstone bit without reading its payload.
func (p *Page) IsTombstoned(slot SlotID) bool {
	if uint16(slot) >= p.SlotCount() {
		return true
	}
	return p.slotTombstoned(slot)
}

// Each calls fn for every live (non-tombstoned) slot in slot order.
func (p *Page) Each(fn func(slot SlotID, payload []byte) error) error {
	n := p.SlotCount()
	for i := SlotID(0); i < uint16(n); i++ {
		if p.slotTombstoned(i) {
			continue
		}
		payload, err := p.Read(i)
		if err != nil {
			return err
		}
		if err := fn(i, payload); err != nil {
			return err
		}
	}
	return nil
}
