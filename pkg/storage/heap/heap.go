// Package heap implements TableHeap: the chain of DATA pages that backs
// one table's rows, per spec.md §4.4.
package heap

import (
	"kizuna/pkg/dberrors"
	"kizuna/pkg/storage/page"
)

const maxPayloadSize = 65535

// TableHeap is identified by its root page id (a DATA page) and walks
// next_page_id links to a cached tail.
type TableHeap struct {
	pm     *page.PageManager
	rootID page.PageID
	tailID page.PageID
}

// Create allocates a new empty DATA root page and returns a heap over it.
func Create(pm *page.PageManager) (*TableHeap, error) {
	rootID, err := pm.NewPage(page.Data)
	if err != nil {
		return nil, err
	}
	return &TableHeap{pm: pm, rootID: rootID, tailID: rootID}, nil
}

// Open attaches a TableHeap to an existing root page, walking the chain
// once to find its current tail.
func Open(pm *page.PageManager, rootID page.PageID) (*TableHeap, error) {
	h := &TableHeap{pm: pm, rootID: rootID}
	tail, err := h.findTail()
	if err != nil {
		return nil, err
	}
	h.tailID = tail
	return h, nil
}

// RootPageID returns this heap's root page id.
func (h *TableHeap) RootPageID() page.PageID { return h.rootID }

func (h *TableHeap) findTail() (page.PageID, error) {
	id := h.rootID
	for {
		p, err := h.pm.Fetch(id)
		if err != nil {
			return 0, err
		}
		next := p.NextPageID()
		h.pm.Unpin(id, false)
		if next == page.InvalidPageID {
			return id, nil
		}
		id = next
	}
}

// Insert appends payload to the heap, relocating to a fresh page when the
// cached tail (and any pages already chained after it) are full. Returns
// the new row's RecordID.
func (h *TableHeap) Insert(payload []byte) (page.RecordID, error) {
	if len(payload) > maxPayloadSize {
		return 0, dberrors.Newf(dberrors.RecordTooLarge, "payload of %d bytes exceeds maximum %d", len(payload), maxPayloadSize)
	}

	id := h.tailID
	for {
		p, err := h.pm.Fetch(id)
		if err != nil {
			return 0, err
		}
		slot, insertErr := p.Insert(payload)
		if insertErr == nil {
			h.pm.Unpin(id, true)
			h.tailID = id
			return page.NewRecordID(id, slot), nil
		}
		if !dberrors.Is(insertErr, dberrors.PageFull) {
			h.pm.Unpin(id, false)
			return 0, insertErr
		}

		next := p.NextPageID()
		if next == page.InvalidPageID {
			newID, aerr := h.pm.NewPage(page.Data)
			if aerr != nil {
				h.pm.Unpin(id, false)
				return 0, aerr
			}
			p.SetNextPageID(newID)
			h.pm.Unpin(id, true)

			np, ferr := h.pm.Fetch(newID)
			if ferr != nil {
				return 0, ferr
			}
			np.SetPrevPageID(id)
			h.pm.Unpin(newID, true)
			id = newID
			continue
		}
		h.pm.Unpin(id, false)
		id = next
	}
}

// Read returns the payload at loc.
func (h *TableHeap) Read(loc page.RecordID) ([]byte, error) {
	p, err := h.pm.Fetch(loc.PageID())
	if err != nil {
		return nil, err
	}
	defer h.pm.Unpin(loc.PageID(), false)
	return p.Read(loc.SlotID())
}

// Erase tombstones the row at loc.
func (h *TableHeap) Erase(loc page.RecordID) error {
	p, err := h.pm.Fetch(loc.PageID())
	if err != nil {
		return err
	}
	err = p.Erase(loc.SlotID())
	h.pm.Unpin(loc.PageID(), err == nil)
	return err
}

// Update writes payload to loc's row. If it fits in place the RecordID is
// unchanged and relocated is false; otherwise the row is erased and
// reinserted elsewhere, returning the new RecordID with relocated=true —
// callers must propagate the identity change to every index on the table.
func (h *TableHeap) Update(loc page.RecordID, payload []byte) (newLoc page.RecordID, relocated bool, err error) {
	if len(payload) > maxPayloadSize {
		return 0, false, dberrors.Newf(dberrors.RecordTooLarge, "payload of %d bytes exceeds maximum %d", len(payload), maxPayloadSize)
	}
	p, err := h.pm.Fetch(loc.PageID())
	if err != nil {
		return 0, false, err
	}
	ok, uerr := p.Update(loc.SlotID(), payload)
	if uerr != nil {
		h.pm.Unpin(loc.PageID(), false)
		return 0, false, uerr
	}
	if ok {
		h.pm.Unpin(loc.PageID(), true)
		return loc, false, nil
	}
	h.pm.Unpin(loc.PageID(), false)

	if err := h.Erase(loc); err != nil {
		return 0, false, err
	}
	newLoc, err = h.Insert(payload)
	if err != nil {
		return 0, false, err
	}
	return newLoc, true, nil
}

// Truncate resets the root page to empty and frees every page after it in
// the chain, restoring the tail to the root.
func (h *TableHeap) Truncate() error {
	p, err := h.pm.Fetch(h.rootID)
	if err != nil {
		return err
	}
	next := p.NextPageID()
	if err := p.Init(page.Data); err != nil {
		h.pm.Unpin(h.rootID, false)
		return err
	}
	h.pm.Unpin(h.rootID, true)

	for id := next; id != page.InvalidPageID; {
		np, ferr := h.pm.Fetch(id)
		if ferr != nil {
			return ferr
		}
		nextID := np.NextPageID()
		h.pm.Unpin(id, false)
		if err := h.pm.FreePage(id); err != nil {
			return err
		}
		id = nextID
	}
	h.tailID = h.rootID
	return nil
}

// ForEach walks the chain in page order, slot order, invoking visit for
// every live row. The single-threaded model forbids mutating the heap
// while a scan is in progress.
func (h *TableHeap) ForEach(visit func(loc page.RecordID, payload []byte) error) error {
	for id := h.rootID; id != page.InvalidPageID; {
		p, err := h.pm.Fetch(id)
		if err != nil {
			return err
		}
		visitErr := p.Each(func(slot page.SlotID, payload []byte) error {
			return visit(page.NewRecordID(id, slot), payload)
		})
		next := p.NextPageID()
		h.pm.Unpin(id, false)
		if visitErr != nil {
			return visitErr
		}
		id = next
	}
	return nil
}

// FreeChain frees every page in the chain rooted at rootID, including the
// root itself. Used after a successful ALTER TABLE rewrite to release the
// superseded heap.
func FreeChain(pm *page.PageManager, rootID page.PageID) error {
	for id := rootID; id != page.InvalidPageID; {
		p, err := pm.Fetch(id)
		if err != nil {
			return err
		}
		next := p.NextPageID()
		pm.Unpin(id, false)
		if err := pm.FreePage(id); err != nil {
			return err
		}
		id = next
	}
	return nil
}

// Rewrite builds a brand new heap by applying transform to every live row
// currently in src, in scan order, and inserting the result into a fresh
// root. It is the mechanism ALTER TABLE ADD|DROP COLUMN uses to migrate a
// table's storage to a new schema without mutating the source heap, so a
// failure midway leaves the original table intact.
func Rewrite(pm *page.PageManager, src *TableHeap, transform func(old []byte) ([]byte, error)) (page.PageID, error) {
	dst, err := Create(pm)
	if err != nil {
		return 0, err
	}
	scanErr := src.ForEach(func(_ page.RecordID, payload []byte) error {
		newPayload, terr := transform(payload)
		if terr != nil {
			return terr
		}
		_, ierr := dst.Insert(newPayload)
		return ierr
	})
	if scanErr != nil {
		_ = FreeChain(pm, dst.rootID)
		return 0, scanErr
	}
	return dst.rootID, nil
}
