package page

import "encoding/binary"

// Metadata page (id 1) layout, stored immediately after the generic page
// header: global id counters, the three catalog relation roots, and the
// freelist-trunk head. Catalog roots are lazily initialized by the catalog
// layer on first use (0 == not yet created).
const (
	metaOffNextTableID        = kHeaderSize
	metaOffNextIndexID        = kHeaderSize + 4
	metaOffCatalogTablesRoot  = kHeaderSize + 8
	metaOffCatalogColumnsRoot = kHeaderSize + 12
	metaOffCatalogIndexesRoot = kHeaderSize + 16
	metaOffFreelistHead       = kHeaderSize + 20
	metaOffIndexRoot          = kHeaderSize + 24
)

// MetadataPage is a typed view over the reserved metadata page.
type MetadataPage struct {
	*Page
}

// WrapMetadata adapts p as a MetadataPage. Callers must ensure p's type is
// Metadata (or being initialized as one).
func WrapMetadata(p *Page) *MetadataPage {
	return &MetadataPage{Page: p}
}

func (m *MetadataPage) NextTableID() uint32 {
	return binary.LittleEndian.Uint32(m.data[metaOffNextTableID:])
}
func (m *MetadataPage) SetNextTableID(v uint32) {
	binary.LittleEndian.PutUint32(m.data[metaOffNextTableID:], v)
}

func (m *MetadataPage) NextIndexID() uint32 {
	return binary.LittleEndian.Uint32(m.data[metaOffNextIndexID:])
}
func (m *MetadataPage) SetNextIndexID(v uint32) {
	binary.LittleEndian.PutUint32(m.data[metaOffNextIndexID:], v)
}

func (m *MetadataPage) CatalogTablesRoot() PageID {
	return PageID(binary.LittleEndian.Uint32(m.data[metaOffCatalogTablesRoot:]))
}
func (m *MetadataPage) SetCatalogTablesRoot(v PageID) {
	binary.LittleEndian.PutUint32(m.data[metaOffCatalogTablesRoot:], v)
}

func (m *MetadataPage) CatalogColumnsRoot() PageID {
	return PageID(binary.LittleEndian.Uint32(m.data[metaOffCatalogColumnsRoot:]))
}
func (m *MetadataPage) SetCatalogColumnsRoot(v PageID) {
	binary.LittleEndian.PutUint32(m.data[metaOffCatalogColumnsRoot:], v)
}

func (m *MetadataPage) CatalogIndexesRoot() PageID {
	return PageID(binary.LittleEndian.Uint32(m.data[metaOffCatalogIndexesRoot:]))
}
func (m *MetadataPage) SetCatalogIndexesRoot(v PageID) {
	binary.LittleEndian.PutUint32(m.data[metaOffCatalogIndexesRoot:], v)
}

func (m *MetadataPage) FreelistHead() PageID {
	return PageID(binary.LittleEndian.Uint32(m.data[metaOffFreelistHead:]))
}
func (m *MetadataPage) SetFreelistHead(v PageID) {
	binary.LittleEndian.PutUint32(m.data[metaOffFreelistHead:], v)
}

// IndexRootPageID holds the B+ tree root page id for a single-index file's
// metadata page. The main catalog database file never touches this field;
// it exists solely for the dedicated per-index files pkg/storage/index
// manages.
func (m *MetadataPage) IndexRootPageID() PageID {
	return PageID(binary.LittleEndian.Uint32(m.data[metaOffIndexRoot:]))
}
func (m *MetadataPage) SetIndexRootPageID(v PageID) {
	binary.LittleEndian.PutUint32(m.data[metaOffIndexRoot:], v)
}

// InitMetadata formats a brand new metadata page with both next-id
// counters set to 1 and no catalog roots, freelist or index root yet.
func InitMetadata(p *Page) (*MetadataPage, error) {
	if err := p.Init(Metadata); err != nil {
		return nil, err
	}
	m := WrapMetadata(p)
	m.SetNextTableID(1)
	m.SetNextIndexID(1)
	m.SetCatalogTablesRoot(InvalidPageID)
	m.SetCatalogColumnsRoot(InvalidPageID)
	m.SetCatalogIndexesRoot(InvalidPageID)
	m.SetFreelistHead(InvalidPageID)
	m.SetIndexRootPageID(InvalidPageID)
	return m, nil
}
