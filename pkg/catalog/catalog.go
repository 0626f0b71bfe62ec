// Package catalog implements the persistent table/column/index metadata
// relations, per spec.md §4.5. Each relation lives on exactly one
// reserved page at this teaching scale; every mutation rewrites the whole
// page and refreshes an in-memory cache that reads are served from.
package catalog

import (
	"sort"

	"kizuna/pkg/config"
	"kizuna/pkg/dberrors"
	"kizuna/pkg/storage/page"
)

// Catalog is the live, cached view over the three catalog relations. Per
// spec.md §5, statement execution is single-threaded and synchronous, so
// a Catalog needs no internal locking.
type Catalog struct {
	pm *page.PageManager

	tablesPageID  page.PageID
	columnsPageID page.PageID
	indexesPageID page.PageID

	tables       map[uint32]*TableEntry
	tablesByName map[string]uint32
	columns      map[uint32][]*ColumnEntry // by table id, sorted by (ordinal_position, column_id)
	indexes      map[uint32]*IndexEntry
	indexesByName map[string]uint32
}

// Open loads (or lazily prepares to create) the catalog relations backing
// pm's database file.
func Open(pm *page.PageManager) (*Catalog, error) {
	mp, err := pm.Metadata()
	if err != nil {
		return nil, err
	}
	c := &Catalog{
		pm:            pm,
		tablesPageID:  mp.CatalogTablesRoot(),
		columnsPageID: mp.CatalogColumnsRoot(),
		indexesPageID: mp.CatalogIndexesRoot(),
		tables:        make(map[uint32]*TableEntry),
		tablesByName:  make(map[string]uint32),
		columns:       make(map[uint32][]*ColumnEntry),
		indexes:       make(map[uint32]*IndexEntry),
		indexesByName: make(map[string]uint32),
	}
	pm.Unpin(config.MetadataPageID, false)

	if err := c.loadTables(); err != nil {
		return nil, err
	}
	if err := c.loadColumns(); err != nil {
		return nil, err
	}
	if err := c.loadIndexes(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) loadTables() error {
	if c.tablesPageID == page.InvalidPageID {
		return nil
	}
	p, err := c.pm.Fetch(c.tablesPageID)
	if err != nil {
		return err
	}
	defer c.pm.Unpin(c.tablesPageID, false)
	return p.Each(func(_ page.SlotID, payload []byte) error {
		e, err := decodeTableEntry(payload)
		if err != nil {
			return err
		}
		c.tables[e.TableID] = e
		c.tablesByName[e.Name] = e.TableID
		return nil
	})
}

func (c *Catalog) loadColumns() error {
	if c.columnsPageID == page.InvalidPageID {
		return nil
	}
	p, err := c.pm.Fetch(c.columnsPageID)
	if err != nil {
		return err
	}
	defer c.pm.Unpin(c.columnsPageID, false)
	if err := p.Each(func(_ page.SlotID, payload []byte) error {
		e, err := decodeColumnEntry(payload)
		if err != nil {
			return err
		}
		c.columns[e.TableID] = append(c.columns[e.TableID], e)
		return nil
	}); err != nil {
		return err
	}
	for tid := range c.columns {
		sortColumns(c.columns[tid])
	}
	return nil
}

func (c *Catalog) loadIndexes() error {
	if c.indexesPageID == page.InvalidPageID {
		return nil
	}
	p, err := c.pm.Fetch(c.indexesPageID)
	if err != nil {
		return err
	}
	defer c.pm.Unpin(c.indexesPageID, false)
	return p.Each(func(_ page.SlotID, payload []byte) error {
		e, err := decodeIndexEntry(payload)
		if err != nil {
			return err
		}
		c.indexes[e.IndexID] = e
		c.indexesByName[e.Name] = e.IndexID
		return nil
	})
}

func sortColumns(cols []*ColumnEntry) {
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].OrdinalPosition != cols[j].OrdinalPosition {
			return cols[i].OrdinalPosition < cols[j].OrdinalPosition
		}
		return cols[i].ColumnID < cols[j].ColumnID
	})
}

func (c *Catalog) ensureTablesPage() (page.PageID, error) {
	if c.tablesPageID != page.InvalidPageID {
		return c.tablesPageID, nil
	}
	id, err := c.pm.NewPage(page.Metadata)
	if err != nil {
		return 0, err
	}
	c.tablesPageID = id
	return id, c.setCatalogRoot(catalogTables, id)
}

func (c *Catalog) ensureColumnsPage() (page.PageID, error) {
	if c.columnsPageID != page.InvalidPageID {
		return c.columnsPageID, nil
	}
	id, err := c.pm.NewPage(page.Metadata)
	if err != nil {
		return 0, err
	}
	c.columnsPageID = id
	return id, c.setCatalogRoot(catalogColumns, id)
}

func (c *Catalog) ensureIndexesPage() (page.PageID, error) {
	if c.indexesPageID != page.InvalidPageID {
		return c.indexesPageID, nil
	}
	id, err := c.pm.NewPage(page.Metadata)
	if err != nil {
		return 0, err
	}
	c.indexesPageID = id
	return id, c.setCatalogRoot(catalogIndexes, id)
}

type catalogRelation int

const (
	catalogTables catalogRelation = iota
	catalogColumns
	catalogIndexes
)

func (c *Catalog) setCatalogRoot(rel catalogRelation, id page.PageID) error {
	mp, err := c.pm.Metadata()
	if err != nil {
		return err
	}
	switch rel {
	case catalogTables:
		mp.SetCatalogTablesRoot(id)
	case catalogColumns:
		mp.SetCatalogColumnsRoot(id)
	case catalogIndexes:
		mp.SetCatalogIndexesRoot(id)
	}
	c.pm.Unpin(config.MetadataPageID, true)
	return nil
}

func (c *Catalog) nextTableID() (uint32, error) {
	mp, err := c.pm.Metadata()
	if err != nil {
		return 0, err
	}
	id := mp.NextTableID()
	mp.SetNextTableID(id + 1)
	c.pm.Unpin(config.MetadataPageID, true)
	return id, nil
}

func (c *Catalog) nextIndexID() (uint32, error) {
	mp, err := c.pm.Metadata()
	if err != nil {
		return 0, err
	}
	id := mp.NextIndexID()
	mp.SetNextIndexID(id + 1)
	c.pm.Unpin(config.MetadataPageID, true)
	return id, nil
}

// persistTables rewrites the entire tables relation page from the
// in-memory cache.
func (c *Catalog) persistTables() error {
	id, err := c.ensureTablesPage()
	if err != nil {
		return err
	}
	p, err := c.pm.Fetch(id)
	if err != nil {
		return err
	}
	if err := p.Init(page.Metadata); err != nil {
		c.pm.Unpin(id, false)
		return err
	}
	for _, e := range c.tables {
		if _, err := p.Insert(encodeTableEntry(e)); err != nil {
			c.pm.Unpin(id, false)
			return err
		}
	}
	c.pm.Unpin(id, true)
	return nil
}

// persistColumns rewrites the entire columns relation page from the
// in-memory cache.
func (c *Catalog) persistColumns() error {
	id, err := c.ensureColumnsPage()
	if err != nil {
		return err
	}
	p, err := c.pm.Fetch(id)
	if err != nil {
		return err
	}
	if err := p.Init(page.Metadata); err != nil {
		c.pm.Unpin(id, false)
		return err
	}
	for _, cols := range c.columns {
		for _, col := range cols {
			enc, eerr := encodeColumnEntry(col)
			if eerr != nil {
				c.pm.Unpin(id, false)
				return eerr
			}
			if _, ierr := p.Insert(enc); ierr != nil {
				c.pm.Unpin(id, false)
				return ierr
			}
		}
	}
	c.pm.Unpin(id, true)
	return nil
}

// persistIndexes rewrites the entire indexes relation page from the
// in-memory cache.
func (c *Catalog) persistIndexes() error {
	id, err := c.ensureIndexesPage()
	if err != nil {
		return err
	}
	p, err := c.pm.Fetch(id)
	if err != nil {
		return err
	}
	if err := p.Init(page.Metadata); err != nil {
		c.pm.Unpin(id, false)
		return err
	}
	for _, e := range c.indexes {
		if _, ierr := p.Insert(encodeIndexEntry(e)); ierr != nil {
			c.pm.Unpin(id, false)
			return ierr
		}
	}
	c.pm.Unpin(id, true)
	return nil
}

// cloneColumnSlice deep-copies one table's column entries so a failed
// mutation can be rolled back without re-reading from disk.
func cloneColumnSlice(cols []*ColumnEntry) []*ColumnEntry {
	out := make([]*ColumnEntry, len(cols))
	for i, c := range cols {
		cp := *c
		out[i] = &cp
	}
	return out
}

// GetTable returns a table entry by name.
func (c *Catalog) GetTable(name string) (*TableEntry, error) {
	id, ok := c.tablesByName[name]
	if !ok {
		return nil, dberrors.Newf(dberrors.TableNotFound, "table %q does not exist", name).WithDetail(name)
	}
	return c.tables[id], nil
}

// GetTableByID returns a table entry by its id.
func (c *Catalog) GetTableByID(tableID uint32) (*TableEntry, error) {
	e, ok := c.tables[tableID]
	if !ok {
		return nil, dberrors.Newf(dberrors.TableNotFound, "table id %d does not exist", tableID)
	}
	return e, nil
}

// ListTables returns every table entry, in no particular order.
func (c *Catalog) ListTables() []*TableEntry {
	out := make([]*TableEntry, 0, len(c.tables))
	for _, e := range c.tables {
		out = append(out, e)
	}
	return out
}

// GetColumns returns the active (non-dropped) columns of tableID, sorted
// by ordinal position.
func (c *Catalog) GetColumns(tableID uint32) []*ColumnEntry {
	return c.getColumns(tableID, false)
}

// GetAllColumns returns every column of tableID, including dropped ones,
// sorted with active columns first.
func (c *Catalog) GetAllColumns(tableID uint32) []*ColumnEntry {
	return c.getColumns(tableID, true)
}

func (c *Catalog) getColumns(tableID uint32, includeDropped bool) []*ColumnEntry {
	var out []*ColumnEntry
	for _, col := range c.columns[tableID] {
		if !includeDropped && col.IsDropped {
			continue
		}
		out = append(out, col)
	}
	return out
}

// GetColumn returns a single active column by name.
func (c *Catalog) GetColumn(tableID uint32, name string) (*ColumnEntry, error) {
	for _, col := range c.columns[tableID] {
		if !col.IsDropped && col.Name == name {
			return col, nil
		}
	}
	return nil, dberrors.Newf(dberrors.ColumnNotFound, "column %q does not exist", name).WithDetail(name)
}

// GetIndexByName returns an index entry by name.
func (c *Catalog) GetIndexByName(name string) (*IndexEntry, error) {
	id, ok := c.indexesByName[name]
	if !ok {
		return nil, dberrors.Newf(dberrors.IndexNotFound, "index %q does not exist", name).WithDetail(name)
	}
	return c.indexes[id], nil
}

// ListIndexesForTable returns every index entry over tableID.
func (c *Catalog) ListIndexesForTable(tableID uint32) []*IndexEntry {
	var out []*IndexEntry
	for _, e := range c.indexes {
		if e.TableID == tableID {
			out = append(out, e)
		}
	}
	return out
}
