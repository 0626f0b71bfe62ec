package catalog

import (
	"kizuna/pkg/config"
	"kizuna/pkg/dberrors"
	"kizuna/pkg/storage/page"
	"kizuna/pkg/types"
)

// ColumnDef is the input shape for a column definition, as produced by the
// DDL parser, before a column_id or ordinal_position is assigned.
type ColumnDef struct {
	Name       string
	Type       types.DataType
	NotNull    bool
	PrimaryKey bool
	Unique     bool
	HasDefault bool
	Default    types.Value
}

// CreateTable registers a brand new table with its columns. rootPageID is
// the heap root page the caller (DDL executor) has already allocated. On
// any failure the in-memory cache is left exactly as it was before the
// call.
func (c *Catalog) CreateTable(name string, columns []ColumnDef, rootPageID page.PageID, createSQL string) (*TableEntry, error) {
	if _, exists := c.tablesByName[name]; exists {
		return nil, dberrors.Newf(dberrors.TableExists, "table %q already exists", name).WithDetail(name)
	}

	tableID, err := c.nextTableID()
	if err != nil {
		return nil, err
	}

	entry := &TableEntry{
		TableID:       tableID,
		Name:          name,
		RootPageID:    rootPageID,
		SchemaVersion: 1,
		NextColumnID:  uint32(len(columns)) + 1,
		CreateSQL:     createSQL,
	}

	cols := make([]*ColumnEntry, len(columns))
	for i, def := range columns {
		cols[i] = &ColumnEntry{
			TableID:         tableID,
			ColumnID:        uint32(i) + 1,
			Name:            def.Name,
			Type:            def.Type,
			OrdinalPosition: uint32(i),
			NotNull:         def.NotNull,
			PrimaryKey:      def.PrimaryKey,
			Unique:          def.Unique,
			HasDefault:      def.HasDefault,
			Default:         def.Default,
		}
	}

	c.tables[tableID] = entry
	c.tablesByName[name] = tableID
	c.columns[tableID] = cols

	if err := c.persistTables(); err != nil {
		c.rollbackCreateTable(tableID, name)
		return nil, err
	}
	if err := c.persistColumns(); err != nil {
		c.rollbackCreateTable(tableID, name)
		return nil, err
	}
	return entry, nil
}

func (c *Catalog) rollbackCreateTable(tableID uint32, name string) {
	delete(c.tables, tableID)
	delete(c.tablesByName, name)
	delete(c.columns, tableID)
}

// DropTable removes name's table row, every one of its columns, and every
// index over it from the catalog. The caller is responsible for freeing
// the table's heap pages and its index files separately.
func (c *Catalog) DropTable(name string) ([]*IndexEntry, error) {
	tableID, ok := c.tablesByName[name]
	if !ok {
		return nil, dberrors.Newf(dberrors.TableNotFound, "table %q does not exist", name).WithDetail(name)
	}

	savedTable := c.tables[tableID]
	savedCols := c.columns[tableID]
	var savedIndexes []*IndexEntry
	for _, e := range c.indexes {
		if e.TableID == tableID {
			savedIndexes = append(savedIndexes, e)
		}
	}

	delete(c.tables, tableID)
	delete(c.tablesByName, name)
	delete(c.columns, tableID)
	for _, e := range savedIndexes {
		delete(c.indexes, e.IndexID)
		delete(c.indexesByName, e.Name)
	}

	rollback := func() {
		c.tables[tableID] = savedTable
		c.tablesByName[name] = tableID
		c.columns[tableID] = savedCols
		for _, e := range savedIndexes {
			c.indexes[e.IndexID] = e
			c.indexesByName[e.Name] = e.IndexID
		}
	}

	if err := c.persistTables(); err != nil {
		rollback()
		return nil, err
	}
	if err := c.persistColumns(); err != nil {
		rollback()
		return nil, err
	}
	if len(savedIndexes) > 0 {
		if err := c.persistIndexes(); err != nil {
			rollback()
			return nil, err
		}
	}
	return savedIndexes, nil
}

// AddColumn appends (or inserts at position) a new column to tableID,
// bumping schema_version and next_column_id.
func (c *Catalog) AddColumn(tableID uint32, def ColumnDef, position *int) (*ColumnEntry, error) {
	table, ok := c.tables[tableID]
	if !ok {
		return nil, dberrors.Newf(dberrors.TableNotFound, "table id %d does not exist", tableID)
	}
	if def.PrimaryKey {
		return nil, dberrors.New(dberrors.InvalidConstraint, "cannot add a PRIMARY KEY column via ALTER TABLE")
	}

	active := activeColumns(c.columns[tableID])
	for _, col := range active {
		if col.Name == def.Name {
			return nil, dberrors.Newf(dberrors.DuplicateColumn, "column %q already exists", def.Name).WithDetail(def.Name)
		}
	}
	if len(active) >= config.MaxColumnsPerTable {
		return nil, dberrors.Newf(dberrors.InvalidConstraint, "table already has the maximum of %d columns", config.MaxColumnsPerTable)
	}

	pos := len(active)
	if position != nil && *position >= 0 && *position <= len(active) {
		pos = *position
	}

	savedCols := cloneColumnSlice(c.columns[tableID])
	savedTable := *table

	newCol := &ColumnEntry{
		TableID:         tableID,
		ColumnID:        table.NextColumnID,
		Name:            def.Name,
		Type:            def.Type,
		OrdinalPosition: uint32(pos),
		NotNull:         def.NotNull,
		Unique:          def.Unique,
		HasDefault:      def.HasDefault,
		Default:         def.Default,
	}

	for _, col := range c.columns[tableID] {
		if !col.IsDropped && col.OrdinalPosition >= uint32(pos) {
			col.OrdinalPosition++
		}
	}
	c.columns[tableID] = append(c.columns[tableID], newCol)
	sortColumns(c.columns[tableID])

	table.NextColumnID++
	table.SchemaVersion++

	if err := c.persistColumns(); err != nil {
		c.columns[tableID] = savedCols
		*table = savedTable
		return nil, err
	}
	if err := c.persistTables(); err != nil {
		c.columns[tableID] = savedCols
		*table = savedTable
		return nil, err
	}
	return newCol, nil
}

// DropColumn marks name inactive on tableID, renumbering the remaining
// active columns densely from 0 and bumping schema_version. Dropping the
// last active column or a primary key column is rejected.
func (c *Catalog) DropColumn(tableID uint32, name string) error {
	table, ok := c.tables[tableID]
	if !ok {
		return dberrors.Newf(dberrors.TableNotFound, "table id %d does not exist", tableID)
	}

	active := activeColumns(c.columns[tableID])
	if len(active) <= 1 {
		return dberrors.New(dberrors.InvalidConstraint, "cannot drop the last remaining column")
	}

	var target *ColumnEntry
	for _, col := range active {
		if col.Name == name {
			target = col
			break
		}
	}
	if target == nil {
		return dberrors.Newf(dberrors.ColumnNotFound, "column %q does not exist", name).WithDetail(name)
	}
	if target.PrimaryKey {
		return dberrors.New(dberrors.InvalidConstraint, "cannot drop a primary key column")
	}

	savedCols := cloneColumnSlice(c.columns[tableID])
	savedTable := *table

	target.IsDropped = true
	target.OrdinalPosition = DroppedOrdinal

	remaining := activeColumns(c.columns[tableID])
	sortColumns(remaining)
	for i, col := range remaining {
		col.OrdinalPosition = uint32(i)
	}
	sortColumns(c.columns[tableID])
	table.SchemaVersion++

	if err := c.persistColumns(); err != nil {
		c.columns[tableID] = savedCols
		*table = savedTable
		return err
	}
	if err := c.persistTables(); err != nil {
		c.columns[tableID] = savedCols
		*table = savedTable
		return err
	}
	return nil
}

func activeColumns(cols []*ColumnEntry) []*ColumnEntry {
	var out []*ColumnEntry
	for _, c := range cols {
		if !c.IsDropped {
			out = append(out, c)
		}
	}
	return out
}

// CreateIndex registers a new index entry, assigning its index_id.
func (c *Catalog) CreateIndex(name string, tableID uint32, columnIDs []uint32, isUnique bool) (*IndexEntry, error) {
	if name == "" {
		return nil, dberrors.New(dberrors.InvalidArgument, "index name must not be empty")
	}
	if len(columnIDs) == 0 {
		return nil, dberrors.New(dberrors.InvalidArgument, "index must cover at least one column")
	}
	if _, exists := c.indexesByName[name]; exists {
		return nil, dberrors.Newf(dberrors.InvalidArgument, "index %q already exists", name).WithDetail(name)
	}

	indexID, err := c.nextIndexID()
	if err != nil {
		return nil, err
	}
	entry := &IndexEntry{
		IndexID:    indexID,
		Name:       name,
		TableID:    tableID,
		ColumnIDs:  columnIDs,
		IsUnique:   isUnique,
		RootPageID: page.InvalidPageID,
	}
	c.indexes[indexID] = entry
	c.indexesByName[name] = indexID

	if err := c.persistIndexes(); err != nil {
		delete(c.indexes, indexID)
		delete(c.indexesByName, name)
		return nil, err
	}
	return entry, nil
}

// DropIndex removes name's index row. It is idempotent: dropping a name
// that doesn't exist returns (false, nil).
func (c *Catalog) DropIndex(name string) (bool, error) {
	id, ok := c.indexesByName[name]
	if !ok {
		return false, nil
	}
	saved := c.indexes[id]
	delete(c.indexes, id)
	delete(c.indexesByName, name)

	if err := c.persistIndexes(); err != nil {
		c.indexes[id] = saved
		c.indexesByName[name] = id
		return false, err
	}
	return true, nil
}

// SetIndexRoot updates indexID's recorded B+ tree root page.
func (c *Catalog) SetIndexRoot(indexID uint32, root page.PageID) error {
	e, ok := c.indexes[indexID]
	if !ok {
		return dberrors.Newf(dberrors.IndexNotFound, "index id %d does not exist", indexID)
	}
	old := e.RootPageID
	e.RootPageID = root
	if err := c.persistIndexes(); err != nil {
		e.RootPageID = old
		return err
	}
	return nil
}

// SetTableRoot updates tableID's recorded heap root page, used after an
// ALTER TABLE rewrite migrates a table to a fresh heap.
func (c *Catalog) SetTableRoot(tableID uint32, root page.PageID) error {
	e, ok := c.tables[tableID]
	if !ok {
		return dberrors.Newf(dberrors.TableNotFound, "table id %d does not exist", tableID)
	}
	old := e.RootPageID
	e.RootPageID = root
	if err := c.persistTables(); err != nil {
		e.RootPageID = old
		return err
	}
	return nil
}
