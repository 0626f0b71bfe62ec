// Package engine wires the storage layer (catalog, page manager, index
// manager) into the shared Context that the DDL and DML executors operate
// against, per spec.md §4.10-4.11.
package engine

import (
	"kizuna/pkg/catalog"
	"kizuna/pkg/storage/heap"
	"kizuna/pkg/storage/index"
	"kizuna/pkg/storage/page"
)

// Context bundles one open database's live handles. A Session (pkg/database)
// owns exactly one Context for its lifetime.
type Context struct {
	Catalog *catalog.Catalog
	PM      *page.PageManager
	Indexes *index.Manager
}

// OpenTableHeap attaches a TableHeap to table's current root page.
func (c *Context) OpenTableHeap(table *catalog.TableEntry) (*heap.TableHeap, error) {
	return heap.Open(c.PM, table.RootPageID)
}

// OpenIndexHandle opens (creating the in-memory Handle if not already open)
// the B+ tree backing entry.
func (c *Context) OpenIndexHandle(entry *catalog.IndexEntry) (*index.Handle, error) {
	return c.Indexes.OpenIndex(entry.IndexID, entry.IsUnique)
}
