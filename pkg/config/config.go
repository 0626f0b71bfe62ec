// Package config carries the compile-time constants and the handful of
// runtime knobs the engine needs. Most values here are fixed by the on-disk
// formats in the storage packages and must not change without a format
// migration; IndexDir is the one value callers are expected to override.
package config

const (
	// PageSize is the fixed size in bytes of every page in a database file
	// or index file.
	PageSize = 4096

	// InvalidPageID marks the absence of a page reference. Page id 1 is the
	// metadata page; data pages start at id 2.
	InvalidPageID uint32 = 0

	// MetadataPageID is the reserved page holding catalog roots and the
	// global id counters.
	MetadataPageID uint32 = 1

	// FirstDataPageID is the first id `FileManager.Allocate` ever hands out
	// for table or index data.
	FirstDataPageID uint32 = 2

	// DefaultBufferPoolFrames is the default frame count for a PageManager
	// when the caller does not request a specific capacity.
	DefaultBufferPoolFrames = 64

	// MaxColumnsPerTable bounds CREATE TABLE / ADD COLUMN.
	MaxColumnsPerTable = 256

	// MaxKeyLength bounds an individual B+ tree key's serialized byte length.
	MaxKeyLength = 1024

	// BTreeMaxKeys bounds key_count in a single B+ tree node before a split
	// is forced, independent of whether the page still has physical room.
	BTreeMaxKeys = 340

	// DefaultIndexDir is the directory index files are created under when
	// the caller does not specify one explicitly.
	DefaultIndexDir = "./kizuna_indexes"

	// FileExtension is the suffix for the single backing database file.
	FileExtension = ".kz"
)
