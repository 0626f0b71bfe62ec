package page

import (
	"os"

	"kizuna/pkg/dberrors"
)

// FileManager owns the single backing OS file and performs fixed-size
// paged I/O over it. It is the only component that touches the raw file
// handle; every other component goes through a FileManager or, more
// usually, the PageManager sitting above one. Per spec.md §5's
// single-threaded, synchronous scheduling model, one statement runs to
// completion before the next begins, so no synchronization is needed
// here.
type FileManager struct {
	file      *os.File
	path      string
	pageCount PageID
}

// OpenFile opens path, creating it (as an empty file) when missing and
// createIfMissing is true.
func OpenFile(path string, createIfMissing bool) (*FileManager, error) {
	flags := os.O_RDWR
	if createIfMissing {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, dberrors.Wrap(err, dberrors.IOError, "opening database file")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, dberrors.Wrap(err, dberrors.IOError, "stat database file")
	}
	count := PageID(info.Size() / PageSize)
	return &FileManager{file: f, path: path, pageCount: count}, nil
}

// PageCount returns the number of pages currently allocated in the file.
func (fm *FileManager) PageCount() PageID {
	return fm.pageCount
}

// SizeBytes returns the file's size on disk.
func (fm *FileManager) SizeBytes() int64 {
	return int64(fm.pageCount) * PageSize
}

func pageOffset(id PageID) int64 {
	return int64(id-1) * PageSize
}

// ReadPage reads the PageSize bytes for page id. Reading page 0 (the
// InvalidPageID) always fails.
func (fm *FileManager) ReadPage(id PageID) ([]byte, error) {
	if id == InvalidPageID {
		return nil, dberrors.New(dberrors.IOError, "cannot read page 0")
	}
	if id > fm.pageCount {
		return nil, dberrors.Newf(dberrors.IOError, "page %d out of range (count=%d)", id, fm.pageCount)
	}
	buf := make([]byte, PageSize)
	if _, err := fm.file.ReadAt(buf, pageOffset(id)); err != nil {
		return nil, dberrors.Wrap(err, dberrors.IOError, "reading page")
	}
	return buf, nil
}

// WritePage writes data (must be PageSize bytes) to page id.
func (fm *FileManager) WritePage(id PageID, data []byte) error {
	if id == InvalidPageID {
		return dberrors.New(dberrors.IOError, "cannot write page 0")
	}
	if len(data) != PageSize {
		return dberrors.Newf(dberrors.InvalidRecordFormat, "page write must be %d bytes, got %d", PageSize, len(data))
	}
	if _, err := fm.file.WriteAt(data, pageOffset(id)); err != nil {
		return dberrors.Wrap(err, dberrors.IOError, "writing page")
	}
	return nil
}

// AllocatePage appends a new zero-initialized page and returns its id.
func (fm *FileManager) AllocatePage() (PageID, error) {
	newID := fm.pageCount + 1
	zero := make([]byte, PageSize)
	if _, err := fm.file.WriteAt(zero, pageOffset(newID)); err != nil {
		return 0, dberrors.Wrap(err, dberrors.IOError, "allocating page")
	}
	fm.pageCount = newID
	return newID, nil
}

// Close closes the underlying file handle.
func (fm *FileManager) Close() error {
	if err := fm.file.Sync(); err != nil {
		return dberrors.Wrap(err, dberrors.IOError, "syncing database file")
	}
	return fm.file.Close()
}
