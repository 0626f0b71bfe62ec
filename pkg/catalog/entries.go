package catalog

import (
	"encoding/binary"
	"math"

	"kizuna/pkg/dberrors"
	"kizuna/pkg/storage/page"
	"kizuna/pkg/storage/record"
	"kizuna/pkg/types"
)

// DroppedOrdinal is the sentinel ordinal_position a dropped column is
// given once it leaves the active, densely-numbered column list.
const DroppedOrdinal = math.MaxUint32

// TableEntry is one row of the tables relation.
type TableEntry struct {
	TableID       uint32
	Name          string
	RootPageID    page.PageID
	SchemaVersion uint32
	NextColumnID  uint32
	CreateSQL     string
}

// ColumnEntry is one row of the columns relation. Dropped columns are
// never physically removed: IsDropped is set and OrdinalPosition becomes
// DroppedOrdinal, which sorts them after every active column.
type ColumnEntry struct {
	TableID         uint32
	ColumnID        uint32
	Name            string
	Type            types.DataType
	OrdinalPosition uint32
	IsDropped       bool
	NotNull         bool
	PrimaryKey      bool
	Unique          bool
	HasDefault      bool
	Default         types.Value
}

// IndexEntry is one row of the indexes relation.
type IndexEntry struct {
	IndexID    uint32
	Name       string
	TableID    uint32
	ColumnIDs  []uint32
	IsUnique   bool
	RootPageID page.PageID
}

func putString(buf []byte, s string) []byte {
	b := make([]byte, 2+len(s))
	binary.LittleEndian.PutUint16(b, uint16(len(s)))
	copy(b[2:], s)
	return append(buf, b...)
}

func readString(data []byte, off int) (string, int, error) {
	if off+2 > len(data) {
		return "", 0, dberrors.New(dberrors.InvalidRecordFormat, "catalog entry truncated before string length")
	}
	n := int(binary.LittleEndian.Uint16(data[off:]))
	off += 2
	if off+n > len(data) {
		return "", 0, dberrors.New(dberrors.InvalidRecordFormat, "catalog entry truncated string payload")
	}
	return string(data[off : off+n]), off + n, nil
}

func encodeTableEntry(e *TableEntry) []byte {
	buf := make([]byte, 0, 32+len(e.Name)+len(e.CreateSQL))
	tmp := make([]byte, 16)
	binary.LittleEndian.PutUint32(tmp[0:], e.TableID)
	binary.LittleEndian.PutUint32(tmp[4:], e.RootPageID)
	binary.LittleEndian.PutUint32(tmp[8:], e.SchemaVersion)
	binary.LittleEndian.PutUint32(tmp[12:], e.NextColumnID)
	buf = append(buf, tmp...)
	buf = putString(buf, e.Name)
	buf = putString(buf, e.CreateSQL)
	return buf
}

func decodeTableEntry(data []byte) (*TableEntry, error) {
	if len(data) < 16 {
		return nil, dberrors.New(dberrors.InvalidRecordFormat, "table catalog entry too short")
	}
	e := &TableEntry{
		TableID:       binary.LittleEndian.Uint32(data[0:]),
		RootPageID:    binary.LittleEndian.Uint32(data[4:]),
		SchemaVersion: binary.LittleEndian.Uint32(data[8:]),
		NextColumnID:  binary.LittleEndian.Uint32(data[12:]),
	}
	off := 16
	name, off, err := readString(data, off)
	if err != nil {
		return nil, err
	}
	e.Name = name
	sql, _, err := readString(data, off)
	if err != nil {
		return nil, err
	}
	e.CreateSQL = sql
	return e, nil
}

const (
	colFlagDropped = 1 << 0
	colFlagNotNull = 1 << 1
	colFlagPrimary = 1 << 2
	colFlagUnique  = 1 << 3
	colFlagHasDef  = 1 << 4
)

func encodeColumnEntry(e *ColumnEntry) ([]byte, error) {
	var flags byte
	if e.IsDropped {
		flags |= colFlagDropped
	}
	if e.NotNull {
		flags |= colFlagNotNull
	}
	if e.PrimaryKey {
		flags |= colFlagPrimary
	}
	if e.Unique {
		flags |= colFlagUnique
	}
	if e.HasDefault {
		flags |= colFlagHasDef
	}

	buf := make([]byte, 0, 32+len(e.Name))
	tmp := make([]byte, 14)
	binary.LittleEndian.PutUint32(tmp[0:], e.TableID)
	binary.LittleEndian.PutUint32(tmp[4:], e.ColumnID)
	binary.LittleEndian.PutUint32(tmp[8:], e.OrdinalPosition)
	tmp[12] = byte(e.Type)
	tmp[13] = flags
	buf = append(buf, tmp...)
	buf = putString(buf, e.Name)

	if e.HasDefault {
		enc, err := record.Encode([]types.Value{e.Default})
		if err != nil {
			return nil, err
		}
		lenBuf := make([]byte, 2)
		binary.LittleEndian.PutUint16(lenBuf, uint16(len(enc)))
		buf = append(buf, lenBuf...)
		buf = append(buf, enc...)
	}
	return buf, nil
}

func decodeColumnEntry(data []byte) (*ColumnEntry, error) {
	if len(data) < 14 {
		return nil, dberrors.New(dberrors.InvalidRecordFormat, "column catalog entry too short")
	}
	flags := data[13]
	e := &ColumnEntry{
		TableID:         binary.LittleEndian.Uint32(data[0:]),
		ColumnID:        binary.LittleEndian.Uint32(data[4:]),
		OrdinalPosition: binary.LittleEndian.Uint32(data[8:]),
		Type:            types.DataType(data[12]),
		IsDropped:       flags&colFlagDropped != 0,
		NotNull:         flags&colFlagNotNull != 0,
		PrimaryKey:      flags&colFlagPrimary != 0,
		Unique:          flags&colFlagUnique != 0,
		HasDefault:      flags&colFlagHasDef != 0,
	}
	off := 14
	name, off, err := readString(data, off)
	if err != nil {
		return nil, err
	}
	e.Name = name

	if e.HasDefault {
		if off+2 > len(data) {
			return nil, dberrors.New(dberrors.InvalidRecordFormat, "column default truncated")
		}
		n := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if off+n > len(data) {
			return nil, dberrors.New(dberrors.InvalidRecordFormat, "column default payload truncated")
		}
		vals, err := record.Decode(data[off:off+n], []types.DataType{e.Type})
		if err != nil {
			return nil, err
		}
		e.Default = vals[0]
	}
	return e, nil
}

func encodeIndexEntry(e *IndexEntry) []byte {
	buf := make([]byte, 0, 24+len(e.Name)+4*len(e.ColumnIDs))
	tmp := make([]byte, 13)
	binary.LittleEndian.PutUint32(tmp[0:], e.IndexID)
	binary.LittleEndian.PutUint32(tmp[4:], e.TableID)
	binary.LittleEndian.PutUint32(tmp[8:], e.RootPageID)
	if e.IsUnique {
		tmp[12] = 1
	}
	buf = append(buf, tmp...)
	buf = putString(buf, e.Name)

	colBuf := make([]byte, 2+4*len(e.ColumnIDs))
	binary.LittleEndian.PutUint16(colBuf, uint16(len(e.ColumnIDs)))
	for i, id := range e.ColumnIDs {
		binary.LittleEndian.PutUint32(colBuf[2+4*i:], id)
	}
	buf = append(buf, colBuf...)
	return buf
}

func decodeIndexEntry(data []byte) (*IndexEntry, error) {
	if len(data) < 13 {
		return nil, dberrors.New(dberrors.InvalidRecordFormat, "index catalog entry too short")
	}
	e := &IndexEntry{
		IndexID:    binary.LittleEndian.Uint32(data[0:]),
		TableID:    binary.LittleEndian.Uint32(data[4:]),
		RootPageID: binary.LittleEndian.Uint32(data[8:]),
		IsUnique:   data[12] != 0,
	}
	off := 13
	name, off, err := readString(data, off)
	if err != nil {
		return nil, err
	}
	e.Name = name

	if off+2 > len(data) {
		return nil, dberrors.New(dberrors.InvalidRecordFormat, "index column list truncated")
	}
	n := int(binary.LittleEndian.Uint16(data[off:]))
	off += 2
	e.ColumnIDs = make([]uint32, n)
	for i := 0; i < n; i++ {
		if off+4 > len(data) {
			return nil, dberrors.New(dberrors.InvalidRecordFormat, "index column list truncated")
		}
		e.ColumnIDs[i] = binary.LittleEndian.Uint32(data[off:])
		off += 4
	}
	return e, nil
}
