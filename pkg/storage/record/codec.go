// Package record implements the on-disk row encoding: a fixed-arity typed
// field vector with a NULL bitmap, per spec.md §4.3. TableHeap, the
// catalog, and the B+ tree key encoder all share this codec.
package record

import (
	"encoding/binary"
	"math"

	"kizuna/pkg/dberrors"
	"kizuna/pkg/types"
)

// Encode serializes fields as:
//
//	[field_count:u16][null_bitmap: ceil(n/8) bytes]
//	[per field: type_tag:u8, length:u16, payload: length bytes]
func Encode(fields []types.Value) ([]byte, error) {
	n := len(fields)
	bitmapLen := (n + 7) / 8
	bitmap := make([]byte, bitmapLen)

	type encoded struct {
		tag     types.DataType
		payload []byte
	}
	parts := make([]encoded, n)

	for i, f := range fields {
		if f.IsNull {
			bitmap[i/8] |= 1 << uint(i%8)
			parts[i] = encoded{tag: f.Type, payload: nil}
			continue
		}
		payload, err := encodeField(f)
		if err != nil {
			return nil, err
		}
		if len(payload) > math.MaxUint16 {
			return nil, dberrors.Newf(dberrors.RecordTooLarge, "field %d payload too large (%d bytes)", i, len(payload))
		}
		parts[i] = encoded{tag: f.Type, payload: payload}
	}

	total := 2 + bitmapLen
	for _, p := range parts {
		total += 1 + 2 + len(p.payload)
	}

	buf := make([]byte, total)
	binary.LittleEndian.PutUint16(buf[0:], uint16(n))
	copy(buf[2:2+bitmapLen], bitmap)

	off := 2 + bitmapLen
	for _, p := range parts {
		buf[off] = byte(p.tag)
		off++
		binary.LittleEndian.PutUint16(buf[off:], uint16(len(p.payload)))
		off += 2
		copy(buf[off:off+len(p.payload)], p.payload)
		off += len(p.payload)
	}
	return buf, nil
}

// Decode deserializes data against an expected per-field schema. It fails
// with INVALID_RECORD_FORMAT if field_count mismatches the schema, a
// length exceeds the remaining payload, or a type tag is unknown.
func Decode(data []byte, schema []types.DataType) ([]types.Value, error) {
	if len(data) < 2 {
		return nil, dberrors.New(dberrors.InvalidRecordFormat, "record too short for field count")
	}
	n := int(binary.LittleEndian.Uint16(data[0:]))
	if n != len(schema) {
		return nil, dberrors.Newf(dberrors.InvalidRecordFormat, "field count %d does not match schema of %d columns", n, len(schema))
	}

	bitmapLen := (n + 7) / 8
	if len(data) < 2+bitmapLen {
		return nil, dberrors.New(dberrors.InvalidRecordFormat, "record too short for null bitmap")
	}
	bitmap := data[2 : 2+bitmapLen]

	values := make([]types.Value, n)
	off := 2 + bitmapLen
	for i := 0; i < n; i++ {
		if off+3 > len(data) {
			return nil, dberrors.New(dberrors.InvalidRecordFormat, "record truncated before field header")
		}
		tag := types.DataType(data[off])
		off++
		length := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if off+length > len(data) {
			return nil, dberrors.New(dberrors.InvalidRecordFormat, "field payload exceeds record bounds")
		}
		payload := data[off : off+length]
		off += length

		isNull := bitmap[i/8]&(1<<uint(i%8)) != 0
		if isNull {
			values[i] = types.Null(tag)
			continue
		}
		v, err := decodeField(tag, payload, schema[i])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func encodeField(f types.Value) ([]byte, error) {
	switch f.Type {
	case types.Boolean:
		if f.Bool() {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case types.Integer:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(f.Int32()))
		return b, nil
	case types.BigInt, types.Date, types.Timestamp:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(f.Int64()))
		return b, nil
	case types.Float:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(f.Float32()))
		return b, nil
	case types.Double:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(f.Float64()))
		return b, nil
	case types.Varchar, types.Text:
		return []byte(f.Str()), nil
	default:
		return nil, dberrors.Newf(dberrors.InvalidRecordFormat, "unknown field type %s", f.Type)
	}
}

func decodeField(tag types.DataType, payload []byte, expected types.DataType) (types.Value, error) {
	if tag != expected {
		return types.Value{}, dberrors.Newf(dberrors.InvalidRecordFormat, "field type %s does not match schema type %s", tag, expected)
	}
	switch tag {
	case types.Boolean:
		if len(payload) != 1 {
			return types.Value{}, dberrors.New(dberrors.InvalidRecordFormat, "invalid BOOLEAN payload length")
		}
		return types.NewBool(payload[0] != 0), nil
	case types.Integer:
		if len(payload) != 4 {
			return types.Value{}, dberrors.New(dberrors.InvalidRecordFormat, "invalid INTEGER payload length")
		}
		return types.NewInt(int32(binary.LittleEndian.Uint32(payload))), nil
	case types.BigInt:
		if len(payload) != 8 {
			return types.Value{}, dberrors.New(dberrors.InvalidRecordFormat, "invalid BIGINT payload length")
		}
		return types.NewBigInt(int64(binary.LittleEndian.Uint64(payload))), nil
	case types.Date:
		if len(payload) != 8 {
			return types.Value{}, dberrors.New(dberrors.InvalidRecordFormat, "invalid DATE payload length")
		}
		return types.NewDateDays(int64(binary.LittleEndian.Uint64(payload))), nil
	case types.Timestamp:
		if len(payload) != 8 {
			return types.Value{}, dberrors.New(dberrors.InvalidRecordFormat, "invalid TIMESTAMP payload length")
		}
		return types.NewTimestamp(int64(binary.LittleEndian.Uint64(payload))), nil
	case types.Float:
		if len(payload) != 4 {
			return types.Value{}, dberrors.New(dberrors.InvalidRecordFormat, "invalid FLOAT payload length")
		}
		return types.NewFloat(math.Float32frombits(binary.LittleEndian.Uint32(payload))), nil
	case types.Double:
		if len(payload) != 8 {
			return types.Value{}, dberrors.New(dberrors.InvalidRecordFormat, "invalid DOUBLE payload length")
		}
		return types.NewDouble(math.Float64frombits(binary.LittleEndian.Uint64(payload))), nil
	case types.Varchar, types.Text:
		return types.NewString(tag, string(payload)), nil
	default:
		return types.Value{}, dberrors.Newf(dberrors.InvalidRecordFormat, "unknown field type tag %d", tag)
	}
}
