// Package indexkey turns a tuple of typed Values into the order-preserving
// byte key a B+ tree index stores: bytes.Compare over the encoded key must
// agree with types.Compare over the original values. Numeric types use
// offset-binary big-endian encoding so negative values sort before
// positive ones; VARCHAR/TEXT fields are escaped and terminated so a
// composite key stays unambiguous when a variable-length field isn't last.
package indexkey

import (
	"encoding/binary"
	"math"

	"kizuna/pkg/dberrors"
	"kizuna/pkg/types"
)

// Encode concatenates the order-preserving encoding of every value, in
// order, into one B+ tree key. Callers must not pass a NULL value; NULL
// indexed columns are excluded from the index entirely (see
// pkg/engine/tableio.IndexKey).
func Encode(values []types.Value) ([]byte, error) {
	var buf []byte
	for _, v := range values {
		if v.IsNull {
			return nil, dberrors.New(dberrors.InternalError, "indexkey.Encode called with a NULL value")
		}
		enc, err := encodeOne(v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}
	return buf, nil
}

func encodeOne(v types.Value) ([]byte, error) {
	switch v.Type {
	case types.Boolean:
		if v.Bool() {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case types.Integer:
		return encodeInt32(v.Int32()), nil
	case types.BigInt, types.Date, types.Timestamp:
		return encodeInt64(v.Int64()), nil
	case types.Float:
		return encodeFloat64(float64(v.Float32())), nil
	case types.Double:
		return encodeFloat64(v.Float64()), nil
	case types.Varchar, types.Text:
		return encodeString(v.Str()), nil
	default:
		return nil, dberrors.Newf(dberrors.UnsupportedType, "type %s cannot be used as an index key", v.Type)
	}
}

func encodeInt32(v int32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v)^0x80000000)
	return buf
}

func encodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v)^0x8000000000000000)
	return buf
}

// encodeFloat64 maps IEEE-754 bits so unsigned big-endian comparison
// matches float ordering: flip the sign bit for non-negative values,
// invert every bit for negative ones.
func encodeFloat64(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, bits)
	return buf
}

// encodeString escapes 0x00 as 0x00 0x01 and terminates with 0x00 0x00, so
// a string field can be safely followed by more key material without
// ambiguity, and shorter strings sort before longer ones that extend them.
func encodeString(s string) []byte {
	buf := make([]byte, 0, len(s)+2)
	for i := 0; i < len(s); i++ {
		if s[i] == 0x00 {
			buf = append(buf, 0x00, 0x01)
		} else {
			buf = append(buf, s[i])
		}
	}
	buf = append(buf, 0x00, 0x00)
	return buf
}
