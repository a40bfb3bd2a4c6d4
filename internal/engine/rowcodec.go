package engine

import (
	"errors"
	"math"

	"github.com/tidesql/tidesql/internal/alias/bx"
	"github.com/tidesql/tidesql/internal/catalog"
	"github.com/tidesql/tidesql/internal/sql/types"
)

var (
	ErrSchemaMismatch = errors.New("rowcodec: schema/values mismatch")
	ErrBadBuffer      = errors.New("rowcodec: buffer underflow/overflow")
	ErrVarTooLong     = errors.New("rowcodec: variable length exceeds limit")
)

// MaxVarLen caps an encoded string field.
const MaxVarLen = 1 << 24

// EncodeRow packs a positional row against its column definitions.
// Format:
// [nullmap: ceil(N/8) bytes, bit=1 => NULL] | [field0 data?] [field1 data?] ...
// Fixed-width fields: bool 1 byte, int/float 8 bytes (LE).
// Strings: u32 length (LE) + data.
func EncodeRow(cols []catalog.Column, row types.Row) ([]byte, error) {
	nc := len(cols)
	if len(row) != nc {
		return nil, ErrSchemaMismatch
	}

	nbBytes := (nc + 7) / 8
	out := make([]byte, nbBytes) // reserve nullmap first

	for i, col := range cols {
		v := row[i]
		if v.IsNull() {
			out[i/8] |= 1 << (uint(i) & 7) // bit=1 => NULL
			continue
		}

		switch col.Type {
		case types.Boolean:
			if v.Kind != types.KindBoolean {
				return nil, ErrSchemaMismatch
			}
			if v.Bool {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}

		case types.Integer:
			if v.Kind != types.KindInteger {
				return nil, ErrSchemaMismatch
			}
			var b [8]byte
			bx.PutU64(b[:], uint64(v.Int))
			out = append(out, b[:]...)

		case types.Float:
			if v.Kind != types.KindFloat {
				return nil, ErrSchemaMismatch
			}
			var b [8]byte
			bx.PutU64(b[:], math.Float64bits(v.Float))
			out = append(out, b[:]...)

		case types.String:
			if v.Kind != types.KindString {
				return nil, ErrSchemaMismatch
			}
			bs := []byte(v.Str)
			if len(bs) > MaxVarLen {
				return nil, ErrVarTooLong
			}
			var l [4]byte
			bx.PutU32(l[:], uint32(len(bs)))
			out = append(out, l[:]...)
			out = append(out, bs...)

		default:
			return nil, ErrSchemaMismatch
		}
	}
	return out, nil
}

// DecodeRow unpacks a buffer produced by EncodeRow.
func DecodeRow(cols []catalog.Column, buf []byte) (types.Row, error) {
	nc := len(cols)
	nbBytes := (nc + 7) / 8
	if len(buf) < nbBytes {
		return nil, ErrBadBuffer
	}
	nullmap := buf[:nbBytes]
	i := nbBytes

	out := make(types.Row, nc)
	for colIdx, col := range cols {
		isNull := (nullmap[colIdx/8]>>(uint(colIdx)&7))&1 == 1
		if isNull {
			out[colIdx] = types.NullValue()
			continue
		}

		switch col.Type {
		case types.Boolean:
			if i+1 > len(buf) {
				return nil, ErrBadBuffer
			}
			out[colIdx] = types.BoolValue(buf[i] != 0)
			i += 1

		case types.Integer:
			if i+8 > len(buf) {
				return nil, ErrBadBuffer
			}
			out[colIdx] = types.IntValue(int64(bx.U64(buf[i : i+8])))
			i += 8

		case types.Float:
			if i+8 > len(buf) {
				return nil, ErrBadBuffer
			}
			out[colIdx] = types.FloatValue(math.Float64frombits(bx.U64(buf[i : i+8])))
			i += 8

		case types.String:
			if i+4 > len(buf) {
				return nil, ErrBadBuffer
			}
			l := int(bx.U32(buf[i : i+4]))
			i += 4
			if l > MaxVarLen || i+l > len(buf) {
				return nil, ErrBadBuffer
			}
			out[colIdx] = types.StringValue(string(buf[i : i+l]))
			i += l

		default:
			return nil, ErrSchemaMismatch
		}
	}
	return out, nil
}
