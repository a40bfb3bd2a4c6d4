// stand for bytes helper
package bx

import (
	"encoding/binary"
	"math"
)

var (
	LE = binary.LittleEndian
	BE = binary.BigEndian
)

// --- LE: read ---
func U16(b []byte) uint16  { return LE.Uint16(b) }
func U32(b []byte) uint32  { return LE.Uint32(b) }
func U64(b []byte) uint64  { return LE.Uint64(b) }
func I64(b []byte) int64   { return int64(U64(b)) }
func F64(b []byte) float64 { return math.Float64frombits(U64(b)) }

// --- LE: write ---
func PutU16(b []byte, v uint16)  { LE.PutUint16(b, v) }
func PutU32(b []byte, v uint32)  { LE.PutUint32(b, v) }
func PutU64(b []byte, v uint64)  { LE.PutUint64(b, v) }
func PutI64(b []byte, v int64)   { PutU64(b, uint64(v)) }
func PutF64(b []byte, v float64) { PutU64(b, math.Float64bits(v)) }

// --- LE: append ---
func AppendU32(b []byte, v uint32) []byte { return LE.AppendUint32(b, v) }
func AppendU64(b []byte, v uint64) []byte { return LE.AppendUint64(b, v) }

// --- BE (used for key/index sortable) ---
func U64BE(b []byte) uint64                { return BE.Uint64(b) }
func PutU64BE(b []byte, v uint64)          { BE.PutUint64(b, v) }
func AppendU64BE(b []byte, v uint64) []byte { return BE.AppendUint64(b, v) }
