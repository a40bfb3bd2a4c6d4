package engine

import "github.com/tidesql/tidesql/internal/alias/bx"

// Key layout on the transactional store. First byte picks the class:
//
//	's' <name> 0x00        table schema, JSON
//	'r' <tableID> <rowID>  row payload, both ids big-endian u64
//
// Two counters bypass the transaction layer so ids stay monotonic even
// across rollbacks:
//
//	"c"            next table id
//	'm' <tableID>  next row id for one table
//
// Identifiers never contain NUL and the id fields are fixed width, so
// no key is a prefix of another, which the version layer requires.
const (
	prefixSchema = 's'
	prefixRow    = 'r'
)

var keyNextTableID = []byte("c")

func schemaKey(name string) []byte {
	k := make([]byte, 0, len(name)+2)
	k = append(k, prefixSchema)
	k = append(k, name...)
	return append(k, 0x00)
}

func schemaPrefix() []byte { return []byte{prefixSchema} }

func schemaKeyName(key []byte) string {
	return string(key[1 : len(key)-1])
}

func rowKey(tableID, rowID uint64) []byte {
	k := make([]byte, 0, 17)
	k = append(k, prefixRow)
	k = bx.AppendU64BE(k, tableID)
	return bx.AppendU64BE(k, rowID)
}

func rowPrefix(tableID uint64) []byte {
	k := make([]byte, 0, 9)
	k = append(k, prefixRow)
	return bx.AppendU64BE(k, tableID)
}

func rowKeyID(key []byte) uint64 {
	return bx.U64BE(key[9:17])
}

func rowIDCounterKey(tableID uint64) []byte {
	return bx.AppendU64BE([]byte("m"), tableID)
}
