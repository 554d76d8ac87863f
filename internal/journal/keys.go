package journal

import "encoding/binary"

// Keyspace (byte-wise, lexicographically sortable):
// - journal/m            last assigned sequence
// - journal/e/{seq_be8}  framed record

var (
	metaKey     = []byte("journal/m")
	entryPrefix = []byte("journal/e/")
)

// KeyEntry builds the entry key with a big-endian sequence for ordering.
func KeyEntry(seq uint64) []byte {
	k := make([]byte, 0, len(entryPrefix)+8)
	k = append(k, entryPrefix...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return append(k, b[:]...)
}

// KeyMeta returns the journal metadata key.
func KeyMeta() []byte { return metaKey }

func seqFromEntryKey(k []byte) uint64 {
	if len(k) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(k[len(k)-8:])
}
