package queue

import (
	"bytes"
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - cat/{queue}
// - q/{queue}/m
// - q/{queue}/ctl/h
// - q/{queue}/ctl/t
// - q/{queue}/e/{seq_be8}
// - q/{queue}/c/{consumer}
//
// Queue and consumer names never contain '/', so no namespace's keys
// interleave with another's under lexicographic order and every scan can
// be prefix-bounded.

var (
	catPrefix  = []byte("cat/")
	qPrefix    = []byte("q/")
	metaSuffix = []byte("/m")
	headSuffix = []byte("/ctl/h")
	tailSuffix = []byte("/ctl/t")
	entrySeg   = []byte("/e/")
	cursorSeg  = []byte("/c/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyCatalog builds the catalog key listing a queue.
func KeyCatalog(queue string) []byte {
	k := make([]byte, 0, len(catPrefix)+len(queue))
	k = append(k, catPrefix...)
	k = append(k, queue...)
	return k
}

// CatalogBounds returns scan bounds covering every catalog key.
func CatalogBounds() (lo, hi []byte) {
	return catPrefix, append(append([]byte{}, catPrefix...), 0xFF)
}

// KeyMeta builds the queue metadata key.
func KeyMeta(queue string) []byte {
	k := make([]byte, 0, len(qPrefix)+len(queue)+len(metaSuffix))
	k = append(k, qPrefix...)
	k = append(k, queue...)
	k = append(k, metaSuffix...)
	return k
}

// KeyHead builds the head pointer key (lowest live sequence).
func KeyHead(queue string) []byte {
	k := make([]byte, 0, len(qPrefix)+len(queue)+len(headSuffix))
	k = append(k, qPrefix...)
	k = append(k, queue...)
	k = append(k, headSuffix...)
	return k
}

// KeyTail builds the tail pointer key (next sequence to assign).
func KeyTail(queue string) []byte {
	k := make([]byte, 0, len(qPrefix)+len(queue)+len(tailSuffix))
	k = append(k, qPrefix...)
	k = append(k, queue...)
	k = append(k, tailSuffix...)
	return k
}

// KeyEntry builds the entry key with a big-endian sequence so key order
// equals numeric order.
func KeyEntry(queue string, seq uint64) []byte {
	k := make([]byte, 0, len(qPrefix)+len(queue)+len(entrySeg)+8)
	k = append(k, qPrefix...)
	k = append(k, queue...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

// EntryBounds returns scan bounds covering every entry of the queue.
func EntryBounds(queue string) (lo, hi []byte) {
	lo = KeyEntry(queue, 0)
	hi = append(KeyEntry(queue, ^uint64(0)), 0x00)
	return lo, hi
}

// KeyCursor builds the durable cursor key for a broadcast consumer.
func KeyCursor(queue, consumer string) []byte {
	k := make([]byte, 0, len(qPrefix)+len(queue)+len(cursorSeg)+len(consumer))
	k = append(k, qPrefix...)
	k = append(k, queue...)
	k = append(k, cursorSeg...)
	k = append(k, consumer...)
	return k
}

// CursorBounds returns scan bounds covering every cursor of the queue.
func CursorBounds(queue string) (lo, hi []byte) {
	lo = KeyCursor(queue, "")
	hi = append(append([]byte{}, lo...), 0xFF)
	return lo, hi
}

// ParseEntrySeq extracts the sequence number from an entry key.
func ParseEntrySeq(queue string, key []byte) (uint64, error) {
	prefix := KeyEntry(queue, 0)[: len(qPrefix)+len(queue)+len(entrySeg)]
	if !bytes.HasPrefix(key, prefix) || len(key) != len(prefix)+8 {
		return 0, ErrCodec
	}
	return binary.BigEndian.Uint64(key[len(prefix):]), nil
}

// ParseCursorName extracts the consumer name from a cursor key.
func ParseCursorName(queue string, key []byte) (string, error) {
	prefix := KeyCursor(queue, "")
	if !bytes.HasPrefix(key, prefix) || len(key) == len(prefix) {
		return "", ErrCodec
	}
	return string(key[len(prefix):]), nil
}

// ParseCatalogName extracts the queue name from a catalog key.
func ParseCatalogName(key []byte) (string, error) {
	if !bytes.HasPrefix(key, catPrefix) || len(key) == len(catPrefix) {
		return "", ErrCodec
	}
	return string(key[len(catPrefix):]), nil
}
