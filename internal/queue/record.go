package queue

import (
	"encoding/binary"
	"hash/crc32"
	"time"

	"github.com/rzbill/flume/pkg/id"
)

// Record encoding: varint idLen | entry id | payload | crc32c(id|payload)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Entry is one queued item as returned to readers.
type Entry struct {
	// Seq is the entry's sequence number within its queue.
	Seq uint64
	// ID is the sortable entry identifier assigned at enqueue time.
	ID id.ID
	// EnqueuedAt is the enqueue timestamp embedded in the ID. Diagnostic
	// only; ordering is defined by Seq.
	EnqueuedAt time.Time
	// Payload is the opaque entry body.
	Payload []byte
}

// EncodeRecord builds the stored value for an entry.
func EncodeRecord(eid id.ID, payload []byte) []byte {
	out := make([]byte, 0, 10+id.Size+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(id.Size))
	out = append(out, tmp[:n]...)
	out = append(out, eid[:]...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, eid[:])
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

// DecodeRecord parses a stored value. Any malformation, including a CRC
// mismatch, is corruption and reports ErrCodec.
func DecodeRecord(b []byte) (id.ID, []byte, error) {
	if len(b) < 1+4 {
		return id.ID{}, nil, ErrCodec
	}
	idLen, n := binary.Uvarint(b)
	if n <= 0 || idLen != id.Size || n+int(idLen)+4 > len(b) {
		return id.ID{}, nil, ErrCodec
	}
	rawID := b[n : n+int(idLen)]
	payload := b[n+int(idLen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, rawID)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return id.ID{}, nil, ErrCodec
	}
	eid, err := id.FromBytes(rawID)
	if err != nil {
		return id.ID{}, nil, ErrCodec
	}
	return eid, append([]byte(nil), payload...), nil
}

func decodeEntry(queue string, key, value []byte) (Entry, error) {
	seq, err := ParseEntrySeq(queue, key)
	if err != nil {
		return Entry{}, err
	}
	eid, payload, err := DecodeRecord(value)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Seq: seq, ID: eid, EnqueuedAt: eid.Time(), Payload: payload}, nil
}
