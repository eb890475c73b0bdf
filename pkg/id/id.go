package id

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"sync"
	"time"
)

// Size is the encoded length of an ID in bytes.
const Size = 16

// ID is a 128-bit sortable identifier: [8 bytes ms_timestamp][8 bytes seq],
// both big-endian, so byte order equals generation order per process.
type ID [Size]byte

// ErrBadID reports a malformed encoded ID.
var ErrBadID = errors.New("id: malformed id")

// Bytes returns the raw 16-byte representation.
func (i ID) Bytes() []byte { b := make([]byte, Size); copy(b, i[:]); return b }

// String returns the lowercase hex form.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// TimeMs returns the embedded creation time in milliseconds since the
// Unix epoch.
func (i ID) TimeMs() int64 { return int64(binary.BigEndian.Uint64(i[0:8])) }

// Time returns the embedded creation time.
func (i ID) Time() time.Time { return time.UnixMilli(i.TimeMs()) }

// Compare returns -1, 0, or 1 by lexical comparison.
func (i ID) Compare(other ID) int { return bytes.Compare(i[:], other[:]) }

// IsZero reports whether the ID is all zero bytes.
func (i ID) IsZero() bool { return i == ID{} }

// FromBytes decodes a raw 16-byte ID.
func FromBytes(b []byte) (ID, error) {
	if len(b) != Size {
		return ID{}, ErrBadID
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// Parse decodes the hex form produced by String.
func Parse(s string) (ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != Size {
		return ID{}, ErrBadID
	}
	return FromBytes(b)
}

// Generator produces monotonically increasing IDs per process.
type Generator struct {
	mu       sync.Mutex
	lastMs   int64
	sequence uint64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since the Unix epoch.
// Overridable in tests.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new ID. A clock that runs backwards is clamped to the last
// observed millisecond so IDs never regress. Sequence overflow within a
// single millisecond busy-waits for the next tick.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	if ms == g.lastMs {
		if g.sequence == math.MaxUint64 {
			for {
				ms = NowMs()
				if ms > g.lastMs {
					break
				}
				time.Sleep(time.Millisecond / 8)
			}
			g.sequence = 0
		} else {
			g.sequence++
		}
	} else {
		g.sequence = 0
	}

	g.lastMs = ms

	var id ID
	binary.BigEndian.PutUint64(id[0:8], uint64(ms))
	binary.BigEndian.PutUint64(id[8:16], g.sequence)
	return id
}
