package queue

import (
	"encoding/binary"

	pebblestore "github.com/rzbill/flume/internal/storage/pebble"
)

// Sequence allocation and control-pointer access. The store is the single
// source of truth for head and tail: every read and rewrite happens inside
// the caller's transaction, so an aborted enqueue never consumes a
// sequence number and the next attempt reissues the same value.

func getSeqValue(txn *pebblestore.Txn, key []byte) (uint64, error) {
	v, err := txn.Get(key)
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	if len(v) != 8 {
		return 0, ErrCodec
	}
	return binary.BigEndian.Uint64(v), nil
}

func putSeqValue(txn *pebblestore.Txn, key []byte, seq uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return txn.Put(key, b[:])
}

// nextSeq returns the next sequence number for the queue and advances the
// durable tail, both inside txn. A new queue starts at 0.
func nextSeq(txn *pebblestore.Txn, queue string) (uint64, error) {
	key := KeyTail(queue)
	seq, err := getSeqValue(txn, key)
	if err != nil {
		return 0, err
	}
	if err := putSeqValue(txn, key, seq+1); err != nil {
		return 0, err
	}
	return seq, nil
}

func headSeq(txn *pebblestore.Txn, queue string) (uint64, error) {
	return getSeqValue(txn, KeyHead(queue))
}

func tailSeq(txn *pebblestore.Txn, queue string) (uint64, error) {
	return getSeqValue(txn, KeyTail(queue))
}

func putHead(txn *pebblestore.Txn, queue string, seq uint64) error {
	return putSeqValue(txn, KeyHead(queue), seq)
}
