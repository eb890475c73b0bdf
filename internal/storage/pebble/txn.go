package pebblestore

import (
	"context"
	"errors"
	"time"

	"github.com/cockroachdb/pebble"
)

var (
	// ErrTxnConflict reports that the writer slot could not be acquired in
	// time. The condition is transient; callers retry the whole
	// read-modify-write sequence.
	ErrTxnConflict = errors.New("pebble: transaction conflict: writer busy")

	// ErrReadOnlyTxn reports a mutation attempted on a read-only transaction.
	ErrReadOnlyTxn = errors.New("pebble: mutation on read-only transaction")

	// ErrTxnDone reports use of a transaction after Commit or Abort.
	ErrTxnDone = errors.New("pebble: transaction already finished")
)

// IsConflict reports whether err belongs to the retryable conflict class.
func IsConflict(err error) bool {
	return errors.Is(err, ErrTxnConflict)
}

// Txn is a single atomic unit of reads and writes. Write transactions hold
// the database's writer slot from Begin until Commit or Abort; read-only
// transactions observe a stable snapshot and hold no locks.
//
// All iterators returned by Scan must be closed before Commit.
type Txn struct {
	db       *DB
	batch    *pebble.Batch
	snap     *pebble.Snapshot
	done     bool
	released bool
}

// Begin starts a transaction. Reads in a write transaction observe the
// transaction's own pending writes plus state as of Begin (single writer,
// so equivalently: latest committed state).
func (db *DB) Begin(ctx context.Context, readOnly bool) (*Txn, error) {
	if readOnly {
		return &Txn{db: db, snap: db.inner.NewSnapshot()}, nil
	}
	select {
	case db.writer <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(db.lockWait):
		return nil, ErrTxnConflict
	}
	return &Txn{db: db, batch: db.inner.NewIndexedBatch()}, nil
}

// ReadOnly reports whether the transaction was started read-only.
func (t *Txn) ReadOnly() bool { return t.batch == nil }

func (t *Txn) release() {
	if t.batch != nil && !t.released {
		<-t.db.writer
		t.released = true
	}
}

// Get copies the value for key, or returns a not-found error (IsNotFound).
func (t *Txn) Get(key []byte) ([]byte, error) {
	if t.done {
		return nil, ErrTxnDone
	}
	start := time.Now()
	var (
		val    []byte
		closer interface{ Close() error }
		err    error
	)
	if t.batch != nil {
		val, closer, err = t.batch.Get(key)
	} else {
		val, closer, err = t.snap.Get(key)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	buf := append([]byte(nil), val...)
	t.db.metrics.ObserveRead(time.Since(start), len(buf))
	return buf, nil
}

// Put stages a key/value write.
func (t *Txn) Put(key, value []byte) error {
	if t.done {
		return ErrTxnDone
	}
	if t.batch == nil {
		return ErrReadOnlyTxn
	}
	return t.batch.Set(key, value, nil)
}

// Delete stages a key deletion.
func (t *Txn) Delete(key []byte) error {
	if t.done {
		return ErrTxnDone
	}
	if t.batch == nil {
		return ErrReadOnlyTxn
	}
	return t.batch.Delete(key, nil)
}

// Scan returns an ascending iterator over [lo, hi). In a write transaction
// the iterator merges pending writes with committed state.
func (t *Txn) Scan(lo, hi []byte) (*pebble.Iterator, error) {
	if t.done {
		return nil, ErrTxnDone
	}
	opts := &pebble.IterOptions{LowerBound: lo, UpperBound: hi}
	if t.batch != nil {
		return t.batch.NewIter(opts)
	}
	return t.snap.NewIter(opts)
}

// Commit atomically applies all staged writes with the configured fsync
// policy and releases the writer slot. Committing a read-only transaction
// just releases its snapshot.
func (t *Txn) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxnDone
	}
	t.done = true
	if t.batch == nil {
		return t.snap.Close()
	}
	start := time.Now()
	size := t.batch.Len()
	err := t.batch.Commit(t.db.syncMode())
	cerr := t.batch.Close()
	t.release()
	if err == nil {
		t.db.metrics.ObserveCommit(time.Since(start), size)
		err = cerr
	}
	return err
}

// Abort discards all staged writes and releases the writer slot. Abort
// after Commit (or a second Abort) is a no-op, so `defer txn.Abort()` is
// always safe.
func (t *Txn) Abort() {
	if t.done {
		return
	}
	t.done = true
	if t.batch == nil {
		_ = t.snap.Close()
		return
	}
	_ = t.batch.Close()
	t.release()
}
