package pebblestore

import (
	"context"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Options{DataDir: t.TempDir(), Fsync: FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTxnCommitVisible(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	txn, err := db.Begin(ctx, false)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := txn.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := txn.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := db.Get([]byte("k"))
	if err != nil || string(got) != "v" {
		t.Fatalf("get after commit: %q %v", got, err)
	}
}

func TestTxnAbortDiscards(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	txn, err := db.Begin(ctx, false)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := txn.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	txn.Abort()

	if _, err := db.Get([]byte("k")); !IsNotFound(err) {
		t.Fatalf("expected not found after abort, got %v", err)
	}
}

func TestTxnReadYourWrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	txn, err := db.Begin(ctx, false)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer txn.Abort()
	if err := txn.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := txn.Get([]byte("a"))
	if err != nil || string(got) != "1" {
		t.Fatalf("expected pending write visible, got %q %v", got, err)
	}
}

func TestReadOnlyTxnRejectsMutations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	txn, err := db.Begin(ctx, true)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer txn.Abort()
	if err := txn.Put([]byte("k"), []byte("v")); err != ErrReadOnlyTxn {
		t.Fatalf("expected ErrReadOnlyTxn, got %v", err)
	}
	if err := txn.Delete([]byte("k")); err != ErrReadOnlyTxn {
		t.Fatalf("expected ErrReadOnlyTxn, got %v", err)
	}
}

func TestWriterSlotConflict(t *testing.T) {
	db, err := Open(Options{DataDir: t.TempDir(), Fsync: FsyncModeAlways, LockWait: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	first, err := db.Begin(ctx, false)
	if err != nil {
		t.Fatalf("begin first: %v", err)
	}
	defer first.Abort()

	if _, err := db.Begin(ctx, false); !IsConflict(err) {
		t.Fatalf("expected conflict while writer held, got %v", err)
	}

	// read-only transactions are not blocked by the writer
	ro, err := db.Begin(ctx, true)
	if err != nil {
		t.Fatalf("read-only begin during write txn: %v", err)
	}
	ro.Abort()
}

func TestScanOrderAndBounds(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	txn, err := db.Begin(ctx, false)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, k := range []string{"p/3", "p/1", "p/2", "q/1"} {
		if err := txn.Put([]byte(k), []byte(k)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	if err := txn.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	ro, err := db.Begin(ctx, true)
	if err != nil {
		t.Fatalf("begin ro: %v", err)
	}
	defer ro.Abort()
	iter, err := ro.Scan([]byte("p/"), []byte("p/\xff"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	defer iter.Close()

	var got []string
	for ok := iter.First(); ok; ok = iter.Next() {
		got = append(got, string(iter.Key()))
	}
	want := []string{"p/1", "p/2", "p/3"}
	if len(got) != len(want) {
		t.Fatalf("want %v got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want %v got %v", want, got)
		}
	}
}

func TestTxnDoneAfterCommit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	txn, err := db.Begin(ctx, false)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := txn.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := txn.Put([]byte("k"), []byte("v")); err != ErrTxnDone {
		t.Fatalf("expected ErrTxnDone, got %v", err)
	}
	txn.Abort() // no-op

	// writer slot must be free again
	next, err := db.Begin(ctx, false)
	if err != nil {
		t.Fatalf("begin after commit: %v", err)
	}
	next.Abort()
}
