// Package pebblestore wraps Pebble with fsync policy, batches, and the
// transaction surface the queue engine is written against: Begin, Get,
// Put, Delete, Scan, Commit, Abort.
//
// Write transactions serialize on a single writer slot and wrap an indexed
// Pebble batch, so reads inside a write transaction observe the
// transaction's own pending writes. Read-only transactions wrap a Pebble
// snapshot and never block writers. Failing to acquire the writer slot
// within Options.LockWait yields ErrTxnConflict, which callers are
// expected to retry.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeAlways,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	txn, _ := db.Begin(ctx, false)
//	defer txn.Abort()
//	_ = txn.Put([]byte("k"), []byte("v"))
//	_ = txn.Commit(ctx)
package pebblestore
