// Package queue implements flume's durable FIFO queue engine on top of
// the transactional Pebble store.
//
// # Overview
//
// A queue is a named, ordered key range. Entries are keyed by a
// monotonically increasing 64-bit sequence number encoded big-endian, so
// lexicographic key order equals FIFO order. Keys are laid out in disjoint
// namespaces per queue:
//
//	cat/{queue}                (catalog record: mode | created_ms)
//	q/{queue}/m                (queue meta: mode | created_ms)
//	q/{queue}/ctl/h            (head: lowest live sequence, 8B BE)
//	q/{queue}/ctl/t            (tail: next sequence to assign, 8B BE)
//	q/{queue}/e/{seq_be8}      (entries)
//	q/{queue}/c/{consumer}     (broadcast cursors, 8B BE)
//
// Entry values are encoded as: varint idLen | entry id | payload |
// crc32c(id|payload). The 16-byte entry ID carries the enqueue timestamp
// for diagnostics; ordering is defined by the sequence number alone.
//
// # Modes
//
// A single-mode queue has one logical reader: Dequeue returns the entry at
// the head, deletes it, and advances the head, all in one transaction. A
// broadcast queue fans out to named consumers, each with a durable cursor;
// Dequeue advances only that consumer's cursor and deletion is deferred to
// the reclaimer, which deletes entries strictly below the minimum live
// cursor.
//
// # Transactions and contention
//
// Every public operation spans exactly one store transaction. The sequence
// allocator reads and rewrites the tail key inside that same transaction,
// so an aborted enqueue reissues the same sequence number and committed
// sequence order equals commit order. Conflict-class store errors cause
// the whole read-modify-write to be retried from scratch up to a bounded
// budget, after which ErrContentionExceeded surfaces.
//
// # API surface (internal)
//
//	q, _ := queue.Open(db, "orders", queue.ModeBroadcast, queue.Options{})
//	seq, _ := q.Enqueue(ctx, []byte("payload"))
//	_ = q.Register(ctx, "billing", queue.StartAtZero)
//	e, ok, _ := q.Dequeue(ctx, "billing")
//	_ = e
//	_ = ok // false when the cursor has reached the tail
//	n, _ := q.Reclaim(ctx)
//	_ = n
package queue
