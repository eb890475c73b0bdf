package queue

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	pebblestore "github.com/rzbill/flume/internal/storage/pebble"
	"github.com/rzbill/flume/pkg/id"
	logpkg "github.com/rzbill/flume/pkg/log"
)

// Mode selects the queue's consumption model.
type Mode uint8

const (
	// ModeSingle is a destructively consumed queue with one shared head.
	ModeSingle Mode = 1
	// ModeBroadcast fans every entry out to all registered consumers, each
	// tracking its own cursor.
	ModeBroadcast Mode = 2
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// ParseMode parses "single" or "broadcast".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "single":
		return ModeSingle, nil
	case "broadcast":
		return ModeBroadcast, nil
	}
	return 0, fmt.Errorf("queue: unknown mode %q", s)
}

var defaultNameRE = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

// Options tunes a queue handle. Zero values select defaults.
type Options struct {
	// MaxTxnRetries bounds retries of conflict-class transaction failures.
	MaxTxnRetries int
	// RetryBackoff is the base sleep between retries (jittered).
	RetryBackoff time.Duration
	// ReclaimChunk bounds entry deletions per reclaim transaction.
	ReclaimChunk int
	// ReclaimEveryOps runs an opportunistic bounded reclaim pass after
	// every Nth committed mutation. 0 disables.
	ReclaimEveryOps int
	// PayloadMaxBytes rejects larger payloads with ErrTooLarge. 0 disables.
	PayloadMaxBytes int
	// MaxEntries bounds live entries (tail-head); exceeding it fails an
	// enqueue with ErrQueueFull. 0 disables.
	MaxEntries uint64
	// NameRE overrides the queue/consumer name pattern.
	NameRE *regexp.Regexp
	// Trim observes reclaimed sequence ranges. Optional.
	Trim TrimHook
	// Logger receives engine diagnostics. Optional.
	Logger logpkg.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxTxnRetries <= 0 {
		o.MaxTxnRetries = 5
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 5 * time.Millisecond
	}
	if o.ReclaimChunk <= 0 {
		o.ReclaimChunk = 1024
	}
	if o.NameRE == nil {
		o.NameRE = defaultNameRE
	}
	if o.Trim == nil {
		o.Trim = noopTrim{}
	}
	if o.Logger == nil {
		o.Logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel))
	}
	return o
}

// Queue is a handle to one durable FIFO queue.
type Queue struct {
	db   *pebblestore.DB
	name string
	mode Mode
	opts Options

	logger logpkg.Logger
	ids    *id.Generator

	mu       sync.Mutex
	notifyCh chan struct{}

	ops atomic.Uint64

	sweepMu   sync.Mutex
	sweepStop chan struct{}
}

// Open opens (creating if absent) the named queue. Reopening an existing
// queue with a different mode fails with ErrModeMismatch.
func Open(db *pebblestore.DB, name string, mode Mode, opts Options) (*Queue, error) {
	opts = opts.withDefaults()
	if !opts.NameRE.MatchString(name) {
		return nil, fmt.Errorf("%w: queue %q", ErrBadName, name)
	}
	if mode != ModeSingle && mode != ModeBroadcast {
		return nil, fmt.Errorf("queue: unknown mode %d", mode)
	}

	q := &Queue{
		db:       db,
		name:     name,
		mode:     mode,
		opts:     opts,
		logger:   opts.Logger.WithComponent("queue").With(logpkg.Str("queue", name)),
		ids:      id.NewGenerator(),
		notifyCh: make(chan struct{}),
	}

	err := q.runWrite(context.Background(), func(txn *pebblestore.Txn) error {
		meta, err := txn.Get(KeyMeta(name))
		if err == nil {
			stored, _, derr := decodeMeta(meta)
			if derr != nil {
				return derr
			}
			if stored != mode {
				return fmt.Errorf("%w: queue %q is %s", ErrModeMismatch, name, stored)
			}
			return nil
		}
		if !pebblestore.IsNotFound(err) {
			return err
		}
		val := encodeMeta(mode, time.Now().UnixMilli())
		if err := txn.Put(KeyMeta(name), val); err != nil {
			return err
		}
		return txn.Put(KeyCatalog(name), val)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Mode returns the queue mode.
func (q *Queue) Mode() Mode { return q.mode }

func encodeMeta(mode Mode, createdMs int64) []byte {
	out := make([]byte, 9)
	out[0] = byte(mode)
	binary.BigEndian.PutUint64(out[1:], uint64(createdMs))
	return out
}

func decodeMeta(v []byte) (Mode, int64, error) {
	if len(v) != 9 {
		return 0, 0, ErrCodec
	}
	mode := Mode(v[0])
	if mode != ModeSingle && mode != ModeBroadcast {
		return 0, 0, ErrCodec
	}
	return mode, int64(binary.BigEndian.Uint64(v[1:])), nil
}

// runWrite executes fn inside a write transaction, committing on success.
// Conflict-class failures re-run the whole read-modify-write from scratch
// with jittered backoff; all other errors surface unchanged with the
// transaction aborted.
func (q *Queue) runWrite(ctx context.Context, fn func(txn *pebblestore.Txn) error) error {
	var lastErr error
	for attempt := 0; attempt <= q.opts.MaxTxnRetries; attempt++ {
		if attempt > 0 {
			backoff := q.opts.RetryBackoff + time.Duration(rand.Int63n(int64(q.opts.RetryBackoff)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		txn, err := q.db.Begin(ctx, false)
		if err != nil {
			if pebblestore.IsConflict(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("%w: %w", ErrStore, err)
		}
		if err := fn(txn); err != nil {
			txn.Abort()
			if pebblestore.IsConflict(err) {
				lastErr = err
				continue
			}
			return err
		}
		if err := txn.Commit(ctx); err != nil {
			if pebblestore.IsConflict(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("%w: %w", ErrStore, err)
		}
		return nil
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrContentionExceeded, q.opts.MaxTxnRetries+1, lastErr)
}

// runRead executes fn inside a read-only snapshot transaction.
func (q *Queue) runRead(ctx context.Context, fn func(txn *pebblestore.Txn) error) error {
	txn, err := q.db.Begin(ctx, true)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer txn.Abort()
	return fn(txn)
}

// Enqueue appends one payload and returns its sequence number.
func (q *Queue) Enqueue(ctx context.Context, payload []byte) (uint64, error) {
	seqs, err := q.EnqueueAll(ctx, [][]byte{payload})
	if err != nil {
		return 0, err
	}
	return seqs[0], nil
}

// EnqueueAll appends the payloads as a single atomic transaction and
// returns their contiguous sequence numbers in order.
func (q *Queue) EnqueueAll(ctx context.Context, payloads [][]byte) ([]uint64, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	if q.opts.PayloadMaxBytes > 0 {
		for _, p := range payloads {
			if len(p) > q.opts.PayloadMaxBytes {
				return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(p), q.opts.PayloadMaxBytes)
			}
		}
	}

	var seqs []uint64
	err := q.runWrite(ctx, func(txn *pebblestore.Txn) error {
		seqs = seqs[:0]
		if q.opts.MaxEntries > 0 {
			head, err := headSeq(txn, q.name)
			if err != nil {
				return err
			}
			tail, err := tailSeq(txn, q.name)
			if err != nil {
				return err
			}
			if tail-head+uint64(len(payloads)) > q.opts.MaxEntries {
				return fmt.Errorf("%w: %d live entries, max %d", ErrQueueFull, tail-head, q.opts.MaxEntries)
			}
		}
		for _, p := range payloads {
			seq, err := nextSeq(txn, q.name)
			if err != nil {
				return err
			}
			if err := txn.Put(KeyEntry(q.name, seq), EncodeRecord(q.ids.Next(), p)); err != nil {
				return err
			}
			seqs = append(seqs, seq)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	q.notify()
	q.afterMutation(ctx)
	return seqs, nil
}

// Dequeue returns the next undelivered entry for the reader and advances
// its position. Single mode (consumer must be empty): the entry is deleted
// and the shared head advances. Broadcast mode (consumer required): only
// that consumer's cursor advances; deletion is deferred to the reclaimer.
// The boolean is false when the queue is exhausted for this reader.
func (q *Queue) Dequeue(ctx context.Context, consumer string) (Entry, bool, error) {
	entries, err := q.DequeueN(ctx, consumer, 1)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}

// DequeueN dequeues up to n entries in one transaction. Fewer than n are
// returned when the queue holds fewer undelivered entries.
func (q *Queue) DequeueN(ctx context.Context, consumer string, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("queue: count must be > 0")
	}
	if err := q.checkReader(consumer); err != nil {
		return nil, err
	}

	var entries []Entry
	err := q.runWrite(ctx, func(txn *pebblestore.Txn) error {
		var err error
		entries, err = q.collect(txn, consumer, n)
		if err != nil || len(entries) == 0 {
			return err
		}
		last := entries[len(entries)-1].Seq
		if q.mode == ModeSingle {
			for _, e := range entries {
				if err := txn.Delete(KeyEntry(q.name, e.Seq)); err != nil {
					return err
				}
			}
			return putHead(txn, q.name, last+1)
		}
		return putSeqValue(txn, KeyCursor(q.name, consumer), last+1)
	})
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		q.afterMutation(ctx)
	}
	return entries, nil
}

// Peek returns what Dequeue would return without advancing any position.
func (q *Queue) Peek(ctx context.Context, consumer string) (Entry, bool, error) {
	entries, err := q.PeekN(ctx, consumer, 1)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}

// PeekN returns up to n entries from the reader's position without any
// mutation. Paired with Ack it supports at-least-once consumption: peek,
// process, then acknowledge exactly what was processed.
func (q *Queue) PeekN(ctx context.Context, consumer string, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("queue: count must be > 0")
	}
	if err := q.checkReader(consumer); err != nil {
		return nil, err
	}
	var entries []Entry
	err := q.runRead(ctx, func(txn *pebblestore.Txn) error {
		var err error
		entries, err = q.collect(txn, consumer, n)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Ack advances the reader's position past up to n entries without
// returning payloads, deleting them in single mode. It returns how many
// entries were acknowledged, which may be fewer than n.
func (q *Queue) Ack(ctx context.Context, consumer string, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("queue: count must be > 0")
	}
	if err := q.checkReader(consumer); err != nil {
		return 0, err
	}

	acked := 0
	err := q.runWrite(ctx, func(txn *pebblestore.Txn) error {
		acked = 0
		start, err := q.readerPos(txn, consumer)
		if err != nil {
			return err
		}
		iter, err := txn.Scan(KeyEntry(q.name, start), entryHi(q.name))
		if err != nil {
			return err
		}
		var seqs []uint64
		for ok := iter.First(); ok && len(seqs) < n; ok = iter.Next() {
			seq, perr := ParseEntrySeq(q.name, iter.Key())
			if perr != nil {
				iter.Close()
				return perr
			}
			seqs = append(seqs, seq)
		}
		if err := iter.Close(); err != nil {
			return fmt.Errorf("%w: %w", ErrStore, err)
		}
		if len(seqs) == 0 {
			return nil
		}
		last := seqs[len(seqs)-1]
		if q.mode == ModeSingle {
			for _, seq := range seqs {
				if err := txn.Delete(KeyEntry(q.name, seq)); err != nil {
					return err
				}
			}
			if err := putHead(txn, q.name, last+1); err != nil {
				return err
			}
		} else {
			if err := putSeqValue(txn, KeyCursor(q.name, consumer), last+1); err != nil {
				return err
			}
		}
		acked = len(seqs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if acked > 0 {
		q.afterMutation(ctx)
	}
	return acked, nil
}

// Length returns an upper bound on undelivered entries: tail-head in
// single mode, tail minus the minimum registered cursor in broadcast mode
// (0 when no consumers are registered).
func (q *Queue) Length(ctx context.Context) (uint64, error) {
	var length uint64
	err := q.runRead(ctx, func(txn *pebblestore.Txn) error {
		tail, err := tailSeq(txn, q.name)
		if err != nil {
			return err
		}
		if q.mode == ModeSingle {
			head, err := headSeq(txn, q.name)
			if err != nil {
				return err
			}
			length = tail - head
			return nil
		}
		min, any, err := minCursor(txn, q.name)
		if err != nil {
			return err
		}
		if !any {
			length = 0
			return nil
		}
		length = tail - min
		return nil
	})
	if err != nil {
		return 0, err
	}
	return length, nil
}

// Stats describes a queue's durable state.
type Stats struct {
	Name        string
	Mode        Mode
	Head        uint64
	Tail        uint64
	LiveEntries uint64
	Consumers   []ConsumerStatus
}

// Stats scans the queue's key ranges and reports its durable state.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Name: q.name, Mode: q.mode}
	err := q.runRead(ctx, func(txn *pebblestore.Txn) error {
		var err error
		if st.Head, err = headSeq(txn, q.name); err != nil {
			return err
		}
		if st.Tail, err = tailSeq(txn, q.name); err != nil {
			return err
		}
		lo, hi := EntryBounds(q.name)
		iter, err := txn.Scan(lo, hi)
		if err != nil {
			return err
		}
		for ok := iter.First(); ok; ok = iter.Next() {
			st.LiveEntries++
		}
		if err := iter.Close(); err != nil {
			return fmt.Errorf("%w: %w", ErrStore, err)
		}
		if q.mode == ModeBroadcast {
			st.Consumers, err = consumersIn(txn, q.name, st.Tail)
			return err
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

// WaitForEnqueue blocks until a new entry is committed or timeout elapses.
// It returns true if woken by an enqueue, false on timeout.
func (q *Queue) WaitForEnqueue(timeout time.Duration) bool {
	q.mu.Lock()
	ch := q.notifyCh
	q.mu.Unlock()
	if timeout <= 0 {
		<-ch
		return true
	}
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (q *Queue) notify() {
	q.mu.Lock()
	close(q.notifyCh)
	q.notifyCh = make(chan struct{})
	q.mu.Unlock()
}

// checkReader validates the consumer argument against the queue mode.
func (q *Queue) checkReader(consumer string) error {
	if q.mode == ModeSingle {
		if consumer != "" {
			return fmt.Errorf("%w: single-mode queue takes no consumer", ErrModeMismatch)
		}
		return nil
	}
	if consumer == "" {
		return fmt.Errorf("%w: broadcast queue requires a consumer", ErrModeMismatch)
	}
	if !q.opts.NameRE.MatchString(consumer) {
		return fmt.Errorf("%w: consumer %q", ErrBadName, consumer)
	}
	return nil
}

// readerPos returns the reader's next-unread sequence inside txn:
// the shared head in single mode, the consumer's cursor in broadcast mode.
func (q *Queue) readerPos(txn *pebblestore.Txn, consumer string) (uint64, error) {
	if q.mode == ModeSingle {
		return headSeq(txn, q.name)
	}
	v, err := txn.Get(KeyCursor(q.name, consumer))
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return 0, fmt.Errorf("%w: %q", ErrUnknownConsumer, consumer)
		}
		return 0, err
	}
	if len(v) != 8 {
		return 0, ErrCodec
	}
	return binary.BigEndian.Uint64(v), nil
}

// collect reads up to n entries from the reader's position. Entries may
// have been deleted out from under a stale position; the scan simply
// starts at the first live key at or after it.
func (q *Queue) collect(txn *pebblestore.Txn, consumer string, n int) ([]Entry, error) {
	start, err := q.readerPos(txn, consumer)
	if err != nil {
		return nil, err
	}
	iter, err := txn.Scan(KeyEntry(q.name, start), entryHi(q.name))
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, n)
	for ok := iter.First(); ok && len(entries) < n; ok = iter.Next() {
		e, derr := decodeEntry(q.name, iter.Key(), iter.Value())
		if derr != nil {
			iter.Close()
			return nil, derr
		}
		entries = append(entries, e)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return entries, nil
}

func entryHi(queue string) []byte {
	_, hi := EntryBounds(queue)
	return hi
}

// afterMutation drives the opportunistic reclaim trigger.
func (q *Queue) afterMutation(ctx context.Context) {
	n := q.ops.Add(1)
	every := uint64(q.opts.ReclaimEveryOps)
	if every == 0 || n%every != 0 {
		return
	}
	if _, err := q.ReclaimN(ctx, q.opts.ReclaimChunk); err != nil {
		q.logger.Warn("opportunistic reclaim failed", logpkg.Err(err))
	}
}
