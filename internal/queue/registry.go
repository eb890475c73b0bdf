package queue

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"

	pebblestore "github.com/rzbill/flume/internal/storage/pebble"
)

// StartPolicy selects where a newly registered consumer's cursor begins.
type StartPolicy uint8

const (
	// StartAtTail makes the consumer see only entries enqueued after
	// registration. This is the default policy.
	StartAtTail StartPolicy = iota
	// StartAtZero replays from the earliest still-live entry.
	StartAtZero
)

// String returns the policy name.
func (p StartPolicy) String() string {
	switch p {
	case StartAtTail:
		return "tail"
	case StartAtZero:
		return "zero"
	default:
		return "unknown"
	}
}

// ParseStartPolicy parses "tail" or "zero".
func ParseStartPolicy(s string) (StartPolicy, error) {
	switch s {
	case "tail", "":
		return StartAtTail, nil
	case "zero":
		return StartAtZero, nil
	}
	return 0, fmt.Errorf("queue: unknown start policy %q", s)
}

// ConsumerStatus describes one registered broadcast consumer.
type ConsumerStatus struct {
	// Name is the consumer's unique name within the queue.
	Name string
	// Cursor is the next-unread sequence number.
	Cursor uint64
	// Lag is tail minus cursor: undelivered entries for this consumer.
	Lag uint64
}

// Register creates a cursor for a new broadcast consumer. The start policy
// is explicit: StartAtTail sees only future entries, StartAtZero replays
// everything still live. Registering an existing name fails with
// ErrAlreadyRegistered; silently accepting it could move a cursor, which
// cursors never do.
func (q *Queue) Register(ctx context.Context, consumer string, start StartPolicy) error {
	if q.mode != ModeBroadcast {
		return fmt.Errorf("%w: consumers require broadcast mode", ErrModeMismatch)
	}
	if !q.opts.NameRE.MatchString(consumer) {
		return fmt.Errorf("%w: consumer %q", ErrBadName, consumer)
	}
	return q.runWrite(ctx, func(txn *pebblestore.Txn) error {
		key := KeyCursor(q.name, consumer)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("%w: %q", ErrAlreadyRegistered, consumer)
		} else if !pebblestore.IsNotFound(err) {
			return err
		}
		cursor := uint64(0)
		if start == StartAtTail {
			tail, err := tailSeq(txn, q.name)
			if err != nil {
				return err
			}
			cursor = tail
		}
		return putSeqValue(txn, key, cursor)
	})
}

// Deregister removes a consumer's cursor. Entries only this consumer was
// holding back become reclaimable immediately.
func (q *Queue) Deregister(ctx context.Context, consumer string) error {
	if q.mode != ModeBroadcast {
		return fmt.Errorf("%w: consumers require broadcast mode", ErrModeMismatch)
	}
	return q.runWrite(ctx, func(txn *pebblestore.Txn) error {
		key := KeyCursor(q.name, consumer)
		if _, err := txn.Get(key); err != nil {
			if pebblestore.IsNotFound(err) {
				return fmt.Errorf("%w: %q", ErrUnknownConsumer, consumer)
			}
			return err
		}
		return txn.Delete(key)
	})
}

// Consumers lists registered consumers with their cursor positions,
// sorted by name.
func (q *Queue) Consumers(ctx context.Context) ([]ConsumerStatus, error) {
	if q.mode != ModeBroadcast {
		return nil, fmt.Errorf("%w: consumers require broadcast mode", ErrModeMismatch)
	}
	var out []ConsumerStatus
	err := q.runRead(ctx, func(txn *pebblestore.Txn) error {
		tail, err := tailSeq(txn, q.name)
		if err != nil {
			return err
		}
		out, err = consumersIn(txn, q.name, tail)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func consumersIn(txn *pebblestore.Txn, queue string, tail uint64) ([]ConsumerStatus, error) {
	lo, hi := CursorBounds(queue)
	iter, err := txn.Scan(lo, hi)
	if err != nil {
		return nil, err
	}
	var out []ConsumerStatus
	for ok := iter.First(); ok; ok = iter.Next() {
		name, perr := ParseCursorName(queue, iter.Key())
		if perr != nil {
			iter.Close()
			return nil, perr
		}
		v := iter.Value()
		if len(v) != 8 {
			iter.Close()
			return nil, ErrCodec
		}
		cursor := binary.BigEndian.Uint64(v)
		out = append(out, ConsumerStatus{Name: name, Cursor: cursor, Lag: tail - cursor})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// minCursor returns the lowest registered cursor. any=false when the
// queue has no registered consumers.
func minCursor(txn *pebblestore.Txn, queue string) (min uint64, any bool, err error) {
	lo, hi := CursorBounds(queue)
	iter, err := txn.Scan(lo, hi)
	if err != nil {
		return 0, false, err
	}
	for ok := iter.First(); ok; ok = iter.Next() {
		v := iter.Value()
		if len(v) != 8 {
			iter.Close()
			return 0, false, ErrCodec
		}
		cursor := binary.BigEndian.Uint64(v)
		if !any || cursor < min {
			min = cursor
		}
		any = true
	}
	if cerr := iter.Close(); cerr != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrStore, cerr)
	}
	return min, any, nil
}
