package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestRegisterDuplicateFails(t *testing.T) {
	q := openTestQueue(t, newTestDB(t), "events", ModeBroadcast)
	ctx := context.Background()

	if err := q.Register(ctx, "billing", StartAtTail); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := q.Register(ctx, "billing", StartAtZero); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestDeregisterUnknownFails(t *testing.T) {
	q := openTestQueue(t, newTestDB(t), "events", ModeBroadcast)
	if err := q.Deregister(context.Background(), "ghost"); !errors.Is(err, ErrUnknownConsumer) {
		t.Fatalf("expected ErrUnknownConsumer, got %v", err)
	}
}

func TestRegistryRequiresBroadcast(t *testing.T) {
	q := openTestQueue(t, newTestDB(t), "single", ModeSingle)
	ctx := context.Background()
	if err := q.Register(ctx, "x", StartAtTail); !errors.Is(err, ErrModeMismatch) {
		t.Fatalf("register on single: %v", err)
	}
	if err := q.Deregister(ctx, "x"); !errors.Is(err, ErrModeMismatch) {
		t.Fatalf("deregister on single: %v", err)
	}
	if _, err := q.Consumers(ctx); !errors.Is(err, ErrModeMismatch) {
		t.Fatalf("consumers on single: %v", err)
	}
}

func TestStartPolicies(t *testing.T) {
	q := openTestQueue(t, newTestDB(t), "events", ModeBroadcast)
	ctx := context.Background()

	if _, err := q.EnqueueAll(ctx, [][]byte{[]byte("a"), []byte("b")}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := q.Register(ctx, "late", StartAtTail); err != nil {
		t.Fatalf("register late: %v", err)
	}
	if _, ok, err := q.Dequeue(ctx, "late"); err != nil || ok {
		t.Fatalf("tail-start consumer should see nothing: ok=%v err=%v", ok, err)
	}

	if err := q.Register(ctx, "replay", StartAtZero); err != nil {
		t.Fatalf("register replay: %v", err)
	}
	e, ok, err := q.Dequeue(ctx, "replay")
	if err != nil || !ok || string(e.Payload) != "a" || e.Seq != 0 {
		t.Fatalf("zero-start consumer: (%q,%d) ok=%v err=%v", e.Payload, e.Seq, ok, err)
	}
}

func TestBroadcastConsumersSeeIdenticalOrder(t *testing.T) {
	q := openTestQueue(t, newTestDB(t), "events", ModeBroadcast)
	ctx := context.Background()

	if err := q.Register(ctx, "x", StartAtTail); err != nil {
		t.Fatalf("register x: %v", err)
	}
	if err := q.Register(ctx, "y", StartAtTail); err != nil {
		t.Fatalf("register y: %v", err)
	}

	const n = 8
	for i := 0; i < n; i++ {
		if _, err := q.Enqueue(ctx, []byte(fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	// interleave the two consumers' reads
	var xs, ys []string
	for len(xs) < n || len(ys) < n {
		if len(xs) < n {
			e, ok, err := q.Dequeue(ctx, "x")
			if err != nil || !ok {
				t.Fatalf("x dequeue: ok=%v err=%v", ok, err)
			}
			xs = append(xs, string(e.Payload))
		}
		if len(ys) < n {
			for k := 0; k < 2 && len(ys) < n; k++ {
				e, ok, err := q.Dequeue(ctx, "y")
				if err != nil || !ok {
					t.Fatalf("y dequeue: ok=%v err=%v", ok, err)
				}
				ys = append(ys, string(e.Payload))
			}
		}
	}
	for i := 0; i < n; i++ {
		want := fmt.Sprintf("m%d", i)
		if xs[i] != want || ys[i] != want {
			t.Fatalf("order diverged at %d: x=%q y=%q want %q", i, xs[i], ys[i], want)
		}
	}
	if _, ok, _ := q.Dequeue(ctx, "x"); ok {
		t.Fatalf("x should be exhausted")
	}
	if _, ok, _ := q.Dequeue(ctx, "y"); ok {
		t.Fatalf("y should be exhausted")
	}
}

func TestConsumersListing(t *testing.T) {
	q := openTestQueue(t, newTestDB(t), "events", ModeBroadcast)
	ctx := context.Background()

	if err := q.Register(ctx, "b", StartAtZero); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := q.Register(ctx, "a", StartAtTail); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := q.EnqueueAll(ctx, [][]byte{[]byte("1"), []byte("2"), []byte("3")}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got, err := q.Consumers(ctx)
	if err != nil {
		t.Fatalf("consumers: %v", err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "b" {
		t.Fatalf("unexpected listing: %+v", got)
	}
	if got[0].Cursor != 0 || got[0].Lag != 3 {
		t.Fatalf("consumer a: %+v", got[0])
	}
	if got[1].Cursor != 0 || got[1].Lag != 3 {
		t.Fatalf("consumer b: %+v", got[1])
	}

	if err := q.Deregister(ctx, "a"); err != nil {
		t.Fatalf("deregister: %v", err)
	}
	got, err = q.Consumers(ctx)
	if err != nil || len(got) != 1 || got[0].Name != "b" {
		t.Fatalf("after deregister: %+v err=%v", got, err)
	}
}

func TestCursorsPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := newDBAt(dir)
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	q, err := Open(db, "events", ModeBroadcast, Options{})
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	if err := q.Register(ctx, "x", StartAtZero); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := q.EnqueueAll(ctx, [][]byte{[]byte("a"), []byte("b")}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, ok, err := q.Dequeue(ctx, "x"); err != nil || !ok {
		t.Fatalf("dequeue: ok=%v err=%v", ok, err)
	}
	_ = db.Close()

	db2, err := newDBAt(dir)
	if err != nil {
		t.Fatalf("reopen pebble: %v", err)
	}
	t.Cleanup(func() { _ = db2.Close() })
	q2, err := Open(db2, "events", ModeBroadcast, Options{})
	if err != nil {
		t.Fatalf("reopen queue: %v", err)
	}
	e, ok, err := q2.Dequeue(ctx, "x")
	if err != nil || !ok || string(e.Payload) != "b" || e.Seq != 1 {
		t.Fatalf("cursor not durable: (%q,%d) ok=%v err=%v", e.Payload, e.Seq, ok, err)
	}
}
