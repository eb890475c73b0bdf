package runtime

import (
	"context"
	"errors"
	"testing"

	cfgpkg "github.com/rzbill/flume/internal/config"
	"github.com/rzbill/flume/internal/queue"
	pebblestore "github.com/rzbill/flume/internal/storage/pebble"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := Open(Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeAlways,
		Config:  cfgpkg.Default(),
	})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestOpenQueueCachesHandles(t *testing.T) {
	rt := newTestRuntime(t)

	a, err := rt.OpenQueue("orders", queue.ModeSingle)
	if err != nil {
		t.Fatalf("open queue: %v", err)
	}
	b, err := rt.OpenQueue("orders", queue.ModeSingle)
	if err != nil {
		t.Fatalf("open queue again: %v", err)
	}
	if a != b {
		t.Fatalf("expected cached handle")
	}
	if _, err := rt.OpenQueue("orders", queue.ModeBroadcast); !errors.Is(err, queue.ErrModeMismatch) {
		t.Fatalf("expected mode mismatch, got %v", err)
	}
}

func TestQueuesCatalog(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	if _, err := rt.OpenQueue("a", queue.ModeSingle); err != nil {
		t.Fatalf("open a: %v", err)
	}
	if _, err := rt.OpenQueue("b", queue.ModeBroadcast); err != nil {
		t.Fatalf("open b: %v", err)
	}
	infos, err := rt.Queues(ctx)
	if err != nil || len(infos) != 2 {
		t.Fatalf("catalog: %d %v", len(infos), err)
	}
}

func TestCheckHealth(t *testing.T) {
	rt := newTestRuntime(t)
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestBadNameRegexRejected(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.NameRegex = "["
	if _, err := Open(Options{DataDir: t.TempDir(), Config: cfg}); err == nil {
		t.Fatalf("expected error for bad regex")
	}
}

func TestDefaultStartPolicy(t *testing.T) {
	rt := newTestRuntime(t)
	p, err := rt.DefaultStartPolicy()
	if err != nil || p != queue.StartAtTail {
		t.Fatalf("default policy: %v %v", p, err)
	}
}
