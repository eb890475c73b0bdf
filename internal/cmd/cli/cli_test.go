package cli

import (
	"bytes"
	"strings"
	"testing"

	logpkg "github.com/rzbill/flume/pkg/log"
	"github.com/spf13/cobra"
)

func testApp(t *testing.T) *App {
	t.Helper()
	return &App{
		DataDir: t.TempDir(),
		Fsync:   "never",
		Logger:  logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel)),
	}
}

func run(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return buf.String()
}

func TestQueueCreateAndList(t *testing.T) {
	app := testApp(t)

	out := run(t, NewQueueCommand(app), "create", "--name", "orders", "--mode", "single")
	if !strings.Contains(out, "OK") {
		t.Fatalf("expected OK, got: %s", out)
	}

	out = run(t, NewQueueCommand(app), "list")
	if !strings.Contains(out, "orders") || !strings.Contains(out, "single") {
		t.Fatalf("expected orders in listing, got: %s", out)
	}
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	app := testApp(t)

	run(t, NewQueueCommand(app), "create", "--name", "jobs", "--mode", "single")
	run(t, NewEnqueueCommand(app), "--queue", "jobs", "--data", "hello")

	out := run(t, NewDequeueCommand(app), "--queue", "jobs")
	if !strings.Contains(out, "hello") {
		t.Fatalf("expected payload in output, got: %s", out)
	}

	// Queue drained; a second dequeue prints nothing.
	out = run(t, NewDequeueCommand(app), "--queue", "jobs")
	if strings.TrimSpace(out) != "" {
		t.Fatalf("expected empty output, got: %s", out)
	}
}

func TestEnqueueFromStdin(t *testing.T) {
	app := testApp(t)

	run(t, NewQueueCommand(app), "create", "--name", "jobs", "--mode", "single")

	cmd := NewEnqueueCommand(app)
	cmd.SetIn(strings.NewReader("piped payload"))
	run(t, cmd, "--queue", "jobs", "--stdin")

	out := run(t, NewPeekCommand(app), "--queue", "jobs")
	if !strings.Contains(out, "piped payload") {
		t.Fatalf("expected piped payload, got: %s", out)
	}
}

func TestBroadcastConsumerFlow(t *testing.T) {
	app := testApp(t)

	run(t, NewQueueCommand(app), "create", "--name", "events", "--mode", "broadcast")
	run(t, NewConsumerCommand(app), "register", "--queue", "events", "--name", "auditor", "--start", "zero")
	run(t, NewEnqueueCommand(app), "--queue", "events", "--data", "e1")

	out := run(t, NewPeekCommand(app), "--queue", "events", "--consumer", "auditor")
	if !strings.Contains(out, "e1") {
		t.Fatalf("expected entry for auditor, got: %s", out)
	}

	out = run(t, NewAckCommand(app), "--queue", "events", "--consumer", "auditor")
	if !strings.Contains(out, "acked: 1") {
		t.Fatalf("expected one ack, got: %s", out)
	}

	out = run(t, NewConsumerCommand(app), "list", "--queue", "events")
	if !strings.Contains(out, "auditor") {
		t.Fatalf("expected auditor in listing, got: %s", out)
	}
}

func TestQueueStatsOutput(t *testing.T) {
	app := testApp(t)

	run(t, NewQueueCommand(app), "create", "--name", "jobs", "--mode", "single")
	run(t, NewEnqueueCommand(app), "--queue", "jobs", "--data", "a")
	run(t, NewEnqueueCommand(app), "--queue", "jobs", "--data", "b")

	out := run(t, NewQueueCommand(app), "stats", "--name", "jobs")
	if !strings.Contains(out, `"live_entries": 2`) {
		t.Fatalf("expected two live entries, got: %s", out)
	}

	out = run(t, NewQueueCommand(app), "length", "--name", "jobs")
	if strings.TrimSpace(out) != "2" {
		t.Fatalf("expected length 2, got: %s", out)
	}
}

func TestUnknownQueueFails(t *testing.T) {
	app := testApp(t)

	cmd := NewEnqueueCommand(app)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--queue", "missing", "--data", "x"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for unknown queue, got nil")
	}
}

func TestInvalidFsyncFlagFails(t *testing.T) {
	app := testApp(t)
	app.Fsync = "sometimes"

	cmd := NewQueueCommand(app)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"create", "--name", "jobs", "--mode", "single"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for invalid fsync mode, got nil")
	}
}
