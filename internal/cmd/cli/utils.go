package cli

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"unicode/utf8"

	"github.com/rzbill/flume/internal/queue"
	"github.com/rzbill/flume/internal/runtime"

	"github.com/spf13/cobra"
)

// withRuntime opens the data directory, runs fn, and always closes the
// runtime so the pebble directory lock is released for the next command.
func withRuntime(a *App, fn func(rt *runtime.Runtime) error) error {
	rt, err := a.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	return fn(rt)
}

// decodedEntry flattens an entry for display with id as hex and one of
// payload_json, payload_text, or payload_b64.
func decodedEntry(e queue.Entry) map[string]any {
	out := map[string]any{
		"seq":            e.Seq,
		"id":             e.ID.String(),
		"enqueued_at_ms": e.ID.TimeMs(),
	}
	p := e.Payload
	if len(p) > 0 && (p[0] == '{' || p[0] == '[') {
		var v any
		if json.Unmarshal(p, &v) == nil {
			out["payload_json"] = v
			return out
		}
	}
	if utf8.Valid(p) {
		out["payload_text"] = string(p)
		return out
	}
	out["payload_b64"] = base64.StdEncoding.EncodeToString(p)
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readPayload resolves the entry body from --data, or from stdin when
// --stdin is set.
func readPayload(cmd *cobra.Command) ([]byte, error) {
	fromStdin, _ := cmd.Flags().GetBool("stdin")
	if fromStdin {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, _ := cmd.Flags().GetString("data")
	return []byte(data), nil
}
