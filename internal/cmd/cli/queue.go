package cli

import (
	"fmt"
	"time"

	"github.com/rzbill/flume/internal/queue"
	"github.com/rzbill/flume/internal/runtime"

	"github.com/spf13/cobra"
)

// NewQueueCommand constructs the `queue` command group and subcommands.
func NewQueueCommand(a *App) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:     "queue",
		Aliases: []string{"q"},
		Short:   "Queue management (create, list, stats, reclaim)",
		Long: `Queue management.

A queue is created once with a mode and keeps that mode for life:
  single      destructive dequeue, every entry consumed by exactly one reader
  broadcast   per-consumer cursors, every registered consumer sees every entry

Commands:
  create      Create a queue (or reopen an existing one, same mode)
  list        List all queues in the data directory
  stats       Show head/tail/length and consumer count for a queue
  length      Print the number of undelivered entries
  reclaim     Delete entries every consumer has passed`,
	}

	queueCmd.AddCommand(
		newQueueCreateCommand(a),
		newQueueListCommand(a),
		newQueueStatsCommand(a),
		newQueueLengthCommand(a),
		newQueueReclaimCommand(a),
	)
	return queueCmd
}

// newQueueCreateCommand constructs the `queue create` subcommand.
func newQueueCreateCommand(a *App) *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			modeStr, _ := cmd.Flags().GetString("mode")

			mode, err := queue.ParseMode(modeStr)
			if err != nil {
				return err
			}
			return withRuntime(a, func(rt *runtime.Runtime) error {
				if _, err := rt.OpenQueue(name, mode); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
				return nil
			})
		},
	}
	createCmd.Flags().String("name", "", "Queue name")
	createCmd.Flags().String("mode", "single", "Queue mode: single|broadcast")
	return createCmd
}

// newQueueListCommand constructs the `queue list` subcommand.
func newQueueListCommand(a *App) *cobra.Command {
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List queues",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(a, func(rt *runtime.Runtime) error {
				infos, err := rt.Queues(cmd.Context())
				if err != nil {
					return err
				}
				for _, info := range infos {
					out := map[string]any{
						"name":       info.Name,
						"mode":       info.Mode.String(),
						"created_at": info.CreatedAt.UTC().Format(time.RFC3339),
					}
					if err := printJSON(cmd.OutOrStdout(), out); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	return listCmd
}

// newQueueStatsCommand constructs the `queue stats` subcommand.
func newQueueStatsCommand(a *App) *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show queue statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")

			return withRuntime(a, func(rt *runtime.Runtime) error {
				q, err := a.openExisting(cmd.Context(), rt, name)
				if err != nil {
					return err
				}
				st, err := q.Stats(cmd.Context())
				if err != nil {
					return err
				}
				consumers := make([]map[string]any, 0, len(st.Consumers))
				for _, c := range st.Consumers {
					consumers = append(consumers, map[string]any{
						"name":   c.Name,
						"cursor": c.Cursor,
						"lag":    c.Lag,
					})
				}
				out := map[string]any{
					"name":         st.Name,
					"mode":         st.Mode.String(),
					"head":         st.Head,
					"tail":         st.Tail,
					"live_entries": st.LiveEntries,
					"consumers":    consumers,
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	statsCmd.Flags().String("name", "", "Queue name")
	return statsCmd
}

// newQueueLengthCommand constructs the `queue length` subcommand.
func newQueueLengthCommand(a *App) *cobra.Command {
	lengthCmd := &cobra.Command{
		Use:   "length",
		Short: "Print the number of undelivered entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")

			return withRuntime(a, func(rt *runtime.Runtime) error {
				q, err := a.openExisting(cmd.Context(), rt, name)
				if err != nil {
					return err
				}
				n, err := q.Length(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
	lengthCmd.Flags().String("name", "", "Queue name")
	return lengthCmd
}

// newQueueReclaimCommand constructs the `queue reclaim` subcommand.
func newQueueReclaimCommand(a *App) *cobra.Command {
	reclaimCmd := &cobra.Command{
		Use:   "reclaim",
		Short: "Delete entries every consumer has passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			max, _ := cmd.Flags().GetInt("max")

			return withRuntime(a, func(rt *runtime.Runtime) error {
				q, err := a.openExisting(cmd.Context(), rt, name)
				if err != nil {
					return err
				}
				var n int
				if max > 0 {
					n, err = q.ReclaimN(cmd.Context(), max)
				} else {
					n, err = q.Reclaim(cmd.Context())
				}
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reclaimed: %d\n", n)
				return nil
			})
		},
	}
	reclaimCmd.Flags().String("name", "", "Queue name")
	reclaimCmd.Flags().Int("max", 0, "Max entries to delete (0 = no limit)")
	return reclaimCmd
}
