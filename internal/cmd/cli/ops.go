package cli

import (
	"fmt"
	"time"

	"github.com/rzbill/flume/internal/runtime"

	"github.com/spf13/cobra"
)

// NewEnqueueCommand constructs the top-level `enqueue` command.
func NewEnqueueCommand(a *App) *cobra.Command {
	enqueueCmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Append an entry to a queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("queue")
			payload, err := readPayload(cmd)
			if err != nil {
				return err
			}

			return withRuntime(a, func(rt *runtime.Runtime) error {
				q, err := a.openExisting(cmd.Context(), rt, name)
				if err != nil {
					return err
				}
				seq, err := q.Enqueue(cmd.Context(), payload)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"status": "OK",
					"seq":    seq,
				})
			})
		},
	}
	enqueueCmd.Flags().StringP("queue", "q", "", "Queue name")
	enqueueCmd.Flags().String("data", "", "Payload data")
	enqueueCmd.Flags().Bool("stdin", false, "Read payload from stdin instead of --data")
	return enqueueCmd
}

// NewDequeueCommand constructs the top-level `dequeue` command.
func NewDequeueCommand(a *App) *cobra.Command {
	dequeueCmd := &cobra.Command{
		Use:   "dequeue",
		Short: "Remove and print entries at the reader's position",
		Long: `Dequeue entries. In single mode the entry is deleted and the shared
head advances; in broadcast mode only this consumer's cursor advances
and the entry stays for other consumers.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("queue")
			consumer, _ := cmd.Flags().GetString("consumer")
			count, _ := cmd.Flags().GetInt("count")
			blockMs, _ := cmd.Flags().GetInt64("block-ms")

			return withRuntime(a, func(rt *runtime.Runtime) error {
				q, err := a.openExisting(cmd.Context(), rt, name)
				if err != nil {
					return err
				}
				deadline := time.Now().Add(time.Duration(blockMs) * time.Millisecond)
				for {
					entries, err := q.DequeueN(cmd.Context(), consumer, count)
					if err != nil {
						return err
					}
					if len(entries) > 0 {
						for _, e := range entries {
							if err := printJSON(cmd.OutOrStdout(), decodedEntry(e)); err != nil {
								return err
							}
						}
						return nil
					}
					remaining := time.Until(deadline)
					if remaining <= 0 {
						return nil
					}
					q.WaitForEnqueue(remaining)
				}
			})
		},
	}
	dequeueCmd.Flags().StringP("queue", "q", "", "Queue name")
	dequeueCmd.Flags().StringP("consumer", "c", "", "Consumer name (broadcast mode only)")
	dequeueCmd.Flags().Int("count", 1, "Max entries to dequeue")
	dequeueCmd.Flags().Int64("block-ms", 0, "Wait up to this long for an entry when the queue is empty")
	return dequeueCmd
}

// NewPeekCommand constructs the top-level `peek` command.
func NewPeekCommand(a *App) *cobra.Command {
	peekCmd := &cobra.Command{
		Use:   "peek",
		Short: "Print entries at the reader's position without advancing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("queue")
			consumer, _ := cmd.Flags().GetString("consumer")
			count, _ := cmd.Flags().GetInt("count")

			return withRuntime(a, func(rt *runtime.Runtime) error {
				q, err := a.openExisting(cmd.Context(), rt, name)
				if err != nil {
					return err
				}
				entries, err := q.PeekN(cmd.Context(), consumer, count)
				if err != nil {
					return err
				}
				for _, e := range entries {
					if err := printJSON(cmd.OutOrStdout(), decodedEntry(e)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	peekCmd.Flags().StringP("queue", "q", "", "Queue name")
	peekCmd.Flags().StringP("consumer", "c", "", "Consumer name (broadcast mode only)")
	peekCmd.Flags().Int("count", 1, "Max entries to show")
	return peekCmd
}

// NewAckCommand constructs the top-level `ack` command.
func NewAckCommand(a *App) *cobra.Command {
	ackCmd := &cobra.Command{
		Use:   "ack",
		Short: "Acknowledge previously peeked entries",
		Long: `Acknowledge entries after processing them. Pairs with peek for
at-least-once delivery: peek, process, then ack the same count.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("queue")
			consumer, _ := cmd.Flags().GetString("consumer")
			count, _ := cmd.Flags().GetInt("count")

			return withRuntime(a, func(rt *runtime.Runtime) error {
				q, err := a.openExisting(cmd.Context(), rt, name)
				if err != nil {
					return err
				}
				n, err := q.Ack(cmd.Context(), consumer, count)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "acked: %d\n", n)
				return nil
			})
		},
	}
	ackCmd.Flags().StringP("queue", "q", "", "Queue name")
	ackCmd.Flags().StringP("consumer", "c", "", "Consumer name (broadcast mode only)")
	ackCmd.Flags().Int("count", 1, "Entries to acknowledge")
	return ackCmd
}
