package cli

import (
	"fmt"

	"github.com/rzbill/flume/internal/queue"
	"github.com/rzbill/flume/internal/runtime"

	"github.com/spf13/cobra"
)

// NewConsumerCommand constructs the `consumer` command group and subcommands.
func NewConsumerCommand(a *App) *cobra.Command {
	consumerCmd := &cobra.Command{
		Use:   "consumer",
		Short: "Broadcast consumer management",
		Long: `Broadcast consumer management.

A broadcast queue delivers every entry to every registered consumer.
Each consumer owns a durable cursor; entries are reclaimed only after
every consumer's cursor has passed them, so a deregistered consumer
stops holding entries back.`,
	}

	consumerCmd.AddCommand(
		newConsumerRegisterCommand(a),
		newConsumerDeregisterCommand(a),
		newConsumerListCommand(a),
	)
	return consumerCmd
}

// newConsumerRegisterCommand constructs the `consumer register` subcommand.
func newConsumerRegisterCommand(a *App) *cobra.Command {
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register a consumer on a broadcast queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("queue")
			consumer, _ := cmd.Flags().GetString("name")
			startStr, _ := cmd.Flags().GetString("start")

			return withRuntime(a, func(rt *runtime.Runtime) error {
				q, err := a.openExisting(cmd.Context(), rt, name)
				if err != nil {
					return err
				}
				start, err := queue.ParseStartPolicy(startStr)
				if err != nil {
					return err
				}
				if startStr == "" {
					if start, err = rt.DefaultStartPolicy(); err != nil {
						return err
					}
				}
				if err := q.Register(cmd.Context(), consumer, start); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
				return nil
			})
		},
	}
	registerCmd.Flags().StringP("queue", "q", "", "Queue name")
	registerCmd.Flags().String("name", "", "Consumer name")
	registerCmd.Flags().String("start", "", "Start position: tail (new entries only) or zero (full replay)")
	return registerCmd
}

// newConsumerDeregisterCommand constructs the `consumer deregister` subcommand.
func newConsumerDeregisterCommand(a *App) *cobra.Command {
	deregisterCmd := &cobra.Command{
		Use:   "deregister",
		Short: "Remove a consumer and release the entries its cursor held",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("queue")
			consumer, _ := cmd.Flags().GetString("name")

			return withRuntime(a, func(rt *runtime.Runtime) error {
				q, err := a.openExisting(cmd.Context(), rt, name)
				if err != nil {
					return err
				}
				if err := q.Deregister(cmd.Context(), consumer); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
				return nil
			})
		},
	}
	deregisterCmd.Flags().StringP("queue", "q", "", "Queue name")
	deregisterCmd.Flags().String("name", "", "Consumer name")
	return deregisterCmd
}

// newConsumerListCommand constructs the `consumer list` subcommand.
func newConsumerListCommand(a *App) *cobra.Command {
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List consumers with cursor position and lag",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("queue")

			return withRuntime(a, func(rt *runtime.Runtime) error {
				q, err := a.openExisting(cmd.Context(), rt, name)
				if err != nil {
					return err
				}
				consumers, err := q.Consumers(cmd.Context())
				if err != nil {
					return err
				}
				for _, c := range consumers {
					out := map[string]any{
						"name":   c.Name,
						"cursor": c.Cursor,
						"lag":    c.Lag,
					}
					if err := printJSON(cmd.OutOrStdout(), out); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	listCmd.Flags().StringP("queue", "q", "", "Queue name")
	return listCmd
}
