package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect ledger history",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Show the history of every live key",
		Long: `Show the history of every live key, keys in order and each key's
entries oldest first. Keys whose latest modification is a delete are not
listed; use "asset history" or "process history" for those.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				txs, err := s.history.ListAllTransactions(ctx)
				if err != nil {
					return err
				}
				return s.out.Render(txs, func(w io.Writer) error { return renderTransactions(w, txs) })
			})
		},
	})

	return cmd
}
