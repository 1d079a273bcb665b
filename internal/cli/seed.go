package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the sample asset and process",
		Long: `Write the sample asset doc001 and process proc001.

Documents that already exist are left untouched, so seed can be run
repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				result, err := s.workflow.Seed(ctx)
				if err != nil {
					return err
				}
				return s.out.Render(result, func(w io.Writer) error {
					if len(result.Created) > 0 {
						fmt.Fprintf(w, "Created: %s\n", strings.Join(result.Created, ", "))
					}
					if len(result.Skipped) > 0 {
						fmt.Fprintf(w, "Skipped (already present): %s\n", strings.Join(result.Skipped, ", "))
					}
					return nil
				})
			})
		},
	}
}
