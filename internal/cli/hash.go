package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tradeledger/internal/document"
)

// HashResult is the output of the hash command.
type HashResult struct {
	File string `json:"file"`
	Hash string `json:"hash"`
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>",
		Short: "Print the content hash an asset would be registered with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open file", err)
			}
			defer f.Close()

			hash, err := document.HashContent(f)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to hash file", err)
			}

			result := HashResult{File: args[0], Hash: hash}
			return rootOpts.formatter(cmd).Render(result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s  %s\n", hash, args[0])
				return err
			})
		},
	}
}
