package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/tradeledger/internal/document"
	"github.com/roach88/tradeledger/internal/workflow"
)

// AssetCreateOptions holds flags for asset create.
type AssetCreateOptions struct {
	*RootOptions
	ID        string
	Name      string
	Hash      string
	File      string
	CreatedBy string
}

// NewAssetCommand creates the asset command group.
func NewAssetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Register and inspect assets",
	}

	cmd.AddCommand(newAssetCreateCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:   "read <id>",
		Short: "Show an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				asset, err := s.ledger.Assets().ReadAsset(ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.Render(asset, func(w io.Writer) error { return renderAsset(w, asset) })
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "find <hash>",
		Short: "Find the asset registered with a file hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				asset, err := s.ledger.Assets().FindAssetByFileHash(ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.Render(asset, func(w io.Writer) error { return renderAsset(w, asset) })
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an asset (history is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				if err := s.ledger.Assets().DeleteAsset(ctx, args[0]); err != nil {
					return err
				}
				return s.out.Success(fmt.Sprintf("Deleted asset %s", args[0]))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				assets, err := s.ledger.Assets().GetAllAssets(ctx)
				if err != nil {
					return err
				}
				return s.out.Render(assets, func(w io.Writer) error { return renderAssets(w, assets) })
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "history <id>",
		Short: "Show every recorded modification of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				txs, err := s.history.ListAssetTransactions(ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.Render(txs, func(w io.Writer) error { return renderTransactions(w, txs) })
			})
		},
	})

	return cmd
}

func newAssetCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AssetCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an asset",
		Long: `Register an asset by file hash.

With --file the hash is computed from the file contents and the name
defaults to the file's base name. An empty --id is generated (DID_...).

Examples:
  tradeledger asset create --file ./invoice.pdf
  tradeledger asset create --id doc001 --name invoice.pdf --hash 0abcdef1234567890`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssetCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "asset id (generated when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "file name")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "file content hash")
	cmd.Flags().StringVar(&opts.File, "file", "", "file to hash and register")
	cmd.Flags().StringVar(&opts.CreatedBy, "created-by", "", "creator (defaults to --identity)")
	cmd.MarkFlagsMutuallyExclusive("hash", "file")
	cmd.MarkFlagsOneRequired("hash", "file")

	return cmd
}

func runAssetCreate(opts *AssetCreateOptions, cmd *cobra.Command) error {
	req := workflow.AssetRequest{
		ID:        opts.ID,
		FileName:  opts.Name,
		FileHash:  opts.Hash,
		CreatedBy: opts.CreatedBy,
	}

	if opts.File != "" {
		f, err := os.Open(opts.File)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open file", err)
		}
		defer f.Close()
		req.FileHash, err = document.HashContent(f)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to hash file", err)
		}
		if req.FileName == "" {
			req.FileName = filepath.Base(opts.File)
		}
	}

	return withSession(cmd, opts.RootOptions, func(ctx context.Context, s *session) error {
		asset, err := s.workflow.CreateAsset(ctx, req)
		if err != nil {
			return err
		}
		return s.out.Render(asset, func(w io.Writer) error { return renderAsset(w, asset) })
	})
}
