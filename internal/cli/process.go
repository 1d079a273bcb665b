package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tradeledger/internal/document"
	"github.com/roach88/tradeledger/internal/repository"
	"github.com/roach88/tradeledger/internal/workflow"
)

// NewProcessCommand creates the process command group.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Manage import/export processes",
	}

	cmd.AddCommand(newProcessCreateCommand(rootOpts))
	cmd.AddCommand(processCommand(rootOpts, "read <id>", "Show a process", func(ctx context.Context, s *session, args []string) (*document.Process, error) {
		return s.ledger.Processes().ReadProcess(ctx, args[0])
	}))
	cmd.AddCommand(newProcessListCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a process (history is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				if err := s.ledger.Processes().DeleteProcess(ctx, args[0]); err != nil {
					return err
				}
				return s.out.Success(fmt.Sprintf("Deleted process %s", args[0]))
			})
		},
	})
	cmd.AddCommand(newProcessItemCommand(rootOpts))
	cmd.AddCommand(newProcessAssetCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:   "assets <id>",
		Short: "List the assets linked to a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				assets, err := s.ledger.Processes().ListAssetsByProcess(ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.Render(assets, func(w io.Writer) error { return renderAssets(w, assets) })
			})
		},
	})
	cmd.AddCommand(newProcessStatusCommand(rootOpts))
	cmd.AddCommand(processCommand(rootOpts, "stage <id> <stage>", "Move a process to a stage (Fin concludes it)", func(ctx context.Context, s *session, args []string) (*document.Process, error) {
		return s.workflow.AdvanceStage(ctx, args[0], args[1])
	}))
	cmd.AddCommand(&cobra.Command{
		Use:   "history <id>",
		Short: "Show every recorded modification of a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				txs, err := s.history.ListProcessTransactions(ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.Render(txs, func(w io.Writer) error { return renderTransactions(w, txs) })
			})
		},
	})

	return cmd
}

// processCommand builds a command whose positional arguments feed op and
// whose output is the resulting process. The number of arguments is taken
// from the placeholders in use.
func processCommand(rootOpts *RootOptions, use, short string, op func(ctx context.Context, s *session, args []string) (*document.Process, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(countPlaceholders(use)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				process, err := op(ctx, s, args)
				if err != nil {
					return err
				}
				return s.out.Render(process, func(w io.Writer) error { return renderProcess(w, process) })
			})
		},
	}
}

func countPlaceholders(use string) int {
	n := 0
	for _, r := range use {
		if r == '<' {
			n++
		}
	}
	return n
}

func newProcessCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var in repository.NewProcess

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a process",
		Long: `Register an import/export process.

An empty --id is generated (PID_...). An empty --created-by falls back to
--identity.

Example:
  tradeledger process create --id proc001 --name "Aircraft parts import" \
    --importer Embraer --exporter Exporter --currency USD --stage Req`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				process, err := s.workflow.CreateProcess(ctx, in)
				if err != nil {
					return err
				}
				return s.out.Render(process, func(w io.Writer) error { return renderProcess(w, process) })
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.ID, "id", "", "process id (generated when empty)")
	f.StringVar(&in.Name, "name", "", "process name")
	f.StringVar(&in.Description, "description", "", "description")
	f.StringVar(&in.Importer, "importer", "", "importer")
	f.StringVar(&in.Exporter, "exporter", "", "exporter")
	f.StringVar(&in.Currency, "currency", "", "currency code")
	f.StringVar(&in.Origin, "origin", "", "origin address")
	f.StringVar(&in.Destination, "destination", "", "destination address")
	f.StringVar(&in.Stage, "stage", "", "initial stage")
	f.StringVar(&in.CreatedBy, "created-by", "", "creator (defaults to --identity)")

	return cmd
}

func newProcessListCommand(rootOpts *RootOptions) *cobra.Command {
	var stage string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				var (
					processes []*document.Process
					err       error
				)
				if stage != "" {
					processes, err = s.ledger.Processes().ListProcessesByStage(ctx, stage)
				} else {
					processes, err = s.ledger.Processes().GetAllProcesses(ctx)
				}
				if err != nil {
					return err
				}
				return s.out.Render(processes, func(w io.Writer) error { return renderProcesses(w, processes) })
			})
		},
	}

	cmd.Flags().StringVar(&stage, "stage", "", "only processes in this stage")

	return cmd
}

func newProcessItemCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Add or remove line items",
	}

	var in repository.NewItem
	add := processCommand(rootOpts, "add <process-id>", "Add a line item", func(ctx context.Context, s *session, args []string) (*document.Process, error) {
		return s.workflow.AddItem(ctx, args[0], in)
	})
	f := add.Flags()
	f.StringVar(&in.ItemID, "item-id", "", "item id")
	f.StringVar(&in.CFF, "cff", "", "tariff code")
	f.StringVar(&in.PartNo, "part-no", "", "part number")
	f.StringVar(&in.Description, "description", "", "description")
	f.StringVar(&in.CatMat, "cat-mat", "", "material catalogue code")
	f.StringVar(&in.MesUnit, "unit", "", "unit of measure")
	f.Int64Var(&in.Quantity, "quantity", 0, "quantity")
	f.Float64Var(&in.UnitValue, "unit-value", 0, "value per unit")
	_ = add.MarkFlagRequired("item-id")

	cmd.AddCommand(add)
	cmd.AddCommand(processCommand(rootOpts, "remove <process-id> <item-id>", "Remove a line item", func(ctx context.Context, s *session, args []string) (*document.Process, error) {
		return s.ledger.Processes().RemoveItemFromProcess(ctx, args[0], args[1])
	}))

	return cmd
}

func newProcessAssetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Link or unlink assets",
	}

	cmd.AddCommand(processCommand(rootOpts, "add <process-id> <asset-id>", "Link an asset", func(ctx context.Context, s *session, args []string) (*document.Process, error) {
		return s.ledger.Processes().AddAssetToProcess(ctx, args[0], args[1])
	}))
	cmd.AddCommand(processCommand(rootOpts, "remove <process-id> <asset-id>", "Unlink an asset", func(ctx context.Context, s *session, args []string) (*document.Process, error) {
		return s.ledger.Processes().RemoveAssetFromProcess(ctx, args[0], args[1])
	}))

	return cmd
}

func newProcessStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var change workflow.StatusChange

	cmd := processCommand(rootOpts, "status <id>", "Set the approval status", func(ctx context.Context, s *session, args []string) (*document.Process, error) {
		return s.workflow.UpdateStatus(ctx, args[0], change)
	})
	cmd.Long = `Set the approval status of a process.

A "rejected" status requires --observations; other statuses discard them.`

	f := cmd.Flags()
	f.StringVar(&change.NewStatus, "status", "", "new status")
	f.StringVar(&change.ApprovedBy, "approved-by", "", "approver")
	f.StringVar(&change.Observations, "observations", "", "observations (required when rejecting)")

	return cmd
}
