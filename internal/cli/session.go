package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tradeledger/internal/history"
	"github.com/roach88/tradeledger/internal/ledger"
	"github.com/roach88/tradeledger/internal/repository"
	"github.com/roach88/tradeledger/internal/store"
	"github.com/roach88/tradeledger/internal/store/badgerstore"
	"github.com/roach88/tradeledger/internal/store/levelstore"
	"github.com/roach88/tradeledger/internal/workflow"
)

// Ledger backends selectable with --backend.
const (
	BackendSQLite  = "sqlite"
	BackendBadger  = "badger"
	BackendLevelDB = "leveldb"
)

// session is one opened ledger and the services built over it.
type session struct {
	backend  ledger.Backend
	ledger   *repository.Ledger
	workflow *workflow.Service
	history  *history.Service
	out      *OutputFormatter
}

// openBackend opens the configured ledger backend.
func openBackend(opts *RootOptions) (ledger.Backend, error) {
	logger := opts.Logger()
	switch opts.Backend {
	case BackendSQLite:
		return store.Open(opts.Database, store.WithLogger(logger))
	case BackendBadger:
		return badgerstore.Open(opts.Database, logger)
	case BackendLevelDB:
		return levelstore.Open(opts.Database)
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
}

// withSession opens the ledger, runs fn and closes the ledger. Ledger
// faults returned by fn are written through the formatter and become
// ExitFailure; anything else is a command error.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, s *session) error) error {
	out := opts.formatter(cmd)
	logger := opts.Logger()

	backend, err := openBackend(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			logger.Error("error closing ledger", "error", closeErr)
		}
	}()
	out.VerboseLog("opened %s ledger at %s", opts.Backend, opts.Database)

	l := repository.New(backend, repository.WithLogger(logger))
	wf, err := workflow.New(l, workflow.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load workflow policy", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Identity != "" {
		ctx = ledger.WithSubmitter(ctx, opts.Identity)
	}

	s := &session{
		backend:  backend,
		ledger:   l,
		workflow: wf,
		history:  history.New(backend),
		out:      out,
	}
	if err := fn(ctx, s); err != nil {
		if _, ok := err.(*ExitError); ok {
			return err
		}
		return out.Fault(err)
	}
	return nil
}
