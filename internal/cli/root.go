package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootOptions holds global settings for all commands. Every field can be
// set by flag, by TRADELEDGER_* environment variable, or from the config file.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Database   string // SQLite file or badger/leveldb directory
	Backend    string // "sqlite" | "badger" | "leveldb"
	Identity   string // submitter recorded in history

	config *viper.Viper
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidBackends defines the allowed ledger backends.
var ValidBackends = []string{BackendSQLite, BackendBadger, BackendLevelDB}

// EnvPrefix prefixes environment variable overrides, e.g. TRADELEDGER_DB.
const EnvPrefix = "TRADELEDGER"

// NewRootCommand creates the root command for the tradeledger CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{config: viper.New()}

	cmd := &cobra.Command{
		Use:   "tradeledger",
		Short: "tradeledger - import/export process ledger",
		Long: `A permissioned ledger of trade documents.

Assets (hashed files) and processes (import/export workflows with line items,
linked assets and an approval status) are stored in a versioned key-value
ledger that keeps the full history of every key.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (yaml, toml or json)")
	flags.StringVar(&opts.Database, "db", "tradeledger.db", "ledger database path")
	flags.StringVar(&opts.Backend, "backend", BackendSQLite, "ledger backend (sqlite|badger|leveldb)")
	flags.StringVar(&opts.Identity, "identity", "", "submitter identity recorded in history")

	for _, key := range []string{"verbose", "format", "db", "backend", "identity"} {
		_ = opts.config.BindPFlag(key, flags.Lookup(key))
	}
	opts.config.SetEnvPrefix(EnvPrefix)
	opts.config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.config.AutomaticEnv()

	// Add subcommands
	cmd.AddCommand(NewAssetCommand(opts))
	cmd.AddCommand(NewProcessCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewHashCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// load resolves settings from flags, environment and config file, in that
// order of precedence, and configures logging.
func (o *RootOptions) load(cmd *cobra.Command) error {
	if o.ConfigFile != "" {
		o.config.SetConfigFile(o.ConfigFile)
		if err := o.config.ReadInConfig(); err != nil {
			return WrapExitError(ExitCommandError, "failed to read config", err)
		}
	}

	o.Verbose = o.config.GetBool("verbose")
	o.Format = o.config.GetString("format")
	o.Database = o.config.GetString("db")
	o.Backend = o.config.GetString("backend")
	o.Identity = o.config.GetString("identity")

	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	if !slices.Contains(ValidBackends, o.Backend) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid backend %q: must be one of %v", o.Backend, ValidBackends))
	}

	logLevel := slog.LevelInfo
	if o.Verbose {
		logLevel = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	return nil
}

// Logger returns the logger configured for the running command.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
