package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/smartfin/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Flag overrides for the environment configuration.
	Backend   string
	DB        string
	BadgerDir string
	TxFee     int64

	// Config is resolved before any subcommand runs.
	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the smartfin CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "smartfin",
		Short: "smartfin - financial contract combinators",
		Long: `Deploy and evaluate financial contracts built from combinators.

Contracts are written in CUE or in prefix notation (and one give one),
compiled to an integer definition, and evaluated event by event against
a durable store. Every event is journaled and can be replayed.

Settings come from SMARTFIN_* environment variables; the global flags
below override them.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			// Cobra checks required flags after this hook; do it here so a
			// missing flag is reported as a usage error.
			if err := cmd.ValidateRequiredFlags(); err != nil {
				return WrapExitError(ExitCommandError, "invalid flags", err)
			}
			return opts.resolve(cmd)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "state backend (sqlite|badger|memory), overrides SMARTFIN_BACKEND")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite database, overrides SMARTFIN_DB")
	cmd.PersistentFlags().StringVar(&opts.BadgerDir, "badger-dir", "", "Badger directory, overrides SMARTFIN_BADGER_DIR")
	cmd.PersistentFlags().Int64Var(&opts.TxFee, "tx-fee", 0, "withdrawal fee in fee mode, overrides SMARTFIN_TX_FEE")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDeployCommand(opts))
	for _, spec := range opCommands() {
		cmd.AddCommand(newOpCommand(opts, spec))
	}
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	for _, sub := range cmd.Commands() {
		if sub.Args != nil {
			sub.Args = usageArgs(sub.Args)
		}
	}
	return cmd
}

// usageArgs reports positional argument errors as command errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

// resolve loads the environment configuration, applies flag overrides
// and builds the logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = o.Backend
	}
	if flags.Changed("db") {
		cfg.DB = o.DB
	}
	if flags.Changed("badger-dir") {
		cfg.BadgerDir = o.BadgerDir
	}
	if flags.Changed("tx-fee") {
		cfg.TxFee = o.TxFee
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.Config = cfg

	level, _ := cfg.Level()
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// logger returns the resolved logger, or one writing warnings to stderr
// when a command runs without the root's pre-run hook.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
