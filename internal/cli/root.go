package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/qset/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "yaml"
	ConfigFile string

	// Config is loaded before any subcommand runs. Nil means defaults.
	Config *config.Config

	// Logger writes diagnostics to stderr. Nil means discard.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.Formats

// NewRootCommand creates the root command for the qset CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "qset",
		Short: "qset - lazy query-sets over SQL tables",
		Long: `Query SQL tables through chainable, lazily evaluated query-sets.

Models are declared in CUE. Filters use lookup expressions such as
age__gte=18 or author__name__istartswith=a, and every command can print
the statements it would run instead of running them.

Settings come from flags, then QSET_* environment variables, then
qset.yaml in the working directory (or --config).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigFile)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.Config = &cfg

			// Config supplies the format unless the flag was given
			if !cmd.Flags().Changed("format") {
				opts.Format = cfg.Format
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			if cfg.File != "" {
				opts.Logger.Debug("config loaded", "file", cfg.File)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./"+config.DefaultFile+" if present)")

	// Add subcommands
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewValuesCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// settings returns the loaded config, or the defaults when the command
// runs without the root command.
func (o *RootOptions) settings() config.Config {
	if o.Config == nil {
		return config.Defaults()
	}
	return *o.Config
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return newLogger(io.Discard, false)
	}
	return o.Logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// newLogger returns a text logger at Info, or Debug when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
