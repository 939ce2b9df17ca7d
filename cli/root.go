package cli

import (
	"fmt"
	"ident_index_app_go/config"
	"ident_index_app_go/db"
	"ident_index_app_go/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RootOptions holds global flags and the shared handles for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config, DB and Logger are filled lazily; tests inject them directly.
	Config *config.Config
	DB     *gorm.DB
	Logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the operator CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iisctl",
		Short: "Identification index operator tool",
		Long:  "Operator commands for the identification index: schema, reference data, expungements and the outbox.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewExpungeCommand(opts))
	cmd.AddCommand(NewSyncIDsCommand(opts))
	cmd.AddCommand(NewRelayCommand(opts))
	cmd.AddCommand(NewClassifyCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// config returns the loaded configuration, reading the environment once
func (o *RootOptions) config() *config.Config {
	if o.Config == nil {
		o.Config = config.Load()
	}
	return o.Config
}

// logger returns the command logger. Verbose switches to debug output.
func (o *RootOptions) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	cfg := o.config()
	level := cfg.LogLevel
	if o.Verbose {
		level = "debug"
	}
	l, err := logger.New(level, "console", cfg.ServiceName)
	if err != nil {
		l = zap.NewNop()
	}
	o.Logger = l
	return l
}

// store opens the configured database on first use
func (o *RootOptions) store() (*gorm.DB, error) {
	if o.DB != nil {
		return o.DB, nil
	}
	cfg := o.config()
	conn, err := db.Open(db.Options{
		Driver:      cfg.DBDriver,
		Path:        cfg.DBPath,
		DatabaseURL: cfg.DatabaseURL,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	o.DB = conn
	return conn, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
