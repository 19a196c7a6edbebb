// Package cli wires the ember command surface: report execution,
// schema validation and the interactive result viewer.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/emberbi/ember/internal/config"
	"github.com/emberbi/ember/internal/logging"
)

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewRootCmd creates the root cobra command for the ember CLI and
// registers logging setup plus the report and schema subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var cfg *config.Config

	cmd := &cobra.Command{
		Use:     "ember",
		Short:   "Ember BI reporting CLI",
		Long:    "Ember: build, execute and shape slicer queries into charts and tables",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			setupLogging(cmd, cfg)
			return nil
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "path to ember config file (default ~/.ember/config.yaml)")

	getConfig := func() *config.Config {
		if cfg == nil {
			return config.New()
		}
		return cfg
	}
	cmd.AddCommand(newReportCmd(getConfig), newSchemaCmd())
	return cmd
}

// setupLogging configures the logger from config and the --debug flag
// and attaches it to the command context.
func setupLogging(cmd *cobra.Command, cfg *config.Config) {
	loggingCfg := cfg.Logging
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = "console"
		loggingCfg.File = ""
	}

	base := logging.NewLogger(loggingCfg.ToLoggingConfig())
	logger = logging.ComponentLogger(base, "cli")

	ctx := cmd.Context()
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.ContextWithTraceID(ctx, traceID)
	ctx = logger.WithContext(ctx)
	cmd.SetContext(ctx)
}

const rootCmdExample = `  # Run a named report from a slicer schema
  ember report run --schema politics.yaml --report party_votes --dsn "$DSN" --driver postgres

  # Ad-hoc query with group-paginated chart output
  ember report run --schema politics.yaml --metrics votes --dimensions timestamp,political_party \
      --widgets line_chart --sort votes:asc --limit 5 --output json

  # Validate a schema file
  ember schema validate politics.yaml

  # Browse a result interactively
  ember report view --schema politics.yaml --report party_votes --dsn "$DSN" --driver postgres`

// Execute runs the root command.
func Execute(ver string) {
	if err := NewRootCmd(ver).Execute(); err != nil {
		os.Exit(1)
	}
}
