package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/tabproof/internal/config"
	"github.com/KaramelBytes/tabproof/internal/logging"
)

var (
	// Global flags
	cfgFile       string
	debug         bool
	flagLogLevel  string
	flagLogFormat string

	// Loaded configuration
	cfg *cfgpkg.Global

	logger = logging.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "tabproof",
	Short: "tabproof: proofread tabular data for quality problems",
	Long: `tabproof runs a library of data-quality checks (types, missing values, suspicious
numbers, duplicates, Benford's law, Nelson control-chart rules) over CSV, TSV, XLSX
files or PostgreSQL query results, and renders the findings as a report grid.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, format := "warn", "console"
		if cfg != nil {
			level, format = cfg.LogLevel, cfg.LogFormat
		}
		f := cmd.Flags()
		if f.Changed("log-level") {
			level = flagLogLevel
		}
		if f.Changed("log-format") {
			format = flagLogFormat
		}
		if debug {
			level = "debug"
		}
		l, err := logging.New(level, format)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tabproof/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: console|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

// settings returns the loaded config or built-in defaults.
func settings() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return &cfgpkg.Global{
		MaxItems:      5,
		FailurePolicy: "partial",
		Format:        "terminal",
		LogLevel:      "warn",
		LogFormat:     "console",
	}
}

// logContext attaches the command name to log lines.
func logContext(cmd *cobra.Command) *zap.Logger {
	return logger.With(zap.String("cmd", cmd.Name()))
}
