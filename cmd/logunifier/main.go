package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/logunifier/internal/config"
)

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if err := newRootCmd(&cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "logunifier",
		Short: "Merge S3 log uploads and Crashlytics BigQuery exports into one NDJSON file",
		Long: `logunifier downloads every JSON log file under an S3 prefix and every row of a
Crashlytics BigQuery export table, and writes them as newline-delimited JSON:
S3 records first, then warehouse rows.

Running without a subcommand performs a merge.`,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMerge(cmd, cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfg.SettingsPath, "settings", "s", cfg.SettingsPath, "settings file (JSON or YAML)")
	flags.StringVar(&cfg.ForeignConfigPath, "foreign-config", cfg.ForeignConfigPath, "mobile SDK config to mine for bucket/region defaults")
	flags.StringVarP(&cfg.Output.Path, "output", "o", cfg.Output.Path, `output NDJSON file ("-" for stdout)`)
	flags.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	flags.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: text, json")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall deadline for a merge (0 = none)")
	flags.BoolVar(&cfg.Sequential, "sequential", cfg.Sequential, "fetch sources one after another")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "write prometheus metrics to this textfile after a merge")

	root.AddCommand(newMergeCmd(cfg), newSettingsCmd(cfg))
	return root
}
