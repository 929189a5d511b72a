package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/logunifier/internal/config"
	"github.com/crimson-sun/logunifier/internal/logging"
	"github.com/crimson-sun/logunifier/pkg/logunifier"
)

func newMergeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Fetch both sources and rewrite the merged NDJSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMerge(cmd, cfg)
		},
	}
}

func runMerge(cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.Init(cmd.ErrOrStderr(), cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	logger, runID := logging.ForRun(logger)
	logger.Debug("starting merge", "version", config.Version, "settings", cfg.SettingsPath)

	ctx := cmd.Context()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	m, err := logunifier.New(ctx,
		logunifier.WithSettingsFile(cfg.SettingsPath),
		logunifier.WithForeignConfig(cfg.ForeignConfigPath),
		logunifier.WithOutput(cfg.Output.Path),
		logunifier.WithSequential(cfg.Sequential),
		logunifier.WithMetricsFile(cfg.MetricsFile),
		logunifier.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("failed to close sources", "error", err)
		}
	}()

	n, err := m.Merge(ctx)
	if err != nil {
		return err
	}

	logger.Info("merge complete", "records", n, "output", cfg.Output.Path, "run_id", runID)
	fmt.Fprintf(summaryWriter(cmd, cfg.Output.Path), "Merged %d records into %s\n", n, outputName(cfg.Output.Path))
	return nil
}

// summaryWriter keeps the summary line off stdout when records are written there.
func summaryWriter(cmd *cobra.Command, path string) io.Writer {
	if path == "-" {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

func outputName(path string) string {
	if path == "-" {
		return "stdout"
	}
	return path
}
