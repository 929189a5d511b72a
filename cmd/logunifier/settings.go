package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/logunifier/internal/config"
)

func newSettingsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or edit the persisted settings file",
	}
	cmd.AddCommand(newSettingsShowCmd(cfg), newSettingsSetCmd(cfg))
	return cmd
}

func newSettingsShowCmd(cfg *config.Config) *cobra.Command {
	var (
		format string
		reveal bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings (file, defaults, and environment overrides)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("invalid format %q (want json or yaml)", format)
			}
			s, err := config.LoadSettings(cfg.SettingsPath)
			if err != nil {
				return err
			}
			if !reveal {
				s = s.Redacted()
			}
			data, err := config.Encode(s, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, yaml")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print credentials unmasked")
	return cmd
}

func newSettingsSetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one settings key, creating the file if needed",
		Long: fmt.Sprintf(`Set one settings key and save the file.

Valid keys: %v`, config.Keys),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := config.DefaultSettings()
			if _, err := os.Stat(cfg.SettingsPath); err == nil {
				// A present but broken file is reported rather than overwritten.
				if s, err = config.ReadSettingsFile(cfg.SettingsPath); err != nil {
					return err
				}
			}
			if err := s.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(cfg.SettingsPath, s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s in %s\n", args[0], cfg.SettingsPath)
			return nil
		},
	}
}
