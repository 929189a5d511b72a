package logunifier

import (
	"log/slog"

	"github.com/crimson-sun/logunifier/internal/connector"
)

type options struct {
	settings          *Settings
	settingsPath      string
	foreignConfigPath string
	outputPath        string
	sequential        bool
	metricsFile       string
	logger            *slog.Logger

	// sources replaces the registered connectors. Tests only.
	sources []connector.Connector
}

// Option configures a Merger.
type Option func(*options)

// WithSettings uses s as is. The settings file is not read.
func WithSettings(s Settings) Option {
	return func(o *options) {
		o.settings = &s
	}
}

// WithSettingsFile sets the settings file to load. Default: "settings.json".
func WithSettingsFile(path string) Option {
	return func(o *options) {
		o.settingsPath = path
	}
}

// WithForeignConfig sets the mobile SDK configuration file consulted for a
// bucket and region when the settings leave them empty. Default:
// "amplifyconfiguration.json". An empty path disables the lookup.
func WithForeignConfig(path string) Option {
	return func(o *options) {
		o.foreignConfigPath = path
	}
}

// WithOutput sets the merged output file. "-" writes to stdout.
// Default: "merged_logs.jsonl".
func WithOutput(path string) Option {
	return func(o *options) {
		o.outputPath = path
	}
}

// WithSequential fetches S3 and BigQuery one after another.
func WithSequential(seq bool) Option {
	return func(o *options) {
		o.sequential = seq
	}
}

// WithMetricsFile writes Prometheus metrics in text exposition format to
// path after every merge. Empty disables metrics.
func WithMetricsFile(path string) Option {
	return func(o *options) {
		o.metricsFile = path
	}
}

// WithLogger sets the logger for merge diagnostics. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func defaultOptions() options {
	return options{
		settingsPath:      "settings.json",
		foreignConfigPath: "amplifyconfiguration.json",
		outputPath:        "merged_logs.jsonl",
	}
}
