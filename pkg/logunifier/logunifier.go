package logunifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/crimson-sun/logunifier/internal/config"
	"github.com/crimson-sun/logunifier/internal/config/foreign"
	"github.com/crimson-sun/logunifier/internal/connector"
	"github.com/crimson-sun/logunifier/internal/metrics"
	"github.com/crimson-sun/logunifier/internal/output"
	"github.com/crimson-sun/logunifier/internal/output/file"
	"github.com/crimson-sun/logunifier/internal/output/stdout"
	"github.com/crimson-sun/logunifier/internal/pipeline"

	// Register source connectors.
	_ "github.com/crimson-sun/logunifier/internal/connector/bigquery"
	_ "github.com/crimson-sun/logunifier/internal/connector/s3"
)

// Settings describes where logs live and how to authenticate.
type Settings = config.Settings

// ErrConfigMissing is returned when no usable settings can be found.
var ErrConfigMissing = config.ErrConfigMissing

// DefaultSettings returns the settings used for keys a file leaves unset.
func DefaultSettings() Settings { return config.DefaultSettings() }

// sourceOrder fixes output order: S3 records, then BigQuery rows.
var sourceOrder = []string{"s3", "bigquery"}

// Merger merges both log sources into one NDJSON output.
type Merger struct {
	settings    Settings
	pipeline    *pipeline.Pipeline
	metrics     *metrics.Metrics
	metricsFile string
	logger      *slog.Logger
}

// New resolves settings, fills an empty bucket or region from the foreign
// config, validates the result, and creates the source clients.
func New(ctx context.Context, opts ...Option) (*Merger, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.outputPath == "" {
		return nil, errors.New("logunifier: output path must not be empty")
	}

	s, err := config.Resolve(o.settings, o.settingsPath)
	if err != nil {
		return nil, fmt.Errorf("logunifier: %w", err)
	}
	if o.foreignConfigPath != "" {
		var res foreign.Result
		s, res = foreign.ApplyFile(s, o.foreignConfigPath)
		logForeign(o.logger, o.foreignConfigPath, res)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("logunifier: invalid settings: %w", err)
	}

	var m *metrics.Metrics
	if o.metricsFile != "" {
		m = metrics.New()
	}

	sources := o.sources
	if sources == nil {
		if sources, err = buildSources(ctx, s, m); err != nil {
			return nil, fmt.Errorf("logunifier: %w", err)
		}
	}

	p := pipeline.New(sources, openOutput(o.outputPath),
		pipeline.WithSequential(o.sequential),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(o.logger),
	)
	return &Merger{
		settings:    s,
		pipeline:    p,
		metrics:     m,
		metricsFile: o.metricsFile,
		logger:      o.logger,
	}, nil
}

// Settings returns the effective settings, secrets masked.
func (m *Merger) Settings() Settings {
	return m.settings.Redacted()
}

// Merge fetches every record from both sources and rewrites the output.
// It returns the number of records written. On error the output is unchanged.
func (m *Merger) Merge(ctx context.Context) (int, error) {
	n, err := m.pipeline.Run(ctx)
	if werr := m.metrics.WriteTextfile(m.metricsFile); werr != nil {
		m.logger.Warn("failed to write metrics", "path", m.metricsFile, "error", werr)
	}
	return n, err
}

// Close releases the source clients.
func (m *Merger) Close() error {
	return m.pipeline.Close()
}

func buildSources(ctx context.Context, s Settings, m *metrics.Metrics) ([]connector.Connector, error) {
	sources := make([]connector.Connector, 0, len(sourceOrder))
	for _, name := range sourceOrder {
		ctor, err := connector.Get(name)
		if err == nil {
			var src connector.Connector
			if src, err = ctor(ctx, s, m); err == nil {
				sources = append(sources, src)
				continue
			}
		}
		for _, src := range sources {
			if c, ok := src.(io.Closer); ok {
				c.Close()
			}
		}
		return nil, err
	}
	return sources, nil
}

func openOutput(path string) pipeline.OpenFunc {
	return func() (output.Output, error) {
		if path == "-" {
			return stdout.New(), nil
		}
		return file.New(path)
	}
}

func logForeign(logger *slog.Logger, path string, res foreign.Result) {
	switch {
	case res.Err != nil:
		logger.Warn("ignoring unreadable foreign config", "path", path, "error", res.Err)
	case res.Applied():
		logger.Info("applied foreign config defaults", "path", path, "shape", res.Shape,
			"bucket", res.BucketApplied, "region", res.RegionApplied)
	case res.Shape != "":
		logger.Debug("foreign config matched but explicit settings kept", "path", path, "shape", res.Shape)
	default:
		if _, err := os.Stat(path); err == nil {
			logger.Debug("foreign config has no known storage shape", "path", path)
		}
	}
}
