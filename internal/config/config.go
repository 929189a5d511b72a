package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Version is the logunifier release version.
const Version = "0.4.1"

// Config holds run options for a merge. Source credentials and locations
// live in Settings, which is persisted separately.
type Config struct {
	SettingsPath      string
	ForeignConfigPath string
	Output            OutputConfig
	Log               LogConfig
	Timeout           time.Duration // 0 = no overall deadline
	Sequential        bool          // fetch sources one after another
	MetricsFile       string        // prometheus textfile; empty disables
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Path string // "-" writes to stdout
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "text" or "json"
}

// Load reads run options from environment variables with sensible defaults.
func Load() Config {
	return Config{
		SettingsPath:      getenv("LOGUNIFIER_SETTINGS", "settings.json"),
		ForeignConfigPath: getenv("LOGUNIFIER_FOREIGN_CONFIG", "amplifyconfiguration.json"),
		Output: OutputConfig{
			Path: getenv("LOGUNIFIER_OUTPUT", "merged_logs.jsonl"),
		},
		Log: LogConfig{
			Level:  getenv("LOGUNIFIER_LOG_LEVEL", "info"),
			Format: getenv("LOGUNIFIER_LOG_FORMAT", "text"),
		},
		Timeout:     getenvDuration("LOGUNIFIER_TIMEOUT", 0),
		Sequential:  getenvBool("LOGUNIFIER_SEQUENTIAL", false),
		MetricsFile: os.Getenv("LOGUNIFIER_METRICS_FILE"),
	}
}

// Validate checks run options and returns every problem found.
func (c Config) Validate() error {
	var errs []error
	if c.SettingsPath == "" {
		errs = append(errs, errors.New("settings path must not be empty"))
	}
	if c.Output.Path == "" {
		errs = append(errs, errors.New("output path must not be empty"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q (want text or json)", c.Log.Format))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be >= 0, got %v", c.Timeout))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
