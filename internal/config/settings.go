package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrConfigMissing is returned when no usable settings can be found.
var ErrConfigMissing = errors.New("no usable configuration")

const envPrefix = "LOGUNIFIER"

// Settings is the persisted flat key-value document describing where logs
// live and how to authenticate. Empty credential fields mean "use ambient
// credentials".
type Settings struct {
	AWSAccessKey      string `mapstructure:"aws_access_key" json:"aws_access_key" yaml:"aws_access_key"`
	AWSSecretKey      string `mapstructure:"aws_secret_key" json:"aws_secret_key" yaml:"aws_secret_key"`
	AWSRegion         string `mapstructure:"aws_region" json:"aws_region,omitempty" yaml:"aws_region,omitempty"`
	S3Bucket          string `mapstructure:"s3_bucket" json:"s3_bucket" yaml:"s3_bucket"`
	S3Prefix          string `mapstructure:"s3_prefix" json:"s3_prefix" yaml:"s3_prefix"`
	S3Endpoint        string `mapstructure:"s3_endpoint" json:"s3_endpoint,omitempty" yaml:"s3_endpoint,omitempty"`
	BigQueryDataset   string `mapstructure:"bigquery_dataset" json:"bigquery_dataset" yaml:"bigquery_dataset"`
	CrashlyticsTable  string `mapstructure:"crashlytics_table" json:"crashlytics_table" yaml:"crashlytics_table"`
	GoogleCredentials string `mapstructure:"google_credentials" json:"google_credentials" yaml:"google_credentials"`
}

// Keys lists every settings key in display order.
var Keys = []string{
	"aws_access_key",
	"aws_secret_key",
	"aws_region",
	"s3_bucket",
	"s3_prefix",
	"s3_endpoint",
	"bigquery_dataset",
	"crashlytics_table",
	"google_credentials",
}

// DefaultSettings returns the settings used for keys the file leaves unset.
func DefaultSettings() Settings {
	return Settings{
		S3Prefix:         "logs/",
		CrashlyticsTable: "firebase_crashlytics",
	}
}

// field returns a pointer to the field backing key, or nil for unknown keys.
func (s *Settings) field(key string) *string {
	switch key {
	case "aws_access_key":
		return &s.AWSAccessKey
	case "aws_secret_key":
		return &s.AWSSecretKey
	case "aws_region":
		return &s.AWSRegion
	case "s3_bucket":
		return &s.S3Bucket
	case "s3_prefix":
		return &s.S3Prefix
	case "s3_endpoint":
		return &s.S3Endpoint
	case "bigquery_dataset":
		return &s.BigQueryDataset
	case "crashlytics_table":
		return &s.CrashlyticsTable
	case "google_credentials":
		return &s.GoogleCredentials
	}
	return nil
}

// Get returns the value stored under key.
func (s Settings) Get(key string) (string, bool) {
	p := s.field(key)
	if p == nil {
		return "", false
	}
	return *p, true
}

// Set stores value under key. Unknown keys are rejected.
func (s *Settings) Set(key, value string) error {
	p := s.field(key)
	if p == nil {
		return fmt.Errorf("unknown settings key %q (valid: %s)", key, strings.Join(Keys, ", "))
	}
	*p = value
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (s Settings) Redacted() Settings {
	if s.AWSSecretKey != "" {
		s.AWSSecretKey = "********"
	}
	switch n := len(s.AWSAccessKey); {
	case n > 4:
		s.AWSAccessKey = strings.Repeat("*", n-4) + s.AWSAccessKey[n-4:]
	case n > 0:
		s.AWSAccessKey = strings.Repeat("*", n)
	}
	return s
}

// Validate checks that every location needed for a fetch is present.
// Credential fields are optional.
func (s Settings) Validate() error {
	var errs []error
	required := []struct {
		key, val string
	}{
		{"s3_bucket", s.S3Bucket},
		{"s3_prefix", s.S3Prefix},
		{"bigquery_dataset", s.BigQueryDataset},
		{"crashlytics_table", s.CrashlyticsTable},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			errs = append(errs, fmt.Errorf("%s is required (set it in the settings file or %s_%s)",
				r.key, envPrefix, strings.ToUpper(r.key)))
		}
	}
	if (s.AWSAccessKey == "") != (s.AWSSecretKey == "") {
		errs = append(errs, errors.New("aws_access_key and aws_secret_key must be set together"))
	}
	return errors.Join(errs...)
}

// Resolve returns the settings for a run. A non-nil base is used as is;
// otherwise settings are loaded from path.
func Resolve(base *Settings, path string) (Settings, error) {
	if base != nil {
		return *base, nil
	}
	return LoadSettings(path)
}

// LoadSettings reads the settings file at path, fills unset keys with
// defaults, and applies LOGUNIFIER_<KEY> environment overrides.
func LoadSettings(path string) (Settings, error) {
	return loadSettings(path, true)
}

// ReadSettingsFile reads the settings file at path with defaults but without
// environment overrides, so the result is safe to write back.
func ReadSettingsFile(path string) (Settings, error) {
	return loadSettings(path, false)
}

func loadSettings(path string, withEnv bool) (Settings, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("%w: settings file %s not found", ErrConfigMissing, path)
		}
		return Settings{}, fmt.Errorf("%w: %v", ErrConfigMissing, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	defaults := DefaultSettings()
	for _, key := range Keys {
		val, _ := defaults.Get(key)
		v.SetDefault(key, val)
	}
	if withEnv {
		v.SetEnvPrefix(envPrefix)
		v.AutomaticEnv()
	}

	if err := v.ReadInConfig(); err != nil {
		return Settings{}, fmt.Errorf("%w: read %s: %v", ErrConfigMissing, path, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("%w: decode %s: %v", ErrConfigMissing, path, err)
	}
	return s, nil
}

// Save writes settings to path, replacing any existing file atomically.
// Files ending in .yaml or .yml are written as YAML, everything else as JSON.
func Save(path string, s Settings) error {
	data, err := Encode(s, formatFor(path))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Encode renders settings as "json" or "yaml".
func Encode(s Settings, format string) ([]byte, error) {
	if format == "yaml" {
		return yaml.Marshal(s)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}
