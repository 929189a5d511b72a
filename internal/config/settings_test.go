package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearSettingsEnv(t *testing.T) {
	t.Helper()
	for _, key := range Keys {
		env := envPrefix + "_" + strings.ToUpper(key)
		if old, ok := os.LookupEnv(env); ok {
			os.Unsetenv(env)
			t.Cleanup(func() { os.Setenv(env, old) })
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSettings_JSON(t *testing.T) {
	clearSettingsEnv(t)
	path := writeFile(t, "settings.json", `{
  "aws_access_key": "AKIA123",
  "aws_secret_key": "secret",
  "s3_bucket": "crash-uploads",
  "bigquery_dataset": "proj.analytics"
}`)

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.S3Bucket != "crash-uploads" {
		t.Fatalf("expected bucket 'crash-uploads', got %q", s.S3Bucket)
	}
	if s.AWSAccessKey != "AKIA123" || s.AWSSecretKey != "secret" {
		t.Fatalf("unexpected credentials: %q / %q", s.AWSAccessKey, s.AWSSecretKey)
	}
	// Unset keys fall back to defaults.
	if s.S3Prefix != "logs/" {
		t.Fatalf("expected default prefix 'logs/', got %q", s.S3Prefix)
	}
	if s.CrashlyticsTable != "firebase_crashlytics" {
		t.Fatalf("expected default table, got %q", s.CrashlyticsTable)
	}
}

func TestLoadSettings_YAML(t *testing.T) {
	clearSettingsEnv(t)
	path := writeFile(t, "settings.yaml", "s3_bucket: from-yaml\ncrashlytics_table: crashes\n")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.S3Bucket != "from-yaml" || s.CrashlyticsTable != "crashes" {
		t.Fatalf("unexpected settings: %+v", s)
	}
}

func TestLoadSettings_EnvOverride(t *testing.T) {
	clearSettingsEnv(t)
	path := writeFile(t, "settings.json", `{"s3_bucket": "from-file"}`)
	t.Setenv("LOGUNIFIER_S3_BUCKET", "from-env")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.S3Bucket != "from-env" {
		t.Fatalf("expected env override 'from-env', got %q", s.S3Bucket)
	}
}

func TestLoadSettings_Missing(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
}

func TestLoadSettings_Unparseable(t *testing.T) {
	path := writeFile(t, "settings.json", `{"s3_bucket": `)
	_, err := LoadSettings(path)
	if !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing for broken file, got %v", err)
	}
}

func TestResolve_BaseWins(t *testing.T) {
	base := &Settings{S3Bucket: "explicit"}
	s, err := Resolve(base, "/does/not/exist.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.S3Bucket != "explicit" {
		t.Fatalf("expected base settings, got %+v", s)
	}
}

func TestResolve_NoBaseNoFile(t *testing.T) {
	_, err := Resolve(nil, filepath.Join(t.TempDir(), "settings.json"))
	if !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
}

func TestSettingsValidate(t *testing.T) {
	valid := Settings{
		S3Bucket:         "b",
		S3Prefix:         "logs/",
		BigQueryDataset:  "p.d",
		CrashlyticsTable: "t",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid settings, got: %v", err)
	}

	var empty Settings
	err := empty.Validate()
	if err == nil {
		t.Fatal("expected error for empty settings")
	}
	for _, want := range []string{"s3_bucket", "s3_prefix", "bigquery_dataset", "crashlytics_table"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got: %v", want, err)
		}
	}

	half := valid
	half.AWSAccessKey = "AKIA"
	if err := half.Validate(); err == nil || !strings.Contains(err.Error(), "together") {
		t.Fatalf("expected paired-credential error, got %v", err)
	}
}

func TestSetGet(t *testing.T) {
	var s Settings
	if err := s.Set("s3_bucket", "b1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := s.Get("s3_bucket"); !ok || got != "b1" {
		t.Fatalf("Get(s3_bucket) = %q, %v", got, ok)
	}
	if err := s.Set("bucket", "x"); err == nil {
		t.Fatal("expected error for unknown key")
	}
	if _, ok := s.Get("bucket"); ok {
		t.Fatal("expected unknown key to report !ok")
	}
}

func TestRedacted(t *testing.T) {
	s := Settings{AWSAccessKey: "AKIAABCDWXYZ", AWSSecretKey: "topsecret"}
	r := s.Redacted()
	if r.AWSSecretKey == "topsecret" {
		t.Fatal("secret not masked")
	}
	if !strings.HasSuffix(r.AWSAccessKey, "WXYZ") || strings.Contains(r.AWSAccessKey, "ABCD") {
		t.Fatalf("unexpected masked access key %q", r.AWSAccessKey)
	}
	if s.AWSSecretKey != "topsecret" {
		t.Fatal("Redacted must not modify the receiver")
	}
}

func TestRedacted_ShortAccessKey(t *testing.T) {
	for _, key := range []string{"A", "AKIA", "abcd"} {
		r := Settings{AWSAccessKey: key}.Redacted()
		if r.AWSAccessKey != strings.Repeat("*", len(key)) {
			t.Errorf("Redacted access key %q = %q, want fully masked", key, r.AWSAccessKey)
		}
	}
	if r := (Settings{}).Redacted(); r.AWSAccessKey != "" {
		t.Errorf("empty access key should stay empty, got %q", r.AWSAccessKey)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearSettingsEnv(t)
	for _, name := range []string{"settings.json", "settings.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			in := DefaultSettings()
			in.S3Bucket = "saved"
			in.BigQueryDataset = "proj.ds"
			if err := Save(path, in); err != nil {
				t.Fatalf("Save error: %v", err)
			}
			out, err := LoadSettings(path)
			if err != nil {
				t.Fatalf("LoadSettings error: %v", err)
			}
			if out != in {
				t.Fatalf("round trip mismatch:\n got: %+v\nwant: %+v", out, in)
			}
		})
	}
}

func TestReadSettingsFile_IgnoresEnv(t *testing.T) {
	clearSettingsEnv(t)
	path := writeFile(t, "settings.json", `{"s3_bucket": "from-file"}`)
	t.Setenv("LOGUNIFIER_S3_BUCKET", "from-env")

	s, err := ReadSettingsFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.S3Bucket != "from-file" {
		t.Fatalf("expected file value, got %q", s.S3Bucket)
	}
}
