// Package foreign mines a mobile SDK's local configuration document for
// S3 bucket and region defaults. Lookups are best effort: a missing or
// malformed document never fails a run.
package foreign

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/crimson-sun/logunifier/internal/config"
)

// ErrMalformed marks a foreign document that is present but not valid JSON.
var ErrMalformed = errors.New("foreign config malformed")

// Location is a bucket/region pair discovered in a foreign document.
type Location struct {
	Bucket string
	Region string
}

// Extractor attempts one known document shape.
type Extractor struct {
	Name   string
	Bucket string // gjson path to the bucket name
	Region string // gjson path to the region
}

// Extract returns the location found under this shape, if the bucket is a
// non-empty string. A region that is not a string is ignored.
func (e Extractor) Extract(doc gjson.Result) (Location, bool) {
	bucket := stringAt(doc, e.Bucket)
	if bucket == "" {
		return Location{}, false
	}
	return Location{
		Bucket: bucket,
		Region: stringAt(doc, e.Region),
	}, true
}

func stringAt(doc gjson.Result, path string) string {
	v := doc.Get(path)
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.Str)
}

// Extractors are tried in order; the first match wins.
var Extractors = []Extractor{
	{
		Name:   "amplify-storage-plugin",
		Bucket: "storage.plugins.awsS3StoragePlugin.bucket",
		Region: "storage.plugins.awsS3StoragePlugin.region",
	},
	{
		Name:   "s3-transfer-utility",
		Bucket: "S3TransferUtility.Default.Bucket",
		Region: "S3TransferUtility.Default.Region",
	},
	{
		Name:   "amplify-outputs",
		Bucket: "storage.bucket_name",
		Region: "storage.aws_region",
	},
}

// Result reports what a lookup did. It is informational only and is never
// returned as an error.
type Result struct {
	Shape         string // extractor that matched; empty when none did
	BucketApplied bool
	RegionApplied bool
	Err           error // wraps ErrMalformed or a read failure; the run continues
}

// Applied reports whether any setting was changed.
func (r Result) Applied() bool {
	return r.BucketApplied || r.RegionApplied
}

// Apply fills S3Bucket and AWSRegion from doc when cfg leaves them empty.
// Explicit settings are never overwritten.
func Apply(cfg config.Settings, doc []byte) (config.Settings, Result) {
	if len(strings.TrimSpace(string(doc))) == 0 {
		return cfg, Result{}
	}
	if !gjson.ValidBytes(doc) {
		return cfg, Result{Err: ErrMalformed}
	}

	parsed := gjson.ParseBytes(doc)
	for _, ex := range Extractors {
		loc, ok := ex.Extract(parsed)
		if !ok {
			continue
		}
		res := Result{Shape: ex.Name}
		if cfg.S3Bucket == "" {
			cfg.S3Bucket = loc.Bucket
			res.BucketApplied = true
		}
		if cfg.AWSRegion == "" && loc.Region != "" {
			cfg.AWSRegion = loc.Region
			res.RegionApplied = true
		}
		return cfg, res
	}
	return cfg, Result{}
}

// ApplyFile reads the document at path and applies it to cfg.
// A missing file is a no-op.
func ApplyFile(cfg config.Settings, path string) (config.Settings, Result) {
	if path == "" {
		return cfg, Result{}
	}
	doc, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, Result{}
		}
		return cfg, Result{Err: fmt.Errorf("read %s: %w", path, err)}
	}
	out, res := Apply(cfg, doc)
	if res.Err != nil {
		res.Err = fmt.Errorf("%s: %w", path, res.Err)
	}
	return out, res
}
