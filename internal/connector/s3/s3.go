package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/crimson-sun/logunifier/internal/config"
	"github.com/crimson-sun/logunifier/internal/connector"
	"github.com/crimson-sun/logunifier/internal/metrics"
	"github.com/crimson-sun/logunifier/internal/model"
)

// Name is the source name for object-store records.
const Name = "s3"

const (
	defaultRegion = "us-east-1"
	jsonSuffix    = ".json"
)

func init() {
	connector.Register(Name, func(ctx context.Context, s config.Settings, m *metrics.Metrics) (connector.Connector, error) {
		client, err := NewClient(ctx, s)
		if err != nil {
			return nil, err
		}
		return New(client, s.S3Bucket, s.S3Prefix, WithMetrics(m)), nil
	})
}

// API is the subset of the S3 client used by the connector. *awss3.Client satisfies it.
type API interface {
	ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Option configures a Connector.
type Option func(*Connector)

// WithMetrics records pages, skipped keys, and fetched records on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Connector) { c.metrics = m }
}

// Connector downloads JSON log files stored under a key prefix.
// Each file must hold a JSON array; every element becomes one record.
type Connector struct {
	api     API
	bucket  string
	prefix  string
	metrics *metrics.Metrics
}

// New creates a Connector reading bucket/prefix through api.
func New(api API, bucket, prefix string, opts ...Option) *Connector {
	c := &Connector{api: api, bucket: bucket, prefix: prefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient builds an S3 client. Static credentials are used when both the
// access key and secret are set; otherwise the default credential chain applies.
func NewClient(ctx context.Context, s config.Settings) (*awss3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if s.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(s.AWSRegion))
	}
	if s.AWSAccessKey != "" && s.AWSSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AWSAccessKey, s.AWSSecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &connector.RetrievalError{Source: Name, Op: "load aws config", Err: err}
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}

	return awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if s.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(s.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (c *Connector) Name() string { return Name }

// FetchAll lists every .json key under the prefix and returns the elements
// of each file's array, in listing order.
func (c *Connector) FetchAll(ctx context.Context) ([]model.Record, error) {
	keys, err := c.ListKeys(ctx)
	if err != nil {
		return nil, err
	}

	var results []model.Record
	for _, key := range keys {
		recs, err := c.fetchObject(ctx, key)
		if err != nil {
			return nil, err
		}
		results = append(results, recs...)
	}

	c.metrics.RecordsFetched(Name, len(results))
	slog.Info("s3 fetch complete", "bucket", c.bucket, "prefix", c.prefix, "objects", len(keys), "records", len(results))
	return results, nil
}

// ListKeys returns every key under the prefix that ends in .json, following
// continuation tokens until the listing is exhausted.
func (c *Connector) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor *string

	for {
		resp, err := c.api.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
			Bucket:            aws.String(c.bucket),
			Prefix:            aws.String(c.prefix),
			ContinuationToken: cursor,
		})
		if err != nil {
			return nil, &connector.RetrievalError{Source: Name, Op: "list " + c.bucket, Err: err}
		}
		c.metrics.ListPage()

		for _, obj := range resp.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, jsonSuffix) {
				slog.Debug("s3 skipping non-json key", "key", key)
				c.metrics.ObjectSkipped()
				continue
			}
			keys = append(keys, key)
		}

		if aws.ToString(resp.NextContinuationToken) == "" {
			break
		}
		cursor = resp.NextContinuationToken
	}

	return keys, nil
}

func (c *Connector) fetchObject(ctx context.Context, key string) ([]model.Record, error) {
	resp, err := c.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &connector.RetrievalError{Source: Name, Op: "get " + key, Err: err}
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, &connector.RetrievalError{Source: Name, Op: "read " + key, Err: err}
	}

	elems, err := decodeArray(body)
	if err != nil {
		return nil, &connector.RecordParseError{Source: Name, Key: key, Err: err}
	}

	recs := make([]model.Record, len(elems))
	for i, e := range elems {
		recs[i] = model.Record{Source: Name, Body: e}
	}
	return recs, nil
}

var errNotArray = errors.New("body is not a JSON array")

// decodeArray splits a JSON array into its elements without decoding them.
func decodeArray(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errNotArray
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotArray, err)
	}
	return elems, nil
}
