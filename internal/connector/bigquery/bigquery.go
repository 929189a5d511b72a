package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/crimson-sun/logunifier/internal/config"
	"github.com/crimson-sun/logunifier/internal/connector"
	"github.com/crimson-sun/logunifier/internal/metrics"
	"github.com/crimson-sun/logunifier/internal/model"
)

// Name is the source name for warehouse records.
const Name = "bigquery"

func init() {
	connector.Register(Name, func(ctx context.Context, s config.Settings, m *metrics.Metrics) (connector.Connector, error) {
		client, err := NewClient(ctx, s)
		if err != nil {
			return nil, err
		}
		return New(&clientQuerier{client: client}, s.BigQueryDataset, s.CrashlyticsTable, WithMetrics(m)), nil
	})
}

// RowIterator yields query result rows. *bigquery.RowIterator satisfies it.
type RowIterator interface {
	Next(dst interface{}) error
}

// Querier runs a SQL query and returns its rows.
type Querier interface {
	Query(ctx context.Context, sql string) (RowIterator, error)
}

type clientQuerier struct {
	client *bigquery.Client
}

func (q *clientQuerier) Query(ctx context.Context, sql string) (RowIterator, error) {
	return q.client.Query(sql).Read(ctx)
}

func (q *clientQuerier) Close() error {
	return q.client.Close()
}

// NewClient creates a BigQuery client. A credentials file is used when
// configured; otherwise application default credentials apply. Query jobs
// run in the credentials' project; the table reference in the query names
// the dataset's project, which may differ.
func NewClient(ctx context.Context, s config.Settings) (*bigquery.Client, error) {
	var opts []option.ClientOption
	if s.GoogleCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(s.GoogleCredentials))
	}
	client, err := bigquery.NewClient(ctx, bigquery.DetectProjectID, opts...)
	if err != nil {
		return nil, &connector.RetrievalError{Source: Name, Op: "create client", Err: err}
	}
	return client, nil
}

// BuildQuery returns the query selecting every column of dataset.table.
// Identifiers are interpolated verbatim.
func BuildQuery(dataset, table string) string {
	return fmt.Sprintf("SELECT * FROM `%s.%s`", dataset, table)
}

// Option configures a Connector.
type Option func(*Connector)

// WithMetrics records fetched rows on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Connector) { c.metrics = m }
}

// Connector reads every row of a Crashlytics export table.
type Connector struct {
	querier Querier
	dataset string
	table   string
	metrics *metrics.Metrics
}

// New creates a Connector querying dataset.table through q.
func New(q Querier, dataset, table string, opts ...Option) *Connector {
	c := &Connector{querier: q, dataset: dataset, table: table}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connector) Name() string { return Name }

// FetchAll runs the table query and returns one record per row, columns as keys.
func (c *Connector) FetchAll(ctx context.Context) ([]model.Record, error) {
	sql := BuildQuery(c.dataset, c.table)
	slog.Debug("bigquery query", "sql", sql)

	it, err := c.querier.Query(ctx, sql)
	if err != nil {
		return nil, &connector.RetrievalError{Source: Name, Op: "query", Err: err}
	}

	var results []model.Record
	for {
		var row jsonRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, &connector.RetrievalError{Source: Name, Op: "read rows", Err: err}
		}
		results = append(results, model.Record{Source: Name, Body: row.data})
	}

	c.metrics.RecordsFetched(Name, len(results))
	slog.Info("bigquery fetch complete", "table", c.dataset+"."+c.table, "records", len(results))
	return results, nil
}

// Close releases the underlying client, if any.
func (c *Connector) Close() error {
	if cl, ok := c.querier.(interface{ Close() error }); ok {
		return cl.Close()
	}
	return nil
}

// jsonRow loads a result row as a JSON object with keys in column order.
type jsonRow struct {
	data json.RawMessage
}

// Load implements bigquery.ValueLoader.
func (r *jsonRow) Load(vals []bigquery.Value, schema bigquery.Schema) error {
	var buf bytes.Buffer
	if err := encodeRecord(&buf, vals, schema); err != nil {
		return err
	}
	r.data = buf.Bytes()
	return nil
}

func encodeRecord(buf *bytes.Buffer, vals []bigquery.Value, schema bigquery.Schema) error {
	if len(vals) != len(schema) {
		return fmt.Errorf("row has %d values for %d columns", len(vals), len(schema))
	}
	buf.WriteByte('{')
	for i, field := range schema {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(field.Name)
		if err != nil {
			return err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if err := encodeField(buf, vals[i], field); err != nil {
			return fmt.Errorf("column %s: %w", field.Name, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func encodeField(buf *bytes.Buffer, v bigquery.Value, field *bigquery.FieldSchema) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}
	if field.Repeated {
		elems, ok := v.([]bigquery.Value)
		if !ok {
			return fmt.Errorf("repeated value has type %T", v)
		}
		elem := *field
		elem.Repeated = false
		buf.WriteByte('[')
		for i, e := range elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeField(buf, e, &elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	}
	if field.Type == bigquery.RecordFieldType {
		nested, ok := v.([]bigquery.Value)
		if !ok {
			return fmt.Errorf("record value has type %T", v)
		}
		return encodeRecord(buf, nested, field.Schema)
	}
	return encodeScalar(buf, v, field.Type)
}

func encodeScalar(buf *bytes.Buffer, v bigquery.Value, typ bigquery.FieldType) error {
	switch x := v.(type) {
	case *big.Rat:
		s := bigquery.NumericString(x)
		if typ == bigquery.BigNumericFieldType {
			s = bigquery.BigNumericString(x)
		}
		v = s
	case float64:
		// Non-finite floats are written the way BigQuery exports them.
		switch {
		case math.IsNaN(x):
			v = "NaN"
		case math.IsInf(x, 1):
			v = "Infinity"
		case math.IsInf(x, -1):
			v = "-Infinity"
		}
	case string:
		if typ == bigquery.JSONFieldType && json.Valid([]byte(x)) {
			buf.WriteString(x)
			return nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}
