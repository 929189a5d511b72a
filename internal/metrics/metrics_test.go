package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.RecordsFetched("s3", 3)
	m.RecordsFetched("s3", 2)
	m.RecordsFetched("bigquery", 1)
	m.ObjectSkipped()
	m.ListPage()
	m.ListPage()
	m.RecordsWritten(6)

	if got := testutil.ToFloat64(m.recordsFetched.WithLabelValues("s3")); got != 5 {
		t.Fatalf("s3 fetched = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.recordsFetched.WithLabelValues("bigquery")); got != 1 {
		t.Fatalf("bigquery fetched = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.objectsSkipped); got != 1 {
		t.Fatalf("skipped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.listPages); got != 2 {
		t.Fatalf("pages = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.recordsWritten); got != 6 {
		t.Fatalf("written = %v, want 6", got)
	}
}

func TestRunFinished(t *testing.T) {
	m := New()
	m.RunFinished(time.Second, nil)
	m.RunFinished(time.Second, errors.New("boom"))

	if got := testutil.ToFloat64(m.runFailures); got != 1 {
		t.Fatalf("failures = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.runDuration); n != 1 {
		t.Fatalf("expected 1 histogram series, got %d", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordsFetched("s3", 1)
	m.ObjectSkipped()
	m.ListPage()
	m.RecordsWritten(1)
	m.RunFinished(time.Second, nil)
	if err := m.WriteTextfile("/nonexistent/dir/x.prom"); err != nil {
		t.Fatalf("expected nil error from nil metrics, got %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordsWritten(3)

	path := filepath.Join(t.TempDir(), "logunifier.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "logunifier_records_written_total 3") {
		t.Fatalf("expected written counter in textfile, got:\n%s", data)
	}
}
