package connector

import (
	"context"
	"fmt"

	"github.com/crimson-sun/logunifier/internal/config"
	"github.com/crimson-sun/logunifier/internal/metrics"
	"github.com/crimson-sun/logunifier/internal/model"
)

// Connector defines the interface all log sources must implement.
type Connector interface {
	// Name returns the source name stamped onto every record.
	Name() string

	// FetchAll retrieves every record the source holds, in source order.
	FetchAll(ctx context.Context) ([]model.Record, error)
}

// RetrievalError reports an authentication, not-found, network, or query
// failure from a backend.
type RetrievalError struct {
	Source string
	Op     string // e.g. "list", "get", "query"
	Err    error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s connector: %s: %v", e.Source, e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// RecordParseError reports a retrieved object whose body is not a JSON array.
type RecordParseError struct {
	Source string
	Key    string
	Err    error
}

func (e *RecordParseError) Error() string {
	return fmt.Sprintf("%s connector: parse %s: %v", e.Source, e.Key, e.Err)
}

func (e *RecordParseError) Unwrap() error { return e.Err }

// Constructor builds a Connector from resolved settings. m may be nil.
type Constructor func(ctx context.Context, s config.Settings, m *metrics.Metrics) (Connector, error)
