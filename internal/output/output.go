package output

import (
	"context"

	"github.com/crimson-sun/logunifier/internal/model"
)

// Output defines the interface for merged record destinations.
type Output interface {
	Write(ctx context.Context, rec model.Record) error
	// Close finishes the output. For file outputs this publishes the result.
	Close() error
}

// Discarder is implemented by outputs that can drop everything written so far,
// leaving the destination as it was before the output was opened.
type Discarder interface {
	Discard() error
}
