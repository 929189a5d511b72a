package stdout

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/logunifier/internal/model"
)

// Output writes compact NDJSON records to stdout.
type Output struct {
	w *bufio.Writer
}

// New creates a stdout Output.
func New() *Output {
	return NewWriter(os.Stdout)
}

// NewWriter creates an Output writing to w instead of stdout.
func NewWriter(w io.Writer) *Output {
	return &Output{w: bufio.NewWriter(w)}
}

func (o *Output) Write(_ context.Context, rec model.Record) error {
	line, err := rec.Line()
	if err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	line = append(line, '\n')
	if _, err := o.w.Write(line); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	if err := o.w.Flush(); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}
