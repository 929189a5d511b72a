package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/crimson-sun/logunifier/internal/model"
)

const (
	bufSize = 64 * 1024 // 64KB

	// newFilePerm applies when path does not exist yet; an existing file keeps its mode.
	newFilePerm os.FileMode = 0o644
)

// Output writes NDJSON to a pending file next to path. Close atomically
// replaces path with the pending file; Discard removes it and leaves path untouched.
type Output struct {
	pf    *renameio.PendingFile
	w     *bufio.Writer
	mu    sync.Mutex
	path  string
	lines int
	done  bool
}

// New creates a file output that will replace the file at path.
func New(path string) (*Output, error) {
	o := &Output{path: path}

	pf, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(filepath.Dir(path)),
		renameio.WithPermissions(newFilePerm),
		renameio.WithExistingPermissions(),
	)
	if err != nil {
		return nil, fmt.Errorf("file output: open %s: %w", path, err)
	}
	o.pf = pf
	o.w = bufio.NewWriterSize(pf, bufSize)
	return o, nil
}

// Write appends the record as one compact JSON line.
func (o *Output) Write(_ context.Context, rec model.Record) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return fmt.Errorf("file output: write after close")
	}

	line, err := rec.Line()
	if err != nil {
		return fmt.Errorf("file output: encode %s record: %w", rec.Source, err)
	}
	line = append(line, '\n')
	if _, err := o.w.Write(line); err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	o.lines++
	return nil
}

// Lines returns the number of records written so far.
func (o *Output) Lines() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lines
}

// Close flushes the buffer and atomically replaces the destination file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return nil
	}
	o.done = true

	if err := o.w.Flush(); err != nil {
		o.pf.Cleanup()
		return fmt.Errorf("file output: flush: %w", err)
	}
	if err := o.pf.CloseAtomicallyReplace(); err != nil {
		o.pf.Cleanup()
		return fmt.Errorf("file output: replace %s: %w", o.path, err)
	}
	return nil
}

// Discard removes the pending file without touching the destination.
func (o *Output) Discard() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return nil
	}
	o.done = true
	return o.pf.Cleanup()
}
