package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/logunifier/internal/connector"
	"github.com/crimson-sun/logunifier/internal/metrics"
	"github.com/crimson-sun/logunifier/internal/output"
)

// OpenFunc opens the output for a run. It is called only after every source
// has been fetched successfully.
type OpenFunc func() (output.Output, error)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSequential fetches sources one after another instead of concurrently.
func WithSequential(seq bool) Option {
	return func(p *Pipeline) { p.sequential = seq }
}

// WithMetrics records written records and run duration on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger for run diagnostics. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline fetches every source and writes their records, source by source
// in the configured order, to a single output.
type Pipeline struct {
	sources    []connector.Connector
	open       OpenFunc
	sequential bool
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a Pipeline. Output order follows the order of sources.
func New(sources []connector.Connector, open OpenFunc, opts ...Option) *Pipeline {
	p := &Pipeline{
		sources: sources,
		open:    open,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs one merge and returns the number of records written.
// Any source failure fails the run before the output is opened.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := p.run(ctx)
	p.metrics.RunFinished(time.Since(start), err)
	return n, err
}

func (p *Pipeline) run(ctx context.Context) (int, error) {
	buf := newFetchBuffer(len(p.sources))
	if err := p.fetch(ctx, buf); err != nil {
		return 0, err
	}
	p.logger.Debug("all sources fetched", "records", buf.len())

	out, err := p.open()
	if err != nil {
		return 0, fmt.Errorf("pipeline output: %w", err)
	}

	n, err := buf.drain(ctx, out)
	if err != nil {
		discard(out)
		return 0, fmt.Errorf("pipeline output: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("pipeline output: %w", err)
	}

	if n == 0 {
		p.logger.Warn("no records found in any source; output is empty")
	}
	p.metrics.RecordsWritten(n)
	return n, nil
}

func (p *Pipeline) fetch(ctx context.Context, buf *fetchBuffer) error {
	if p.sequential {
		for i, src := range p.sources {
			if err := p.fetchOne(ctx, i, src, buf); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range p.sources {
		g.Go(func() error {
			return p.fetchOne(gctx, i, src, buf)
		})
	}
	return g.Wait()
}

func (p *Pipeline) fetchOne(ctx context.Context, i int, src connector.Connector, buf *fetchBuffer) error {
	start := time.Now()
	recs, err := src.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("pipeline fetch %s: %w", src.Name(), err)
	}
	p.logger.Info("source fetched", "source", src.Name(), "records", len(recs), "elapsed", time.Since(start))
	buf.set(i, recs)
	return nil
}

func discard(out output.Output) {
	if d, ok := out.(output.Discarder); ok {
		if err := d.Discard(); err != nil {
			slog.Warn("failed to discard partial output", "error", err)
		}
	}
}

// Close releases sources that hold client connections.
func (p *Pipeline) Close() error {
	var errs []error
	for _, src := range p.sources {
		if c, ok := src.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
