package pipeline

import (
	"context"
	"sync"

	"github.com/crimson-sun/logunifier/internal/model"
	"github.com/crimson-sun/logunifier/internal/output"
)

// fetchBuffer holds each source's complete record sequence in its own slot so
// that concurrent fetches can finish in any order while output order stays fixed.
type fetchBuffer struct {
	mu    sync.Mutex
	slots [][]model.Record
}

func newFetchBuffer(n int) *fetchBuffer {
	return &fetchBuffer{slots: make([][]model.Record, n)}
}

// set stores the records fetched for slot i.
func (b *fetchBuffer) set(i int, recs []model.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots[i] = recs
}

// len returns the total number of buffered records.
func (b *fetchBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.slots {
		n += len(s)
	}
	return n
}

// drain writes every slot, in slot order, to out and returns the count written.
func (b *fetchBuffer) drain(ctx context.Context, out output.Output) (int, error) {
	b.mu.Lock()
	slots := b.slots
	b.slots = make([][]model.Record, len(slots))
	b.mu.Unlock()

	n := 0
	for _, recs := range slots {
		for _, r := range recs {
			if err := ctx.Err(); err != nil {
				return n, err
			}
			if err := out.Write(ctx, r); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
