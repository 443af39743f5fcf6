package buffer

import (
	"fmt"
	"sync"

	"github.com/rickgao/quote-collector/internal/model"
)

// DefaultSizeHint is the initial per-pair column capacity.
const DefaultSizeHint = 1024

// columns is the arena for one pair. All slices have equal length.
type columns struct {
	ts   []int64
	bidP []model.Float
	askP []model.Float
	bidS []model.Float
	askS []model.Float
}

func newColumns(capacity int) *columns {
	return &columns{
		ts:   make([]int64, 0, capacity),
		bidP: make([]model.Float, 0, capacity),
		askP: make([]model.Float, 0, capacity),
		bidS: make([]model.Float, 0, capacity),
		askS: make([]model.Float, 0, capacity),
	}
}

// QuoteBuffer accumulates ticks column-wise per pair.
type QuoteBuffer struct {
	mu    sync.Mutex
	hint  int
	pairs []model.PairKey
	cols  map[model.PairKey]*columns

	// Stats
	appended int64
	drained  int64
	grows    int
}

// New creates a buffer for a fixed set of pairs. sizeHint is the initial
// per-pair capacity; values < 1 use DefaultSizeHint.
func New(pairs []model.PairKey, sizeHint int) *QuoteBuffer {
	if sizeHint < 1 {
		sizeHint = DefaultSizeHint
	}
	b := &QuoteBuffer{
		hint: sizeHint,
		cols: make(map[model.PairKey]*columns, len(pairs)),
	}
	for _, p := range pairs {
		if _, dup := b.cols[p]; dup {
			continue
		}
		b.pairs = append(b.pairs, p)
		b.cols[p] = newColumns(sizeHint)
	}
	return b
}

// Append adds one tick to its pair's columns.
func (b *QuoteBuffer) Append(pair model.PairKey, tick model.QuoteTick) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.cols[pair]
	if !ok {
		return fmt.Errorf("%w: no buffer for pair %s", model.ErrConfiguration, pair)
	}

	if len(c.ts) == cap(c.ts) {
		b.grows++
	}
	c.ts = append(c.ts, tick.Timestamp)
	c.bidP = append(c.bidP, tick.BidPrice)
	c.askP = append(c.askP, tick.AskPrice)
	c.bidS = append(c.bidS, tick.BidSize)
	c.askS = append(c.askS, tick.AskSize)
	b.appended++
	return nil
}

// Drain removes and returns every row accumulated for pair. The returned
// batch is empty when nothing was appended or the pair is unknown.
func (b *QuoteBuffer) Drain(pair model.PairKey) model.Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.cols[pair]
	if !ok || len(c.ts) == 0 {
		return model.Batch{Pair: pair}
	}

	batch := model.Batch{
		Pair:      pair,
		Timestamp: c.ts,
		BidPrice:  c.bidP,
		AskPrice:  c.askP,
		BidSize:   c.bidS,
		AskSize:   c.askS,
	}

	// The batch owns the old arrays; size the next window from this one.
	next := len(c.ts)
	if next < b.hint {
		next = b.hint
	}
	b.cols[pair] = newColumns(next)
	b.drained += int64(batch.Len())
	return batch
}

// Len returns the buffered row count for pair.
func (b *QuoteBuffer) Len(pair model.PairKey) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.cols[pair]; ok {
		return len(c.ts)
	}
	return 0
}

// Pairs returns the pair set in construction order.
func (b *QuoteBuffer) Pairs() []model.PairKey {
	out := make([]model.PairKey, len(b.pairs))
	copy(out, b.pairs)
	return out
}

// Stats returns buffer statistics.
func (b *QuoteBuffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	buffered := 0
	for _, c := range b.cols {
		buffered += len(c.ts)
	}
	return Stats{
		Pairs:         len(b.pairs),
		Buffered:      buffered,
		TotalAppended: b.appended,
		TotalDrained:  b.drained,
		GrowCount:     b.grows,
	}
}

// Stats contains buffer statistics.
type Stats struct {
	Pairs         int
	Buffered      int
	TotalAppended int64
	TotalDrained  int64
	GrowCount     int
}
