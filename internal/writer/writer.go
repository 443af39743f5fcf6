package writer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/quote-collector/internal/config"
	"github.com/rickgao/quote-collector/internal/model"
	"github.com/rickgao/quote-collector/internal/rollover"
	"github.com/rickgao/quote-collector/internal/storage"
)

// Sink receives the non-empty batches of one flush, in pair order, followed
// by a single Flush.
type Sink interface {
	Write(ctx context.Context, batch model.Batch) error
	Flush(ctx context.Context) error
	Close() error
}

// WriterMetrics holds writer statistics.
type WriterMetrics struct {
	Rows    int64
	Files   int64
	Merges  int64
	Errors  int64
	Flushes int64
}

// Deps holds the collaborators a policy may need.
type Deps struct {
	// Output is the destination for direct and staged policies.
	Output storage.FS
	// Staging holds intermediate files for the staged policy.
	Staging storage.FS
	Tracker *rollover.Tracker
	// Inserter receives rows for the database policy.
	Inserter RowInserter
}

// New builds the sink for policy.
func New(policy string, deps Deps, logger *slog.Logger) (Sink, error) {
	switch policy {
	case config.PolicyDirect:
		if deps.Output == nil {
			return nil, fmt.Errorf("%w: direct policy needs an output store", model.ErrConfiguration)
		}
		return NewDirectWriter(deps.Output, logger), nil
	case config.PolicyStaged:
		if deps.Output == nil || deps.Staging == nil || deps.Tracker == nil {
			return nil, fmt.Errorf("%w: staged policy needs output, staging and tracker", model.ErrConfiguration)
		}
		return NewStagedWriter(deps.Output, deps.Staging, deps.Tracker, logger), nil
	case config.PolicyDatabase:
		if deps.Inserter == nil {
			return nil, fmt.Errorf("%w: database policy needs an inserter", model.ErrConfiguration)
		}
		return NewRowWriter(deps.Inserter, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown output policy %q", model.ErrConfiguration, policy)
	}
}

// pairDir is the per-pair directory under a store root.
func pairDir(pair model.PairKey) string {
	return pair.Exchange + "/" + pair.Market
}

// dirCache remembers which pair directories already exist in a store.
type dirCache struct {
	mu   sync.Mutex
	made map[string]bool
}

func (c *dirCache) ensure(ctx context.Context, fs storage.FS, dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.made[dir] {
		return nil
	}
	if err := fs.MkdirAll(ctx, dir); err != nil {
		return err
	}
	if c.made == nil {
		c.made = make(map[string]bool)
	}
	c.made[dir] = true
	return nil
}
