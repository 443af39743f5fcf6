package writer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/quote-collector/internal/metrics"
	"github.com/rickgao/quote-collector/internal/model"
)

// RowInserter inserts quote rows into quote_ticks as one batch.
type RowInserter interface {
	InsertQuotes(ctx context.Context, rows []model.QuoteTick) (int64, error)
	Name() string
}

// RowWriter accumulates the rows of every pair in a flush and inserts them
// as one batch on Flush.
type RowWriter struct {
	inserter RowInserter
	logger   *slog.Logger

	mu      sync.Mutex
	pending []model.QuoteTick
	counts  map[model.PairKey]int
	order   []model.PairKey
	metrics WriterMetrics
}

// NewRowWriter creates a RowWriter.
func NewRowWriter(inserter RowInserter, logger *slog.Logger) *RowWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RowWriter{
		inserter: inserter,
		logger:   logger,
		counts:   make(map[model.PairKey]int),
	}
}

// Write implements Sink.
func (w *RowWriter) Write(_ context.Context, batch model.Batch) error {
	if batch.Empty() {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for i := 0; i < batch.Len(); i++ {
		w.pending = append(w.pending, batch.Row(i))
	}
	if _, seen := w.counts[batch.Pair]; !seen {
		w.order = append(w.order, batch.Pair)
	}
	w.counts[batch.Pair] += batch.Len()
	return nil
}

// Flush implements Sink. Pending rows are dropped after a failed insert.
func (w *RowWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.metrics.Flushes++
		w.mu.Unlock()
		return nil
	}

	// Take ownership of current batch
	rows := w.pending
	counts := w.counts
	order := w.order
	w.pending = nil
	w.counts = make(map[model.PairKey]int, len(counts))
	w.order = nil
	w.mu.Unlock()

	start := time.Now()
	inserted, err := w.inserter.InsertQuotes(ctx, rows)
	if err != nil {
		w.mu.Lock()
		w.metrics.Errors++
		w.mu.Unlock()
		metrics.WriteErrors.WithLabelValues("database").Inc()
		w.logger.Error("batch insert failed", "error", err, "count", len(rows), "driver", w.inserter.Name())
		return fmt.Errorf("insert %d rows: %w", len(rows), err)
	}

	w.mu.Lock()
	w.metrics.Rows += inserted
	w.metrics.Flushes++
	w.mu.Unlock()
	metrics.RowsWritten.WithLabelValues("database").Add(float64(inserted))

	for _, pair := range order {
		w.logger.Info("table written",
			"exchange", pair.Exchange,
			"market", pair.Market,
			"rows", counts[pair],
			"driver", w.inserter.Name(),
		)
	}
	w.logger.Debug("flushed quote rows",
		"count", len(rows),
		"inserted", inserted,
		"duration", time.Since(start),
	)
	return nil
}

// Close implements Sink.
func (w *RowWriter) Close() error { return nil }

// Stats returns current metrics.
func (w *RowWriter) Stats() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}
