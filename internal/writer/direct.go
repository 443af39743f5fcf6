package writer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/quote-collector/internal/columnar"
	"github.com/rickgao/quote-collector/internal/metrics"
	"github.com/rickgao/quote-collector/internal/model"
	"github.com/rickgao/quote-collector/internal/storage"
)

// DirectWriter writes each batch to {exchange}/{market}/{first_ts}.parquet.
type DirectWriter struct {
	fs     storage.FS
	dirs   dirCache
	logger *slog.Logger

	mu      sync.Mutex
	metrics WriterMetrics
}

// NewDirectWriter creates a DirectWriter.
func NewDirectWriter(fs storage.FS, logger *slog.Logger) *DirectWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectWriter{fs: fs, logger: logger}
}

// Write implements Sink.
func (w *DirectWriter) Write(ctx context.Context, batch model.Batch) error {
	if batch.Empty() {
		return nil
	}

	start := time.Now()
	if err := w.dirs.ensure(ctx, w.fs, pairDir(batch.Pair)); err != nil {
		w.recordError()
		return fmt.Errorf("write %s: %w", batch.Pair, err)
	}
	path := fmt.Sprintf("%s/%d.parquet", pairDir(batch.Pair), batch.FirstTimestamp())
	if err := writeParquet(ctx, w.fs, path, batch); err != nil {
		w.recordError()
		return fmt.Errorf("write %s: %w", batch.Pair, err)
	}

	w.mu.Lock()
	w.metrics.Rows += int64(batch.Len())
	w.metrics.Files++
	w.mu.Unlock()
	metrics.RowsWritten.WithLabelValues("direct").Add(float64(batch.Len()))
	metrics.FilesWritten.WithLabelValues(metrics.KindDirect).Inc()

	w.logger.Info("table written",
		"exchange", batch.Pair.Exchange,
		"market", batch.Pair.Market,
		"rows", batch.Len(),
		"first_ts", batch.FirstTimestamp(),
		"last_ts", batch.LastTimestamp(),
		"path", w.fs.Location(path),
		"duration", time.Since(start),
	)
	return nil
}

// Flush implements Sink. Every Write is already durable.
func (w *DirectWriter) Flush(context.Context) error {
	w.mu.Lock()
	w.metrics.Flushes++
	w.mu.Unlock()
	return nil
}

// Close implements Sink.
func (w *DirectWriter) Close() error { return nil }

// Stats returns current metrics.
func (w *DirectWriter) Stats() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

func (w *DirectWriter) recordError() {
	w.mu.Lock()
	w.metrics.Errors++
	w.mu.Unlock()
	metrics.WriteErrors.WithLabelValues("direct").Inc()
}

// writeParquet publishes batch at path, discarding partial output on failure.
func writeParquet(ctx context.Context, fs storage.FS, path string, batch model.Batch) error {
	f, err := fs.Create(ctx, path)
	if err != nil {
		return err
	}
	if err := columnar.WriteParquet(f, batch); err != nil {
		f.Abort()
		return err
	}
	return f.Close()
}
