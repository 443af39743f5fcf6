package writer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/quote-collector/internal/columnar"
	"github.com/rickgao/quote-collector/internal/metrics"
	"github.com/rickgao/quote-collector/internal/model"
	"github.com/rickgao/quote-collector/internal/rollover"
	"github.com/rickgao/quote-collector/internal/storage"
)

const stagedExt = ".arrow"

// StagedWriter writes each batch to {staging}/{exchange}/{market}/{first_ts}.arrow
// and, once a batch crosses into a later UTC day than the tracked one, merges
// every staged file of that pair into
// {output}/{exchange}/{market}/output_daily_{YYYYMMDD}.parquet.
type StagedWriter struct {
	output  storage.FS
	staging storage.FS
	tracker *rollover.Tracker
	dirs    dirCache
	logger  *slog.Logger

	mu      sync.Mutex
	metrics WriterMetrics
}

// NewStagedWriter creates a StagedWriter. The staging store is owned
// exclusively by the writer.
func NewStagedWriter(output, staging storage.FS, tracker *rollover.Tracker, logger *slog.Logger) *StagedWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StagedWriter{
		output:  output,
		staging: staging,
		tracker: tracker,
		logger:  logger,
	}
}

// stagedFile is one staged file and the first timestamp encoded in its name.
type stagedFile struct {
	name string
	ts   int64
}

// listStaged returns the staged files of pair in timestamp order.
func (w *StagedWriter) listStaged(ctx context.Context, pair model.PairKey) ([]stagedFile, error) {
	names, err := w.staging.List(ctx, pairDir(pair))
	if err != nil {
		return nil, err
	}

	files := make([]stagedFile, 0, len(names))
	for _, name := range names {
		stem, ok := strings.CutSuffix(name, stagedExt)
		if !ok {
			continue
		}
		ts, err := strconv.ParseInt(stem, 10, 64)
		if err != nil {
			w.logger.Warn("ignoring unexpected staged file", "pair", pair.String(), "name", name)
			continue
		}
		files = append(files, stagedFile{name: name, ts: ts})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ts < files[j].ts })
	return files, nil
}

// Recover sets the tracked day of each pair to the day of its oldest staged
// file, so files left by a previous run are merged under their own day.
func (w *StagedWriter) Recover(ctx context.Context, pairs []model.PairKey) error {
	for _, pair := range pairs {
		files, err := w.listStaged(ctx, pair)
		if err != nil {
			return fmt.Errorf("recover %s: %w", pair, err)
		}
		if len(files) == 0 {
			continue
		}
		day := model.UTCDay(files[0].ts)
		w.tracker.Set(pair, day)
		w.logger.Info("recovered staged files",
			"exchange", pair.Exchange,
			"market", pair.Market,
			"files", len(files),
			"day", day.String(),
		)
	}
	return nil
}

// Write implements Sink.
func (w *StagedWriter) Write(ctx context.Context, batch model.Batch) error {
	if batch.Empty() {
		return nil
	}

	path := fmt.Sprintf("%s/%d%s", pairDir(batch.Pair), batch.FirstTimestamp(), stagedExt)
	if err := w.stage(ctx, path, batch); err != nil {
		w.recordError()
		return fmt.Errorf("stage %s: %w", batch.Pair, err)
	}

	w.mu.Lock()
	w.metrics.Rows += int64(batch.Len())
	w.metrics.Files++
	w.mu.Unlock()
	metrics.RowsWritten.WithLabelValues("staged").Add(float64(batch.Len()))
	metrics.FilesWritten.WithLabelValues(metrics.KindStaged).Inc()

	w.logger.Info("table written",
		"exchange", batch.Pair.Exchange,
		"market", batch.Pair.Market,
		"rows", batch.Len(),
		"first_ts", batch.FirstTimestamp(),
		"last_ts", batch.LastTimestamp(),
		"path", w.staging.Location(path),
	)

	if !w.tracker.Due(batch.Pair, batch.MaxTimestamp()) {
		return nil
	}
	if err := w.merge(ctx, batch.Pair); err != nil {
		w.recordError()
		return fmt.Errorf("merge %s: %w", batch.Pair, err)
	}
	return nil
}

func (w *StagedWriter) stage(ctx context.Context, path string, batch model.Batch) error {
	f, err := w.staging.Create(ctx, path)
	if err != nil {
		return err
	}
	if err := columnar.WriteIPC(f, batch); err != nil {
		f.Abort()
		return err
	}
	return f.Close()
}

// merge compacts every staged file of pair into the daily file of the
// tracked day, removes the staged files and advances the tracker. Staged
// files are left in place when anything before the removal fails.
func (w *StagedWriter) merge(ctx context.Context, pair model.PairKey) error {
	start := time.Now()
	day := w.tracker.Current(pair)

	files, err := w.listStaged(ctx, pair)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("%s/output_daily_%s.parquet", pairDir(pair), day.Compact())

	// A merge under a day that already has a daily file (event time ahead
	// of the local clock at midnight) extends that file.
	existing, err := w.readDaily(ctx, path)
	if err != nil {
		return err
	}

	parts := make([]model.Batch, 0, len(files)+1)
	if !existing.Empty() {
		parts = append(parts, existing)
	}
	for _, sf := range files {
		b, err := w.readStaged(ctx, pair, sf.name)
		if err != nil {
			return err
		}
		parts = append(parts, b)
	}
	merged := columnar.Concat(parts...)
	merged.Pair = pair

	if err := w.dirs.ensure(ctx, w.output, pairDir(pair)); err != nil {
		return err
	}
	if err := writeParquet(ctx, w.output, path, merged); err != nil {
		return err
	}

	var errs []error
	for _, sf := range files {
		if err := w.staging.Remove(ctx, pairDir(pair)+"/"+sf.name); err != nil {
			errs = append(errs, err)
		}
	}
	w.tracker.Advance(pair)

	w.mu.Lock()
	w.metrics.Merges++
	w.mu.Unlock()
	metrics.Merges.Inc()
	metrics.FilesWritten.WithLabelValues(metrics.KindDaily).Inc()

	w.logger.Info("daily table written",
		"exchange", pair.Exchange,
		"market", pair.Market,
		"day", day.String(),
		"staged_files", len(files),
		"existing_rows", existing.Len(),
		"rows", merged.Len(),
		"path", w.output.Location(path),
		"next_day", w.tracker.Current(pair).String(),
		"duration", time.Since(start),
	)
	return errors.Join(errs...)
}

// readDaily returns the rows of an existing daily file, or an empty batch
// when there is none.
func (w *StagedWriter) readDaily(ctx context.Context, path string) (model.Batch, error) {
	r, err := w.output.Open(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Batch{}, nil
	}
	if err != nil {
		return model.Batch{}, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return model.Batch{}, fmt.Errorf("%w: read daily %s: %w", model.ErrTransientIO, path, err)
	}
	b, err := columnar.ReadParquet(ctx, bytes.NewReader(data))
	if err != nil {
		return model.Batch{}, fmt.Errorf("read daily %s: %w", path, err)
	}
	return b, nil
}

func (w *StagedWriter) readStaged(ctx context.Context, pair model.PairKey, name string) (model.Batch, error) {
	r, err := w.staging.Open(ctx, pairDir(pair)+"/"+name)
	if err != nil {
		return model.Batch{}, err
	}
	defer r.Close()

	b, err := columnar.ReadIPC(r)
	if err != nil {
		return model.Batch{}, fmt.Errorf("read staged %s: %w", name, err)
	}
	return b, nil
}

// Flush implements Sink. Staged files are durable once written.
func (w *StagedWriter) Flush(context.Context) error {
	w.mu.Lock()
	w.metrics.Flushes++
	w.mu.Unlock()
	return nil
}

// Close implements Sink. Staged files are kept for the next run.
func (w *StagedWriter) Close() error { return nil }

// Stats returns current metrics.
func (w *StagedWriter) Stats() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

func (w *StagedWriter) recordError() {
	w.mu.Lock()
	w.metrics.Errors++
	w.mu.Unlock()
	metrics.WriteErrors.WithLabelValues("staged").Inc()
}
