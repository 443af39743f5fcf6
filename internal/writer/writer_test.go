package writer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/quote-collector/internal/columnar"
	"github.com/rickgao/quote-collector/internal/config"
	"github.com/rickgao/quote-collector/internal/model"
	"github.com/rickgao/quote-collector/internal/rollover"
	"github.com/rickgao/quote-collector/internal/storage"
)

var ethPair = model.PairKey{Exchange: "binance-usds-futures", Market: "ethusdt"}

func ts(s string) int64 {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t.UnixNano()
}

// batchAt builds a batch whose rows start at start and are spaced by one
// second. Bid prices count up from base so rows are distinguishable.
func batchAt(pair model.PairKey, start string, n int, base float64) model.Batch {
	b := model.Batch{Pair: pair}
	t0 := ts(start)
	for i := 0; i < n; i++ {
		b.Timestamp = append(b.Timestamp, t0+int64(i)*int64(time.Second))
		b.BidPrice = append(b.BidPrice, model.Some(base+float64(i)))
		b.AskPrice = append(b.AskPrice, model.Some(base+float64(i)+0.5))
		b.BidSize = append(b.BidSize, model.Some(1))
		if i%2 == 0 {
			b.AskSize = append(b.AskSize, model.None())
		} else {
			b.AskSize = append(b.AskSize, model.Some(2))
		}
	}
	return b
}

func readParquetFile(t *testing.T, path string) model.Batch {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	b, err := columnar.ReadParquet(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	return b
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func TestNew(t *testing.T) {
	local := storage.NewLocal(t.TempDir())
	tracker := rollover.NewTracker(nil, nil)

	tests := []struct {
		name    string
		policy  string
		deps    Deps
		wantErr bool
	}{
		{name: "direct", policy: config.PolicyDirect, deps: Deps{Output: local}},
		{name: "direct without output", policy: config.PolicyDirect, wantErr: true},
		{name: "staged", policy: config.PolicyStaged, deps: Deps{Output: local, Staging: local, Tracker: tracker}},
		{name: "staged without tracker", policy: config.PolicyStaged, deps: Deps{Output: local, Staging: local}, wantErr: true},
		{name: "database", policy: config.PolicyDatabase, deps: Deps{Inserter: &fakeInserter{}}},
		{name: "database without inserter", policy: config.PolicyDatabase, wantErr: true},
		{name: "unknown", policy: "hourly", deps: Deps{Output: local}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, err := New(tt.policy, tt.deps, nil)
			if tt.wantErr {
				require.ErrorIs(t, err, model.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, sink)
		})
	}
}

func TestDirectWriter(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	w := NewDirectWriter(storage.NewLocal(root), nil)

	b := batchAt(ethPair, "2024-01-15T12:00:00Z", 3, 2500)
	require.NoError(t, w.Write(ctx, b))
	require.NoError(t, w.Flush(ctx))

	dir := filepath.Join(root, "binance-usds-futures", "ethusdt")
	assert.Equal(t, []string{"1705320000000000000.parquet"}, listDir(t, dir))

	got := readParquetFile(t, filepath.Join(dir, "1705320000000000000.parquet"))
	assert.Equal(t, b.Timestamp, got.Timestamp)
	assert.Equal(t, b.BidPrice, got.BidPrice)
	assert.Equal(t, b.AskSize, got.AskSize)

	stats := w.Stats()
	assert.EqualValues(t, 3, stats.Rows)
	assert.EqualValues(t, 1, stats.Files)
}

func TestDirectWriterLogsTimeRange(t *testing.T) {
	var logs bytes.Buffer
	w := NewDirectWriter(storage.NewLocal(t.TempDir()), slog.New(slog.NewTextHandler(&logs, nil)))

	b := batchAt(ethPair, "2024-01-15T12:00:00Z", 3, 1)
	require.NoError(t, w.Write(context.Background(), b))

	assert.Contains(t, logs.String(), fmt.Sprintf("first_ts=%d", b.FirstTimestamp()))
	assert.Contains(t, logs.String(), fmt.Sprintf("last_ts=%d", b.LastTimestamp()))
}

func TestDirectWriterSkipsEmptyBatch(t *testing.T) {
	root := t.TempDir()
	w := NewDirectWriter(storage.NewLocal(root), nil)

	require.NoError(t, w.Write(context.Background(), model.Batch{Pair: ethPair}))
	assert.Empty(t, listDir(t, root))
}

func TestStagedWriterStagesWithinDay(t *testing.T) {
	ctx := context.Background()
	out, stage := t.TempDir(), t.TempDir()
	clock := &fakeClock{t: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	tracker := rollover.NewTracker([]model.PairKey{ethPair}, clock.now)
	w := NewStagedWriter(storage.NewLocal(out), storage.NewLocal(stage), tracker, nil)

	require.NoError(t, w.Write(ctx, batchAt(ethPair, "2024-01-15T12:00:00Z", 3, 1)))
	require.NoError(t, w.Write(ctx, batchAt(ethPair, "2024-01-15T12:01:00Z", 2, 10)))

	stagedDir := filepath.Join(stage, "binance-usds-futures", "ethusdt")
	assert.Equal(t, []string{"1705320000000000000.arrow", "1705320060000000000.arrow"}, listDir(t, stagedDir))
	assert.Empty(t, listDir(t, out))
	assert.EqualValues(t, 0, w.Stats().Merges)
}

func TestStagedWriterDailyRollover(t *testing.T) {
	ctx := context.Background()
	out, stage := t.TempDir(), t.TempDir()
	clock := &fakeClock{t: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	tracker := rollover.NewTracker([]model.PairKey{ethPair}, clock.now)
	w := NewStagedWriter(storage.NewLocal(out), storage.NewLocal(stage), tracker, nil)

	b1 := batchAt(ethPair, "2024-01-15T12:00:00Z", 3, 1)
	b2 := batchAt(ethPair, "2024-01-15T23:59:58Z", 2, 10)
	require.NoError(t, w.Write(ctx, b1))
	require.NoError(t, w.Write(ctx, b2))

	// the process keeps running but no data arrives for a few days
	clock.t = time.Date(2024, 1, 18, 0, 1, 0, 0, time.UTC)
	b3 := batchAt(ethPair, "2024-01-18T00:00:30Z", 1, 100)
	require.NoError(t, w.Write(ctx, b3))

	outDir := filepath.Join(out, "binance-usds-futures", "ethusdt")
	require.Equal(t, []string{"output_daily_20240115.parquet"}, listDir(t, outDir))

	got := readParquetFile(t, filepath.Join(outDir, "output_daily_20240115.parquet"))
	want := columnar.Concat(b1, b2, b3)
	assert.Equal(t, want.Timestamp, got.Timestamp)
	assert.Equal(t, want.BidPrice, got.BidPrice)
	assert.Equal(t, want.AskSize, got.AskSize)

	assert.Empty(t, listDir(t, filepath.Join(stage, "binance-usds-futures", "ethusdt")))
	assert.Equal(t, model.Day{Year: 2024, Month: time.January, Day: 18}, tracker.Current(ethPair))
	assert.EqualValues(t, 1, w.Stats().Merges)

	// the next batch on the new day only stages
	require.NoError(t, w.Write(ctx, batchAt(ethPair, "2024-01-18T00:02:00Z", 1, 200)))
	assert.Len(t, listDir(t, filepath.Join(stage, "binance-usds-futures", "ethusdt")), 1)
	assert.EqualValues(t, 1, w.Stats().Merges)
}

func TestStagedWriterRepeatedMergeSameDay(t *testing.T) {
	ctx := context.Background()
	out, stage := t.TempDir(), t.TempDir()
	// exchange time runs ahead of the local clock across midnight
	clock := &fakeClock{t: time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC)}
	tracker := rollover.NewTracker([]model.PairKey{ethPair}, clock.now)
	w := NewStagedWriter(storage.NewLocal(out), storage.NewLocal(stage), tracker, nil)

	b1 := batchAt(ethPair, "2024-01-15T12:00:00Z", 5, 1)
	b2 := batchAt(ethPair, "2024-01-16T00:00:00.5Z", 2, 10)
	require.NoError(t, w.Write(ctx, b1))
	require.NoError(t, w.Write(ctx, b2))
	assert.Equal(t, model.Day{Year: 2024, Month: time.January, Day: 15}, tracker.Current(ethPair))

	b3 := batchAt(ethPair, "2024-01-16T00:00:01.5Z", 1, 100)
	require.NoError(t, w.Write(ctx, b3))
	assert.EqualValues(t, 2, w.Stats().Merges)

	outDir := filepath.Join(out, "binance-usds-futures", "ethusdt")
	require.Equal(t, []string{"output_daily_20240115.parquet"}, listDir(t, outDir))
	got := readParquetFile(t, filepath.Join(outDir, "output_daily_20240115.parquet"))
	want := columnar.Concat(b1, b2, b3)
	assert.Equal(t, 8, got.Len())
	assert.Equal(t, want.Timestamp, got.Timestamp)
	assert.Equal(t, want.BidPrice, got.BidPrice)
	assert.Equal(t, want.AskSize, got.AskSize)
	assert.Empty(t, listDir(t, filepath.Join(stage, "binance-usds-futures", "ethusdt")))
}

func TestStagedWriterRecover(t *testing.T) {
	ctx := context.Background()
	out, stage := t.TempDir(), t.TempDir()

	// a previous run staged two files on Jan 12 and 13
	prevClock := &fakeClock{t: time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC)}
	prev := NewStagedWriter(storage.NewLocal(out), storage.NewLocal(stage),
		rollover.NewTracker([]model.PairKey{ethPair}, prevClock.now), nil)
	b1 := batchAt(ethPair, "2024-01-13T09:00:00Z", 2, 2)
	b0 := batchAt(ethPair, "2024-01-12T10:00:00Z", 2, 1)
	require.NoError(t, prev.stage(ctx, "binance-usds-futures/ethusdt/1705136400000000000.arrow", b1))
	require.NoError(t, prev.stage(ctx, "binance-usds-futures/ethusdt/1705053600000000000.arrow", b0))

	// restart on Jan 15
	clock := &fakeClock{t: time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)}
	tracker := rollover.NewTracker([]model.PairKey{ethPair}, clock.now)
	w := NewStagedWriter(storage.NewLocal(out), storage.NewLocal(stage), tracker, nil)
	require.NoError(t, w.Recover(ctx, []model.PairKey{ethPair}))
	assert.Equal(t, model.Day{Year: 2024, Month: time.January, Day: 12}, tracker.Current(ethPair))

	b2 := batchAt(ethPair, "2024-01-15T08:00:00Z", 1, 3)
	require.NoError(t, w.Write(ctx, b2))

	outDir := filepath.Join(out, "binance-usds-futures", "ethusdt")
	require.Equal(t, []string{"output_daily_20240112.parquet"}, listDir(t, outDir))
	got := readParquetFile(t, filepath.Join(outDir, "output_daily_20240112.parquet"))
	assert.Equal(t, columnar.Concat(b0, b1, b2).Timestamp, got.Timestamp, "staged files merged in timestamp order")
	assert.Equal(t, model.Day{Year: 2024, Month: time.January, Day: 15}, tracker.Current(ethPair))
}

func TestStagedWriterSkipsEmptyBatch(t *testing.T) {
	stage := t.TempDir()
	tracker := rollover.NewTracker(nil, nil)
	w := NewStagedWriter(storage.NewLocal(t.TempDir()), storage.NewLocal(stage), tracker, nil)

	require.NoError(t, w.Write(context.Background(), model.Batch{Pair: ethPair}))
	assert.Empty(t, listDir(t, stage))
}
