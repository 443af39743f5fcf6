package columnar

import (
	"bytes"
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/quote-collector/internal/model"
)

func sampleBatch() model.Batch {
	return model.Batch{
		Pair:      model.PairKey{Exchange: "binance-usds-futures", Market: "ethusdt"},
		Timestamp: []int64{1705320000000000000, 1705320000500000000, 1705320001000000000},
		BidPrice:  []model.Float{model.Some(2500.1), model.Some(2500.2), model.None()},
		AskPrice:  []model.Float{model.Some(2500.3), model.None(), model.Some(2500.5)},
		BidSize:   []model.Float{model.Some(1.5), model.Some(0), model.Some(3)},
		AskSize:   []model.Float{model.None(), model.Some(2), model.Some(4.25)},
	}
}

func assertSameRows(t *testing.T, want, got model.Batch) {
	t.Helper()
	assert.Equal(t, want.Timestamp, got.Timestamp)
	assert.Equal(t, want.BidPrice, got.BidPrice)
	assert.Equal(t, want.AskPrice, got.AskPrice)
	assert.Equal(t, want.BidSize, got.BidSize)
	assert.Equal(t, want.AskSize, got.AskSize)
}

func TestNewRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec := NewRecord(mem, sampleBatch())
	defer rec.Release()

	require.EqualValues(t, 3, rec.NumRows())
	require.EqualValues(t, 5, rec.NumCols())
	for i, name := range model.Schema {
		assert.Equal(t, name, rec.ColumnName(i))
	}

	bid := rec.Column(1).(*array.Float64)
	assert.Equal(t, 1, bid.NullN())
	assert.True(t, bid.IsNull(2))
	assert.Equal(t, 2500.2, bid.Value(1))

	// zero is a value, not an absence
	size := rec.Column(3).(*array.Float64)
	assert.Equal(t, 0, size.NullN())
	assert.Equal(t, 0.0, size.Value(1))
}

func TestParquetRoundTrip(t *testing.T) {
	want := sampleBatch()

	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, want))

	got, err := ReadParquet(context.Background(), bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assertSameRows(t, want, got)
}

func TestParquetIsSnappyCompressed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, sampleBatch()))

	rdr, err := file.NewParquetReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer rdr.Close()

	require.Equal(t, 1, rdr.NumRowGroups())
	rg := rdr.MetaData().RowGroup(0)
	for i := 0; i < rg.NumColumns(); i++ {
		cc, err := rg.ColumnChunk(i)
		require.NoError(t, err)
		assert.Equal(t, compress.Codecs.Snappy, cc.Compression())
	}
}

func TestIPCRoundTrip(t *testing.T) {
	want := sampleBatch()

	var buf bytes.Buffer
	require.NoError(t, WriteIPC(&buf, want))

	got, err := ReadIPC(&buf)
	require.NoError(t, err)
	assertSameRows(t, want, got)
}

func TestEmptyBatchRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIPC(&buf, model.Batch{}))

	got, err := ReadIPC(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestReadIPCRejectsGarbage(t *testing.T) {
	_, err := ReadIPC(bytes.NewReader([]byte("not an arrow stream")))
	require.ErrorIs(t, err, model.ErrDataFormat)
}

func TestReadParquetRejectsGarbage(t *testing.T) {
	_, err := ReadParquet(context.Background(), bytes.NewReader([]byte("PAR1 but not really")))
	require.ErrorIs(t, err, model.ErrDataFormat)
}

func TestConcat(t *testing.T) {
	a := sampleBatch()
	b := model.Batch{
		Pair:      model.PairKey{Exchange: "other", Market: "other"},
		Timestamp: []int64{1705320002000000000},
		BidPrice:  []model.Float{model.Some(1)},
		AskPrice:  []model.Float{model.Some(2)},
		BidSize:   []model.Float{model.None()},
		AskSize:   []model.Float{model.Some(4)},
	}

	got := Concat(a, model.Batch{}, b)
	require.Equal(t, 4, got.Len())
	assert.Equal(t, a.Pair, got.Pair)
	assert.Equal(t, append(append([]int64{}, a.Timestamp...), b.Timestamp...), got.Timestamp)
	assert.Equal(t, model.None(), got.BidSize[3])
	assert.Equal(t, model.Some(2500.3), got.AskPrice[0])

	// inputs are not aliased
	got.Timestamp[0] = 0
	assert.NotZero(t, a.Timestamp[0])

	assert.Equal(t, 0, Concat().Len())
}
