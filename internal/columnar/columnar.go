package columnar

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/rickgao/quote-collector/internal/model"
)

// Schema is the Arrow schema of every quote table.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: model.ColTimestamp, Type: arrow.PrimitiveTypes.Int64},
	{Name: model.ColBidPrice, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: model.ColAskPrice, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: model.ColBidSize, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: model.ColAskSize, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

// hideCloser keeps encoders from closing the caller's writer.
type hideCloser struct {
	io.Writer
}

func floatColumns(b *model.Batch) [4]*[]model.Float {
	return [4]*[]model.Float{&b.BidPrice, &b.AskPrice, &b.BidSize, &b.AskSize}
}

// NewRecord builds an Arrow record from batch. The caller releases it.
func NewRecord(mem memory.Allocator, batch model.Batch) arrow.Record {
	b := array.NewRecordBuilder(mem, Schema)
	defer b.Release()

	b.Field(0).(*array.Int64Builder).AppendValues(batch.Timestamp, nil)
	for i, col := range floatColumns(&batch) {
		fb := b.Field(i + 1).(*array.Float64Builder)
		fb.Reserve(len(*col))
		for _, v := range *col {
			if v.Valid {
				fb.Append(v.Value)
			} else {
				fb.AppendNull()
			}
		}
	}
	return b.NewRecord()
}

// compatible reports whether s has the quote columns in order. Metadata and
// nullability added by file readers are ignored.
func compatible(s *arrow.Schema) bool {
	if s.NumFields() != Schema.NumFields() {
		return false
	}
	for i, f := range Schema.Fields() {
		got := s.Field(i)
		if got.Name != f.Name || !arrow.TypeEqual(got.Type, f.Type) {
			return false
		}
	}
	return true
}

// appendRecord appends the rows of rec to batch.
func appendRecord(batch *model.Batch, rec arrow.Record) error {
	if !compatible(rec.Schema()) {
		return fmt.Errorf("%w: unexpected schema %s", model.ErrDataFormat, rec.Schema())
	}

	ts, ok := rec.Column(0).(*array.Int64)
	if !ok {
		return fmt.Errorf("%w: timestamp column is %s", model.ErrDataFormat, rec.Column(0).DataType())
	}
	batch.Timestamp = append(batch.Timestamp, ts.Int64Values()...)

	for i, col := range floatColumns(batch) {
		arr, ok := rec.Column(i + 1).(*array.Float64)
		if !ok {
			return fmt.Errorf("%w: column %s is %s", model.ErrDataFormat, Schema.Field(i+1).Name, rec.Column(i+1).DataType())
		}
		for j := 0; j < arr.Len(); j++ {
			if arr.IsNull(j) {
				*col = append(*col, model.None())
			} else {
				*col = append(*col, model.Some(arr.Value(j)))
			}
		}
	}
	return nil
}

// WriteParquet writes batch as a single Snappy-compressed Parquet file.
// w is not closed.
func WriteParquet(w io.Writer, batch model.Batch) error {
	rec := NewRecord(memory.DefaultAllocator, batch)
	defer rec.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithAllocator(memory.DefaultAllocator),
	)
	fw, err := pqarrow.NewFileWriter(Schema, hideCloser{w}, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// ReadParquet reads a Parquet file written by WriteParquet.
func ReadParquet(ctx context.Context, r parquet.ReaderAtSeeker) (model.Batch, error) {
	mem := memory.DefaultAllocator
	tbl, err := pqarrow.ReadTable(ctx, r, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return model.Batch{}, fmt.Errorf("%w: read parquet: %w", model.ErrDataFormat, err)
	}
	defer tbl.Release()

	var batch model.Batch
	tr := array.NewTableReader(tbl, tbl.NumRows()+1)
	defer tr.Release()
	for tr.Next() {
		if err := appendRecord(&batch, tr.Record()); err != nil {
			return model.Batch{}, err
		}
	}
	if err := tr.Err(); err != nil {
		return model.Batch{}, fmt.Errorf("%w: read parquet: %w", model.ErrDataFormat, err)
	}
	return batch, nil
}

// WriteIPC writes batch as an uncompressed Arrow IPC stream. w is not closed.
func WriteIPC(w io.Writer, batch model.Batch) error {
	rec := NewRecord(memory.DefaultAllocator, batch)
	defer rec.Release()

	iw := ipc.NewWriter(hideCloser{w}, ipc.WithSchema(Schema), ipc.WithAllocator(memory.DefaultAllocator))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return fmt.Errorf("write ipc: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("close ipc writer: %w", err)
	}
	return nil
}

// ReadIPC reads every record of an Arrow IPC stream into one batch.
func ReadIPC(r io.Reader) (model.Batch, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return model.Batch{}, fmt.Errorf("%w: open ipc stream: %w", model.ErrDataFormat, err)
	}
	defer rdr.Release()

	var batch model.Batch
	for rdr.Next() {
		if err := appendRecord(&batch, rdr.Record()); err != nil {
			return model.Batch{}, err
		}
	}
	if err := rdr.Err(); err != nil {
		return model.Batch{}, fmt.Errorf("%w: read ipc stream: %w", model.ErrDataFormat, err)
	}
	return batch, nil
}

// Concat joins batches in order. The result carries the first batch's pair.
func Concat(batches ...model.Batch) model.Batch {
	var out model.Batch
	n := 0
	for _, b := range batches {
		n += b.Len()
	}
	if len(batches) > 0 {
		out.Pair = batches[0].Pair
	}
	out.Timestamp = make([]int64, 0, n)
	for _, col := range floatColumns(&out) {
		*col = make([]model.Float, 0, n)
	}
	for i := range batches {
		out.Timestamp = append(out.Timestamp, batches[i].Timestamp...)
		src := floatColumns(&batches[i])
		for j, col := range floatColumns(&out) {
			*col = append(*col, *src[j]...)
		}
	}
	return out
}
