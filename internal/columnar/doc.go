// Package columnar encodes quote batches as Apache Arrow records.
//
// Two on-disk forms are produced: Snappy-compressed Parquet for published
// tables, and uncompressed Arrow IPC streams for staged intermediates. Both
// preserve absent values as nulls.
package columnar
