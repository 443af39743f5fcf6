// Package writer persists drained quote batches.
//
// Policies:
//   - direct: one Snappy Parquet file per pair per flush
//   - staged: Arrow IPC files per flush, merged into one Parquet file per
//     pair per UTC day at rollover
//   - database: rows inserted into quote_ticks (TimescaleDB or ClickHouse)
//
// Empty batches never produce a file or a row.
package writer
