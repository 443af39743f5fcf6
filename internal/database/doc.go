// Package database provides connection management and schema setup for the
// row-insert output policy.
//
// Two drivers are supported:
//   - TimescaleDB via pgx: quote_ticks hypertable with 1-day chunks
//   - ClickHouse: quote_ticks MergeTree partitioned by day
package database
