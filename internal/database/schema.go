package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// TableQuoteTicks is the row-insert destination table.
const TableQuoteTicks = "quote_ticks"

// QuoteTickColumns is the insert column order for TableQuoteTicks.
var QuoteTickColumns = []string{
	"timestamp", "symbol", "exchange", "bid_price", "ask_price", "bid_size", "ask_size",
}

// Absent quote values are stored as NULL.
var timescaleSchema = []string{
	`CREATE EXTENSION IF NOT EXISTS timescaledb`,
	`CREATE TABLE IF NOT EXISTS quote_ticks (
		timestamp TIMESTAMPTZ NOT NULL,
		symbol    TEXT NOT NULL,
		exchange  TEXT NOT NULL,
		bid_price DOUBLE PRECISION,
		ask_price DOUBLE PRECISION,
		bid_size  DOUBLE PRECISION,
		ask_size  DOUBLE PRECISION
	)`,
	`SELECT create_hypertable('quote_ticks', 'timestamp',
		chunk_time_interval => INTERVAL '1 day',
		if_not_exists => TRUE)`,
	`CREATE INDEX IF NOT EXISTS quote_ticks_exchange_symbol_ts_idx
		ON quote_ticks (exchange, symbol, timestamp DESC)`,
}

var clickhouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS quote_ticks (
		timestamp DateTime64(9) CODEC(Delta, ZSTD(1)),
		symbol    LowCardinality(String) CODEC(ZSTD(1)),
		exchange  LowCardinality(String) CODEC(ZSTD(1)),
		bid_price Nullable(Float64) CODEC(ZSTD(1)),
		ask_price Nullable(Float64) CODEC(ZSTD(1)),
		bid_size  Nullable(Float64) CODEC(ZSTD(1)),
		ask_size  Nullable(Float64) CODEC(ZSTD(1))
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMMDD(timestamp)
	ORDER BY (timestamp)
	SETTINGS index_granularity = 8192`,
}

// PgExecer is satisfied by *pgxpool.Pool and pgx.Tx.
type PgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ClickHouseExecer is satisfied by driver.Conn.
type ClickHouseExecer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// EnsureTimescaleSchema creates the quote_ticks hypertable if it does not exist.
func EnsureTimescaleSchema(ctx context.Context, db PgExecer) error {
	for _, stmt := range timescaleSchema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure timescale schema: %w", err)
		}
	}
	return nil
}

// EnsureClickHouseSchema creates the quote_ticks table if it does not exist.
func EnsureClickHouseSchema(ctx context.Context, db ClickHouseExecer) error {
	for _, stmt := range clickhouseSchema {
		if err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure clickhouse schema: %w", err)
		}
	}
	return nil
}
