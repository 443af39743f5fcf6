package database

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/quote-collector/internal/config"
	"github.com/rickgao/quote-collector/internal/model"
)

// Conns holds the database connection for the configured driver. Exactly one
// field is set.
type Conns struct {
	Timescale  *pgxpool.Pool
	ClickHouse driver.Conn
}

// Open connects using cfg.Driver.
func Open(ctx context.Context, cfg config.DBConfig) (*Conns, error) {
	switch cfg.Driver {
	case config.DriverTimescale:
		pool, err := Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect timescale: %w", err)
		}
		return &Conns{Timescale: pool}, nil
	case config.DriverClickHouse:
		conn, err := ConnectClickHouse(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		return &Conns{ClickHouse: conn}, nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", model.ErrConfiguration, cfg.Driver)
	}
}

// Connect creates a single connection pool.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: parse connection string: %w", model.ErrConfiguration, err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping database: %w", model.ErrTransientIO, err)
	}

	return pool, nil
}

// ConnectClickHouse opens a native-protocol ClickHouse connection.
func ConnectClickHouse(ctx context.Context, cfg config.DBConfig) (driver.Conn, error) {
	conn, err := clickhouse.Open(BuildClickHouseOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: open clickhouse: %w", model.ErrConfiguration, err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: ping clickhouse: %w", model.ErrTransientIO, err)
	}

	return conn, nil
}

// Close closes whichever connection is open.
func (c *Conns) Close() {
	if c.Timescale != nil {
		c.Timescale.Close()
	}
	if c.ClickHouse != nil {
		c.ClickHouse.Close()
	}
}

// Ping verifies the connection is healthy.
func (c *Conns) Ping(ctx context.Context) error {
	if c.Timescale != nil {
		if err := c.Timescale.Ping(ctx); err != nil {
			return fmt.Errorf("ping timescale: %w", err)
		}
	}
	if c.ClickHouse != nil {
		if err := c.ClickHouse.Ping(ctx); err != nil {
			return fmt.Errorf("ping clickhouse: %w", err)
		}
	}
	return nil
}

// EnsureSchema creates the quote_ticks table for the open driver.
func (c *Conns) EnsureSchema(ctx context.Context) error {
	if c.Timescale != nil {
		return EnsureTimescaleSchema(ctx, c.Timescale)
	}
	if c.ClickHouse != nil {
		return EnsureClickHouseSchema(ctx, c.ClickHouse)
	}
	return nil
}
