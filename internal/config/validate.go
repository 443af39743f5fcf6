package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rickgao/quote-collector/internal/symbol"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if len(c.Collector.Exchanges) == 0 {
		return errors.New("collector.exchanges is required")
	}
	for _, ex := range c.Collector.Exchanges {
		if _, err := symbol.Lookup(ex); err != nil {
			return fmt.Errorf("collector.exchanges: %w", err)
		}
	}
	if len(c.Collector.Markets) == 0 && c.Collector.MarketFilter == "" {
		return errors.New("collector.markets or collector.market_filter is required")
	}
	if len(c.Collector.Markets) > 0 && c.Collector.MarketFilter != "" {
		return errors.New("collector.markets and collector.market_filter are mutually exclusive")
	}
	// Markets are subscribed by their upper-cased native id, so entries that
	// differ only in case would share one stream.
	seen := make(map[string]string, len(c.Collector.Markets))
	for _, m := range c.Collector.Markets {
		if m == "" {
			return errors.New("collector.markets must not contain empty entries")
		}
		key := strings.ToUpper(m)
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("collector.markets: %q duplicates %q (markets are case-insensitive)", m, prev)
		}
		seen[key] = m
	}
	if c.Collector.MarketFilter != "" {
		if _, err := symbol.CompileFilter(c.Collector.MarketFilter); err != nil {
			return fmt.Errorf("collector.market_filter: %w", err)
		}
	}
	if c.Collector.Interval <= 0 {
		return fmt.Errorf("collector.interval must be > 0, got %s", c.Collector.Interval)
	}
	if c.Collector.SizeHint < 1 {
		return errors.New("collector.size_hint must be >= 1")
	}

	switch c.Output.Policy {
	case PolicyDirect:
		if c.Output.DataDir == "" {
			return errors.New("output.data_dir is required")
		}
	case PolicyStaged:
		if c.Output.DataDir == "" {
			return errors.New("output.data_dir is required")
		}
		if c.Output.StagingDir == "" {
			return errors.New("output.staging_dir is required when output.data_dir is on s3")
		}
		if strings.Contains(c.Output.StagingDir, "://") && !strings.HasPrefix(c.Output.StagingDir, "file://") {
			return fmt.Errorf("output.staging_dir must be local, got %q", c.Output.StagingDir)
		}
	case PolicyDatabase:
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	case "":
		return errors.New("output.policy is required")
	default:
		return fmt.Errorf("output.policy must be one of direct, staged, database, got %q", c.Output.Policy)
	}

	if c.Feed.BufferSize < 1 {
		return errors.New("feed.buffer_size must be >= 1")
	}
	if c.Discovery.MaxRetries < 0 {
		return errors.New("discovery.max_retries must be >= 0")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	switch db.Driver {
	case DriverTimescale, DriverClickHouse:
	default:
		return fmt.Errorf("%s.driver must be timescale or clickhouse, got %q", prefix, db.Driver)
	}
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
