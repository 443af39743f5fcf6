package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultInterval                = 60 * time.Second
	DefaultSizeHint                = 1024
	DefaultStagingSubdir           = ".staging"
	DefaultTimescalePort           = 5432
	DefaultClickHousePort          = 9000
	DefaultDBSSLMode               = "prefer"
	DefaultMaxConns                = 10
	DefaultMinConns                = 2
	DefaultS3Region                = "us-east-1"
	DefaultFeedUSDSFuturesURL      = "wss://fstream.binance.com/stream"
	DefaultFeedSpotURL             = "wss://stream.binance.com:9443/stream"
	DefaultPingTimeout             = 60 * time.Second
	DefaultWriteTimeout            = 5 * time.Second
	DefaultFeedBufferSize          = 4096
	DefaultReconnectBaseDelay      = 1 * time.Second
	DefaultReconnectMaxDelay       = 60 * time.Second
	DefaultDiscoveryUSDSFuturesURL = "https://fapi.binance.com"
	DefaultDiscoverySpotURL        = "https://api.binance.com"
	DefaultDiscoveryTimeout        = 30 * time.Second
	DefaultDiscoveryMaxRetries     = 3
	DefaultMetricsPort             = 9090
	DefaultMetricsPath             = "/metrics"
	DefaultLogLevel                = "info"
)

func (c *Config) applyDefaults() {
	// Collector defaults
	if c.Collector.Interval == 0 {
		c.Collector.Interval = DefaultInterval
	}
	if c.Collector.SizeHint == 0 {
		c.Collector.SizeHint = DefaultSizeHint
	}

	// Output defaults
	if c.Output.StagingDir == "" && c.Output.DataDir != "" && !c.Output.IsS3() {
		root := strings.TrimPrefix(c.Output.DataDir, "file://")
		c.Output.StagingDir = filepath.Join(root, DefaultStagingSubdir)
	}

	// Database defaults
	if c.Output.Policy == PolicyDatabase {
		applyDBDefaults(&c.Database)
	}

	// Storage defaults
	if c.Storage.S3.Region == "" {
		c.Storage.S3.Region = DefaultS3Region
	}

	// Feed defaults
	if c.Feed.BinanceUSDSFuturesURL == "" {
		c.Feed.BinanceUSDSFuturesURL = DefaultFeedUSDSFuturesURL
	}
	if c.Feed.BinanceSpotURL == "" {
		c.Feed.BinanceSpotURL = DefaultFeedSpotURL
	}
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}

	// Discovery defaults
	if c.Discovery.BinanceUSDSFuturesURL == "" {
		c.Discovery.BinanceUSDSFuturesURL = DefaultDiscoveryUSDSFuturesURL
	}
	if c.Discovery.BinanceSpotURL == "" {
		c.Discovery.BinanceSpotURL = DefaultDiscoverySpotURL
	}
	if c.Discovery.Timeout == 0 {
		c.Discovery.Timeout = DefaultDiscoveryTimeout
	}
	if c.Discovery.MaxRetries == 0 {
		c.Discovery.MaxRetries = DefaultDiscoveryMaxRetries
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Driver == "" {
		db.Driver = DriverTimescale
	}
	if db.Port == 0 {
		switch db.Driver {
		case DriverClickHouse:
			db.Port = DefaultClickHousePort
		default:
			db.Port = DefaultTimescalePort
		}
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
