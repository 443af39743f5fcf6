package config

import (
	"strings"
	"time"
)

// Output policies.
const (
	PolicyDirect   = "direct"
	PolicyStaged   = "staged"
	PolicyDatabase = "database"
)

// Database drivers.
const (
	DriverTimescale  = "timescale"
	DriverClickHouse = "clickhouse"
)

// Config is the root configuration for a collector instance.
type Config struct {
	Collector CollectorConfig `yaml:"collector"`
	Output    OutputConfig    `yaml:"output"`
	Database  DBConfig        `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Feed      FeedConfig      `yaml:"feed"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// CollectorConfig selects what is collected and how often it is flushed.
type CollectorConfig struct {
	Exchanges    []string      `yaml:"exchanges"`
	Markets      []string      `yaml:"markets"`
	MarketFilter string        `yaml:"market_filter"` // case-insensitive regex, triggers discovery
	Interval     time.Duration `yaml:"interval"`
	SizeHint     int           `yaml:"size_hint"`
}

// Discovers reports whether pairs come from instrument discovery rather than
// the static markets list.
func (c CollectorConfig) Discovers() bool {
	return c.MarketFilter != ""
}

// OutputConfig selects the write policy and its locations.
type OutputConfig struct {
	Policy     string `yaml:"policy"`
	DataDir    string `yaml:"data_dir"`    // local path, file:// URI or s3://bucket/prefix
	StagingDir string `yaml:"staging_dir"` // always local
}

// IsS3 reports whether the data directory is an object store URI.
func (o OutputConfig) IsS3() bool {
	return strings.HasPrefix(o.DataDir, "s3://")
}

// DBConfig holds the row-insert database connection.
type DBConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// StorageConfig holds object storage settings.
type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config configures the s3:// backend. Credentials come from the default
// AWS chain.
type S3Config struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// FeedConfig holds websocket feed settings.
type FeedConfig struct {
	BinanceUSDSFuturesURL string        `yaml:"binance_usds_futures_url"`
	BinanceSpotURL        string        `yaml:"binance_spot_url"`
	PingTimeout           time.Duration `yaml:"ping_timeout"`
	WriteTimeout          time.Duration `yaml:"write_timeout"`
	BufferSize            int           `yaml:"buffer_size"`
	ReconnectBaseDelay    time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay     time.Duration `yaml:"reconnect_max_delay"`
}

// DiscoveryConfig holds instrument listing settings.
type DiscoveryConfig struct {
	BinanceUSDSFuturesURL string        `yaml:"binance_usds_futures_url"`
	BinanceSpotURL        string        `yaml:"binance_spot_url"`
	Timeout               time.Duration `yaml:"timeout"`
	MaxRetries            int           `yaml:"max_retries"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}
