package database

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/rickgao/quote-collector/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// BuildClickHouseOptions maps the shared database config onto the native
// ClickHouse protocol options. ssl_mode require/verify-ca/verify-full enable TLS.
func BuildClickHouseOptions(cfg config.DBConfig) *clickhouse.Options {
	opts := &clickhouse.Options{
		Addr: []string{cfg.Host + ":" + strconv.Itoa(cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Name,
			Username: cfg.User,
			Password: cfg.Password,
		},
		MaxOpenConns: cfg.MaxConns,
		MaxIdleConns: cfg.MinConns,
		DialTimeout:  10 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	}

	switch cfg.SSLMode {
	case "require", "verify-ca", "verify-full":
		opts.TLS = &tls.Config{ServerName: cfg.Host}
	}

	return opts
}
