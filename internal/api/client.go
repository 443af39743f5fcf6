package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/quote-collector/internal/config"
)

// Default base URLs per exchange.
const (
	DefaultBinanceSpotURL        = "https://api.binance.com"
	DefaultBinanceUSDSFuturesURL = "https://fapi.binance.com"
)

// Client provides access to exchange REST APIs.
type Client struct {
	endpoints  map[string]string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		endpoints: map[string]string{
			ExchangeBinance:            DefaultBinanceSpotURL,
			ExchangeBinanceUSDSFutures: DefaultBinanceUSDSFuturesURL,
		},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromConfig creates a client from the discovery settings.
func NewClientFromConfig(cfg config.DiscoveryConfig, logger *slog.Logger) *Client {
	opts := []ClientOption{
		WithEndpoint(ExchangeBinance, cfg.BinanceSpotURL),
		WithEndpoint(ExchangeBinanceUSDSFutures, cfg.BinanceUSDSFuturesURL),
		WithRetries(cfg.MaxRetries, time.Second),
		WithLogger(logger),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	return NewClient(opts...)
}

// WithEndpoint overrides the base URL of one exchange.
func WithEndpoint(exchange, baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.endpoints[exchange] = baseURL
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
