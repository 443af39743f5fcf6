package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/quote-collector/internal/config"
	"github.com/rickgao/quote-collector/internal/model"
)

// Exchange ids served by BinanceSource.
const (
	ExchangeBinance            = "binance"
	ExchangeBinanceUSDSFutures = "binance-usds-futures"
)

// BinanceConfig configures BinanceSource.
type BinanceConfig struct {
	SpotURL           string // combined stream endpoint, e.g. wss://stream.binance.com:9443/stream
	USDSFuturesURL    string // e.g. wss://fstream.binance.com/stream
	Client            ClientConfig
	ReconnectBaseWait time.Duration
	ReconnectMaxWait  time.Duration
	QueueSize         int // initial queue capacity
}

// DefaultBinanceConfig returns production endpoints and defaults.
func DefaultBinanceConfig() BinanceConfig {
	return BinanceConfig{
		SpotURL:           "wss://stream.binance.com:9443/stream",
		USDSFuturesURL:    "wss://fstream.binance.com/stream",
		Client:            DefaultClientConfig(),
		ReconnectBaseWait: time.Second,
		ReconnectMaxWait:  60 * time.Second,
		QueueSize:         4096,
	}
}

// BinanceConfigFrom maps the feed section of the collector config.
func BinanceConfigFrom(cfg config.FeedConfig) BinanceConfig {
	return BinanceConfig{
		SpotURL:        cfg.BinanceSpotURL,
		USDSFuturesURL: cfg.BinanceUSDSFuturesURL,
		Client: ClientConfig{
			PingTimeout:  cfg.PingTimeout,
			WriteTimeout: cfg.WriteTimeout,
			BufferSize:   cfg.BufferSize,
		},
		ReconnectBaseWait: cfg.ReconnectBaseDelay,
		ReconnectMaxWait:  cfg.ReconnectMaxDelay,
		QueueSize:         cfg.BufferSize,
	}
}

// bookTicker is the payload of <symbol>@bookTicker. Spot frames carry no
// event or transaction time.
type bookTicker struct {
	Symbol          string `json:"s"`
	BidPrice        string `json:"b"`
	BidQty          string `json:"B"`
	AskPrice        string `json:"a"`
	AskQty          string `json:"A"`
	EventTime       int64  `json:"E"`
	TransactionTime int64  `json:"T"`
}

type combinedFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// BinanceSource streams top-of-book quotes from Binance.
type BinanceSource struct {
	cfg    BinanceConfig
	logger *slog.Logger
	queue  *Queue[Event]

	mu      sync.Mutex
	cancel  context.CancelFunc
	clients map[string]*client // current connection per exchange
	wg      sync.WaitGroup
}

// NewBinanceSource creates a source. No connection is made until Subscribe.
func NewBinanceSource(cfg BinanceConfig, logger *slog.Logger) *BinanceSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &BinanceSource{
		cfg:    cfg,
		logger: logger,
		queue:  NewQueue[Event](cfg.QueueSize),
	}
}

// Subscribe opens one combined-stream connection per exchange.
func (s *BinanceSource) Subscribe(ctx context.Context, subs []Subscription) error {
	byExchange := make(map[string]map[string]string)
	var order []string
	for _, sub := range subs {
		if _, err := s.endpoint(sub.Exchange); err != nil {
			return err
		}
		routes, ok := byExchange[sub.Exchange]
		if !ok {
			routes = make(map[string]string)
			byExchange[sub.Exchange] = routes
			order = append(order, sub.Exchange)
		}
		routes[strings.ToUpper(sub.Instrument)] = sub.CorrelationID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("%w: source already subscribed", model.ErrConfiguration)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, ex := range order {
		routes := byExchange[ex]
		streamURL, err := s.streamURL(ex, routes)
		if err != nil {
			cancel()
			return err
		}
		s.wg.Add(1)
		go s.run(runCtx, ex, streamURL, routes)

		s.logger.Info("subscribed",
			"exchange", ex,
			"markets", len(routes),
		)
	}
	return nil
}

// Purge returns all events received since the previous call.
func (s *BinanceSource) Purge() []Event {
	return s.queue.Purge()
}

// Stats returns queue statistics.
func (s *BinanceSource) Stats() QueueStats {
	return s.queue.Stats()
}

// Connections reports, per subscribed exchange, whether its websocket is
// currently connected.
func (s *BinanceSource) Connections() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.clients))
	for ex, c := range s.clients {
		out[ex] = c.isConnected()
	}
	return out
}

func (s *BinanceSource) setClient(exchange string, c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients == nil {
		s.clients = make(map[string]*client)
	}
	s.clients[exchange] = c
}

// Close stops every connection. Events already queued remain purgeable.
func (s *BinanceSource) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.queue.Close()
	return nil
}

func (s *BinanceSource) endpoint(exchange string) (string, error) {
	switch exchange {
	case ExchangeBinance:
		return s.cfg.SpotURL, nil
	case ExchangeBinanceUSDSFutures:
		return s.cfg.USDSFuturesURL, nil
	default:
		return "", fmt.Errorf("%w: no feed for exchange %q", model.ErrConfiguration, exchange)
	}
}

func (s *BinanceSource) streamURL(exchange string, routes map[string]string) (string, error) {
	base, err := s.endpoint(exchange)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: feed url %q: %v", model.ErrConfiguration, base, err)
	}
	streams := make([]string, 0, len(routes))
	for symbol := range routes {
		streams = append(streams, strings.ToLower(symbol)+"@bookTicker")
	}
	q := u.Query()
	q.Set("streams", strings.Join(streams, "/"))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// run keeps one connection alive, reconnecting with exponential backoff.
func (s *BinanceSource) run(ctx context.Context, exchange, streamURL string, routes map[string]string) {
	defer s.wg.Done()

	logger := s.logger.With("exchange", exchange)
	wait := s.cfg.ReconnectBaseWait
	if wait <= 0 {
		wait = time.Second
	}

	for {
		cfg := s.cfg.Client
		cfg.URL = streamURL
		c := newClient(exchange, cfg, logger)
		s.setClient(exchange, c)

		if err := c.connect(ctx); err != nil {
			logger.Warn("connect failed", "error", err, "retry_in", wait)
		} else {
			wait = s.cfg.ReconnectBaseWait
			if wait <= 0 {
				wait = time.Second
			}
			if err := s.consume(ctx, exchange, c, routes); err != nil {
				logger.Warn("connection lost", "error", err, "retry_in", wait)
			}
		}
		c.close()

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		wait *= 2
		if s.cfg.ReconnectMaxWait > 0 && wait > s.cfg.ReconnectMaxWait {
			wait = s.cfg.ReconnectMaxWait
		}
	}
}

func (s *BinanceSource) consume(ctx context.Context, exchange string, c *client, routes map[string]string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-c.errs:
			return err
		case msg := <-c.messages:
			ev, ok, err := decodeBookTicker(msg, routes)
			if err != nil {
				s.logger.Debug("undecodable frame", "exchange", exchange, "error", err)
				continue
			}
			if ok {
				s.queue.Push(ev)
			}
		}
	}
}

// decodeBookTicker converts one combined-stream frame to an Event. ok is
// false for control frames and symbols that were not subscribed.
func decodeBookTicker(msg TimestampedMessage, routes map[string]string) (Event, bool, error) {
	var frame combinedFrame
	if err := json.Unmarshal(msg.Data, &frame); err != nil {
		return Event{}, false, fmt.Errorf("unmarshal frame: %w", err)
	}
	if len(frame.Data) == 0 {
		return Event{}, false, nil
	}

	var bt bookTicker
	if err := json.Unmarshal(frame.Data, &bt); err != nil {
		return Event{}, false, fmt.Errorf("unmarshal bookTicker: %w", err)
	}
	correlationID, ok := routes[strings.ToUpper(bt.Symbol)]
	if !ok {
		return Event{}, false, nil
	}

	ts := msg.ReceivedAt
	switch {
	case bt.TransactionTime > 0:
		ts = time.UnixMilli(bt.TransactionTime)
	case bt.EventTime > 0:
		ts = time.UnixMilli(bt.EventTime)
	}

	return Event{
		Type:          EventTypeSubscriptionData,
		CorrelationID: correlationID,
		TimeISO:       ts.UTC().Format(time.RFC3339Nano),
		Elements: []Element{
			{Values: sideValues(BidPrice, bt.BidPrice, BidSize, bt.BidQty)},
			{Values: sideValues(AskPrice, bt.AskPrice, AskSize, bt.AskQty)},
		},
	}, true, nil
}

// sideValues leaves out empty fields so absence survives to storage.
func sideValues(priceKey, price, sizeKey, size string) map[string]string {
	m := make(map[string]string, 2)
	if price != "" {
		m[priceKey] = price
	}
	if size != "" {
		m[sizeKey] = size
	}
	return m
}
