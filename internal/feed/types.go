package feed

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// EventType discriminates events. Only subscription data is consumed by the
// collector.
type EventType string

const (
	EventTypeSubscriptionData   EventType = "SUBSCRIPTION_DATA"
	EventTypeSubscriptionStatus EventType = "SUBSCRIPTION_STATUS"
)

// Element value keys.
const (
	BidPrice = "BID_PRICE"
	BidSize  = "BID_SIZE"
	AskPrice = "ASK_PRICE"
	AskSize  = "ASK_SIZE"
)

// Subscription fields used for top-of-book quotes.
const (
	FieldMarketDepth = "MARKET_DEPTH"
	OptionTopOfBook  = "MARKET_DEPTH_MAX=1"
)

// Element is one named group of values (bid side or ask side).
type Element struct {
	Values map[string]string
}

// Value returns the value stored under key.
func (e Element) Value(key string) (string, bool) {
	v, ok := e.Values[key]
	return v, ok
}

// Event is one message from the source.
type Event struct {
	Type          EventType
	CorrelationID string    // "exchange,market"
	TimeISO       string    // RFC 3339 with nanoseconds
	Elements      []Element // bid, ask
}

// Subscription requests one market from one exchange.
type Subscription struct {
	Exchange      string
	Instrument    string // exchange-native id
	Field         string
	Options       string
	CorrelationID string
}

// Source is the event source consumed by the collector.
type Source interface {
	// Subscribe starts delivering events for subs.
	Subscribe(ctx context.Context, subs []Subscription) error

	// Purge returns every event accumulated since the previous call, in
	// arrival order.
	Purge() []Event

	// Close stops all connections.
	Close() error
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string
	PingTimeout  time.Duration // Max time without ping/pong before the connection is stale
	WriteTimeout time.Duration
	BufferSize   int // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   100000,
	}
}
