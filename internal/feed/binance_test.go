package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rickgao/quote-collector/internal/metrics"
	"github.com/rickgao/quote-collector/internal/model"
)

func mockWSServer(t *testing.T, handler func(*http.Request, *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(r, conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/stream"
}

func TestDecodeBookTicker(t *testing.T) {
	routes := map[string]string{"ETHUSDT": "binance-usds-futures,ethusdt"}
	receivedAt := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("futures frame uses transaction time", func(t *testing.T) {
		msg := TimestampedMessage{
			Data:       []byte(`{"stream":"ethusdt@bookTicker","data":{"e":"bookTicker","u":1,"E":1705320000123,"T":1705320000100,"s":"ETHUSDT","b":"2500.10","B":"3.5","a":"2500.20","A":"1.25"}}`),
			ReceivedAt: receivedAt,
		}
		ev, ok, err := decodeBookTicker(msg, routes)
		if err != nil || !ok {
			t.Fatalf("decodeBookTicker() = ok %v, err %v", ok, err)
		}
		if ev.Type != EventTypeSubscriptionData {
			t.Errorf("Type = %q, want %q", ev.Type, EventTypeSubscriptionData)
		}
		if ev.CorrelationID != "binance-usds-futures,ethusdt" {
			t.Errorf("CorrelationID = %q", ev.CorrelationID)
		}
		if ev.TimeISO != "2024-01-15T12:00:00.1Z" {
			t.Errorf("TimeISO = %q, want 2024-01-15T12:00:00.1Z", ev.TimeISO)
		}
		if v, _ := ev.Elements[0].Value(BidPrice); v != "2500.10" {
			t.Errorf("bid price = %q, want 2500.10", v)
		}
		if v, _ := ev.Elements[1].Value(AskSize); v != "1.25" {
			t.Errorf("ask size = %q, want 1.25", v)
		}
	})

	t.Run("spot frame falls back to receive time", func(t *testing.T) {
		msg := TimestampedMessage{
			Data:       []byte(`{"stream":"ethusdt@bookTicker","data":{"u":1,"s":"ETHUSDT","b":"1","B":"2","a":"3","A":""}}`),
			ReceivedAt: receivedAt,
		}
		ev, ok, err := decodeBookTicker(msg, routes)
		if err != nil || !ok {
			t.Fatalf("decodeBookTicker() = ok %v, err %v", ok, err)
		}
		if ev.TimeISO != "2024-01-15T12:00:00Z" {
			t.Errorf("TimeISO = %q, want receive time", ev.TimeISO)
		}
		if _, present := ev.Elements[1].Value(AskSize); present {
			t.Error("empty ask size should be absent")
		}
	})

	t.Run("control and foreign frames are skipped", func(t *testing.T) {
		for _, raw := range []string{
			`{"result":null,"id":1}`,
			`{"stream":"btcusdt@bookTicker","data":{"s":"BTCUSDT","b":"1","B":"1","a":"1","A":"1"}}`,
		} {
			_, ok, err := decodeBookTicker(TimestampedMessage{Data: []byte(raw)}, routes)
			if err != nil || ok {
				t.Errorf("decodeBookTicker(%s) = ok %v, err %v; want skipped", raw, ok, err)
			}
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, _, err := decodeBookTicker(TimestampedMessage{Data: []byte("{")}, routes); err == nil {
			t.Error("expected error for malformed frame")
		}
	})
}

func TestBinanceSource_SubscribeAndPurge(t *testing.T) {
	streams := make(chan string, 1)
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		streams <- r.URL.Query().Get("streams")
		frame := `{"stream":"ethusdt@bookTicker","data":{"e":"bookTicker","E":1705320000000,"T":1705320000000,"s":"ETHUSDT","b":"1","B":"2","a":"3","A":"4"}}`
		for i := 0; i < 3; i++ {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := DefaultBinanceConfig()
	cfg.USDSFuturesURL = wsURL(server)
	src := NewBinanceSource(cfg, nil)
	defer src.Close()

	err := src.Subscribe(context.Background(), []Subscription{{
		Exchange:      ExchangeBinanceUSDSFutures,
		Instrument:    "ETHUSDT",
		Field:         FieldMarketDepth,
		Options:       OptionTopOfBook,
		CorrelationID: "binance-usds-futures,ethusdt",
	}})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case got := <-streams:
		if got != "ethusdt@bookTicker" {
			t.Errorf("streams = %q, want ethusdt@bookTicker", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw a connection")
	}

	var events []Event
	deadline := time.Now().Add(5 * time.Second)
	for len(events) < 3 && time.Now().Before(deadline) {
		events = append(events, src.Purge()...)
		time.Sleep(10 * time.Millisecond)
	}
	if len(events) != 3 {
		t.Fatalf("received %d events, want 3", len(events))
	}
	if src.Stats().TotalPurged != 3 {
		t.Errorf("TotalPurged = %d, want 3", src.Stats().TotalPurged)
	}
	if conns := src.Connections(); !conns[ExchangeBinanceUSDSFutures] {
		t.Errorf("Connections() = %v, want %s connected", conns, ExchangeBinanceUSDSFutures)
	}
}

func TestClient_CountsDroppedFrames(t *testing.T) {
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		for i := 0; i < 10; i++ {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{}`)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	const exchange = "drop-test"
	before := testutil.ToFloat64(metrics.FramesDropped.WithLabelValues(exchange))

	c := newClient(exchange, ClientConfig{
		URL:          wsURL(server),
		PingTimeout:  time.Minute,
		WriteTimeout: time.Second,
		BufferSize:   1,
	}, nil)
	if err := c.connect(context.Background()); err != nil {
		t.Fatalf("connect() error = %v", err)
	}
	defer c.close()

	// nobody reads c.messages: one frame fits, the other nine are dropped
	deadline := time.Now().Add(5 * time.Second)
	var dropped float64
	for time.Now().Before(deadline) {
		dropped = testutil.ToFloat64(metrics.FramesDropped.WithLabelValues(exchange)) - before
		if dropped >= 9 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if dropped != 9 {
		t.Errorf("frames dropped = %v, want 9", dropped)
	}
	if !c.isConnected() {
		t.Error("client should stay connected while dropping frames")
	}
}

func TestBinanceSource_UnknownExchange(t *testing.T) {
	src := NewBinanceSource(DefaultBinanceConfig(), nil)
	err := src.Subscribe(context.Background(), []Subscription{{Exchange: "okx", Instrument: "BTC-USDT-SWAP"}})
	if !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("Subscribe(okx) error = %v, want ErrConfiguration", err)
	}
}

func TestBinanceSource_SubscribeTwice(t *testing.T) {
	src := NewBinanceSource(DefaultBinanceConfig(), nil)
	defer src.Close()

	if err := src.Subscribe(context.Background(), nil); err != nil {
		t.Fatalf("first Subscribe() error = %v", err)
	}
	if err := src.Subscribe(context.Background(), nil); !errors.Is(err, model.ErrConfiguration) {
		t.Errorf("second Subscribe() error = %v, want ErrConfiguration", err)
	}
}
