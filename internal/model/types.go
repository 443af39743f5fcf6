package model

import (
	"fmt"
	"strings"
	"time"
)

// Column names of the quote schema, in storage order.
const (
	ColTimestamp = "timestamp"
	ColBidPrice  = "bid_price"
	ColAskPrice  = "ask_price"
	ColBidSize   = "bid_size"
	ColAskSize   = "ask_size"
)

// Schema lists the fixed quote columns in order.
var Schema = []string{ColTimestamp, ColBidPrice, ColAskPrice, ColBidSize, ColAskSize}

// Float is a float64 that may be absent (an exchange omitted the side).
type Float struct {
	Value float64
	Valid bool
}

// Some returns a present Float.
func Some(v float64) Float {
	return Float{Value: v, Valid: true}
}

// None returns an absent Float.
func None() Float {
	return Float{}
}

// Ptr returns nil when absent, for drivers that map nil to NULL.
func (f Float) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// PairKey identifies one subscription and its buffer/rollover state.
type PairKey struct {
	Exchange string
	Market   string
}

// String returns "exchange/market".
func (p PairKey) String() string {
	return p.Exchange + "/" + p.Market
}

// CorrelationID returns the "exchange,market" form used on subscriptions.
func (p PairKey) CorrelationID() string {
	return p.Exchange + "," + p.Market
}

// ParseCorrelationID parses "exchange,market".
func ParseCorrelationID(id string) (PairKey, error) {
	exchange, market, ok := strings.Cut(id, ",")
	if !ok || exchange == "" || market == "" || strings.Contains(market, ",") {
		return PairKey{}, fmt.Errorf("%w: malformed correlation id %q", ErrConfiguration, id)
	}
	return PairKey{Exchange: exchange, Market: market}, nil
}

// QuoteTick is one best-bid/best-ask snapshot.
type QuoteTick struct {
	Timestamp int64 // ns since epoch
	Exchange  string
	Market    string
	BidPrice  Float
	AskPrice  Float
	BidSize   Float
	AskSize   Float
}

// Pair returns the tick's PairKey.
func (t QuoteTick) Pair() PairKey {
	return PairKey{Exchange: t.Exchange, Market: t.Market}
}

// Batch is an immutable column-wise set of rows for one pair.
// All columns have equal length.
type Batch struct {
	Pair      PairKey
	Timestamp []int64
	BidPrice  []Float
	AskPrice  []Float
	BidSize   []Float
	AskSize   []Float
}

// Len returns the number of rows.
func (b Batch) Len() int {
	return len(b.Timestamp)
}

// Empty reports whether the batch has no rows.
func (b Batch) Empty() bool {
	return len(b.Timestamp) == 0
}

// FirstTimestamp returns the first row's timestamp, or 0 for an empty batch.
func (b Batch) FirstTimestamp() int64 {
	if b.Empty() {
		return 0
	}
	return b.Timestamp[0]
}

// LastTimestamp returns the last row's timestamp, or 0 for an empty batch.
func (b Batch) LastTimestamp() int64 {
	if b.Empty() {
		return 0
	}
	return b.Timestamp[len(b.Timestamp)-1]
}

// MaxTimestamp returns the largest timestamp in the batch.
func (b Batch) MaxTimestamp() int64 {
	var m int64
	for i, ts := range b.Timestamp {
		if i == 0 || ts > m {
			m = ts
		}
	}
	return m
}

// Row returns row i as a QuoteTick.
func (b Batch) Row(i int) QuoteTick {
	return QuoteTick{
		Timestamp: b.Timestamp[i],
		Exchange:  b.Pair.Exchange,
		Market:    b.Pair.Market,
		BidPrice:  b.BidPrice[i],
		AskPrice:  b.AskPrice[i],
		BidSize:   b.BidSize[i],
		AskSize:   b.AskSize[i],
	}
}

// Day is a UTC calendar date.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// UTCDay returns the UTC calendar day containing ns.
func UTCDay(ns int64) Day {
	return DayOf(time.Unix(0, ns))
}

// DayOf returns the UTC calendar day containing t.
func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{Year: y, Month: m, Day: d}
}

// After reports whether d is strictly later than o.
func (d Day) After(o Day) bool {
	if d.Year != o.Year {
		return d.Year > o.Year
	}
	if d.Month != o.Month {
		return d.Month > o.Month
	}
	return d.Day > o.Day
}

// IsZero reports whether d is unset.
func (d Day) IsZero() bool {
	return d == Day{}
}

// Compact returns the YYYYMMDD form.
func (d Day) Compact() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

// String returns YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Target binds a pair to the exchange-native instrument id it is subscribed
// with. For statically configured markets Instrument is the upper-cased
// market; for discovered markets Pair.Market is the canonical symbol.
type Target struct {
	Pair       PairKey
	Instrument string
}
