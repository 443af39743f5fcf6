package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseCorrelationID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    PairKey
		wantErr bool
	}{
		{name: "valid", id: "binance-usds-futures,ethusdt", want: PairKey{Exchange: "binance-usds-futures", Market: "ethusdt"}},
		{name: "missing comma", id: "binance", wantErr: true},
		{name: "empty market", id: "binance,", wantErr: true},
		{name: "empty exchange", id: ",btcusdt", wantErr: true},
		{name: "too many parts", id: "a,b,c", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCorrelationID(tt.id)
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Fatalf("ParseCorrelationID(%q) error = %v, want ErrConfiguration", tt.id, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCorrelationID(%q) unexpected error: %v", tt.id, err)
			}
			if got != tt.want {
				t.Errorf("ParseCorrelationID(%q) = %+v, want %+v", tt.id, got, tt.want)
			}
			if got.CorrelationID() != tt.id {
				t.Errorf("CorrelationID() = %q, want %q", got.CorrelationID(), tt.id)
			}
		})
	}
}

func TestBatchAccessors(t *testing.T) {
	b := Batch{
		Pair:      PairKey{Exchange: "okx", Market: "BTC-USDT-SWAP"},
		Timestamp: []int64{30, 10, 20},
		BidPrice:  []Float{Some(1), None(), Some(3)},
		AskPrice:  []Float{Some(2), Some(2), Some(4)},
		BidSize:   []Float{Some(5), Some(5), None()},
		AskSize:   []Float{Some(6), Some(6), Some(6)},
	}

	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}
	if b.FirstTimestamp() != 30 {
		t.Errorf("FirstTimestamp() = %d, want 30", b.FirstTimestamp())
	}
	if b.LastTimestamp() != 20 {
		t.Errorf("LastTimestamp() = %d, want 20", b.LastTimestamp())
	}
	if b.MaxTimestamp() != 30 {
		t.Errorf("MaxTimestamp() = %d, want 30", b.MaxTimestamp())
	}

	row := b.Row(1)
	if row.BidPrice.Valid {
		t.Error("Row(1).BidPrice should be absent")
	}
	if row.Pair() != b.Pair {
		t.Errorf("Row(1).Pair() = %v, want %v", row.Pair(), b.Pair)
	}

	var empty Batch
	if !empty.Empty() || empty.FirstTimestamp() != 0 || empty.LastTimestamp() != 0 {
		t.Error("zero Batch should be empty with zero timestamps")
	}
}

func TestUTCDay(t *testing.T) {
	late := time.Date(2024, 1, 15, 23, 59, 59, 999999999, time.UTC).UnixNano()
	next := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC).UnixNano()

	d1 := UTCDay(late)
	d2 := UTCDay(next)

	if d1.Compact() != "20240115" {
		t.Errorf("Compact() = %q, want 20240115", d1.Compact())
	}
	if !d2.After(d1) {
		t.Errorf("%v should be after %v", d2, d1)
	}
	if d1.After(d1) {
		t.Error("a day must not be after itself")
	}
	if !(Day{Year: 2025, Month: 1, Day: 1}).After(Day{Year: 2024, Month: 12, Day: 31}) {
		t.Error("year boundary not ordered")
	}

	// Non-UTC inputs are normalised.
	loc := time.FixedZone("UTC+9", 9*3600)
	if got := DayOf(time.Date(2024, 1, 16, 5, 0, 0, 0, loc)); got != d1 {
		t.Errorf("DayOf(UTC+9 05:00) = %v, want %v", got, d1)
	}
}
