package symbol

import (
	"context"
	"errors"
	"testing"

	"github.com/rickgao/quote-collector/internal/model"
)

type fakeLister struct {
	instruments map[string][]Instrument
	err         error
}

func (f *fakeLister) ListInstruments(_ context.Context, exchange string) ([]Instrument, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.instruments[exchange], nil
}

func inst(attrs Attributes) Instrument {
	return Instrument{Attributes: attrs}
}

func TestDiscover(t *testing.T) {
	lister := &fakeLister{instruments: map[string][]Instrument{
		"okx": {
			inst(Attributes{AttrInstrument: "BTC-USDT-SWAP"}),
			inst(Attributes{AttrInstrument: "ETH-USDT-SWAP"}),
			inst(Attributes{AttrInstrument: "BTC-USDT-PERP"}), // excluded by transform
			inst(Attributes{AttrInstrument: "DOGE-USDT-SWAP"}),
		},
		"kucoin-futures": {
			inst(Attributes{AttrInstrument: "XBTUSDTM"}),
			inst(Attributes{AttrInstrument: "BTCUSDTM"}), // same canonical, dropped
			inst(Attributes{AttrInstrument: "XBTMZ25"}),  // no mapping
		},
	}}

	filter, err := CompileFilter("^(btc|eth)-")
	if err != nil {
		t.Fatalf("CompileFilter error = %v", err)
	}

	d, err := Discover(context.Background(), lister, []string{"okx", "kucoin-futures"}, filter, nil)
	if err != nil {
		t.Fatalf("Discover error = %v", err)
	}

	want := []Entry{
		{Exchange: "okx", Canonical: "BTC-USDT-PERP", Native: "BTC-USDT-SWAP"},
		{Exchange: "okx", Canonical: "ETH-USDT-PERP", Native: "ETH-USDT-SWAP"},
		{Exchange: "kucoin-futures", Canonical: "BTC-USDT-PERP", Native: "XBTUSDTM"},
	}
	got := d.Entries()
	if len(got) != len(want) {
		t.Fatalf("Entries() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Entries()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if n, ok := d.Native("kucoin-futures", "BTC-USDT-PERP"); !ok || n != "XBTUSDTM" {
		t.Errorf("Native() = %q, %v; want first-discovered XBTUSDTM", n, ok)
	}

	symbols := d.Symbols()
	symbols["okx"]["BTC-USDT-PERP"] = "mutated"
	if n, _ := d.Native("okx", "BTC-USDT-PERP"); n != "BTC-USDT-SWAP" {
		t.Error("Symbols() must return a copy")
	}

	targets := d.Targets()
	if len(targets) != 3 {
		t.Fatalf("len(Targets()) = %d, want 3", len(targets))
	}
	wantTarget := model.Target{
		Pair:       model.PairKey{Exchange: "okx", Market: "BTC-USDT-PERP"},
		Instrument: "BTC-USDT-SWAP",
	}
	if targets[0] != wantTarget {
		t.Errorf("Targets()[0] = %+v, want %+v", targets[0], wantTarget)
	}
}

func TestDiscoverFilterCaseInsensitive(t *testing.T) {
	lister := &fakeLister{instruments: map[string][]Instrument{
		"binance": {
			inst(Attributes{AttrInstrument: "BTCUSDT", AttrBaseAsset: "BTC", AttrQuoteAsset: "USDT"}),
			inst(Attributes{AttrInstrument: "ETHBTC", AttrBaseAsset: "ETH", AttrQuoteAsset: "BTC"}),
		},
	}}
	filter, err := CompileFilter("usdt-spot$")
	if err != nil {
		t.Fatalf("CompileFilter error = %v", err)
	}

	d, err := Discover(context.Background(), lister, []string{"binance"}, filter, nil)
	if err != nil {
		t.Fatalf("Discover error = %v", err)
	}
	if d.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", d.Len())
	}
	if n, _ := d.Native("binance", "BTC-USDT-SPOT"); n != "BTCUSDT" {
		t.Errorf("Native() = %q, want BTCUSDT", n)
	}
}

func TestDiscoverErrors(t *testing.T) {
	t.Run("unknown exchange", func(t *testing.T) {
		_, err := Discover(context.Background(), &fakeLister{}, []string{"nope"}, nil, nil)
		if !errors.Is(err, model.ErrConfiguration) {
			t.Errorf("error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("lister failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Discover(context.Background(), &fakeLister{err: boom}, []string{"okx"}, nil, nil)
		if !errors.Is(err, boom) {
			t.Errorf("error = %v, want wrapped boom", err)
		}
	})

	t.Run("bad filter", func(t *testing.T) {
		_, err := CompileFilter("(")
		if !errors.Is(err, model.ErrConfiguration) {
			t.Errorf("error = %v, want ErrConfiguration", err)
		}
	})
}
