package symbol

import (
	"fmt"
	"sort"

	"github.com/rickgao/quote-collector/internal/model"
)

// Instrument attribute keys.
const (
	AttrInstrument       = "INSTRUMENT"
	AttrBaseAsset        = "BASE_ASSET"
	AttrQuoteAsset       = "QUOTE_ASSET"
	AttrMarginAsset      = "MARGIN_ASSET"
	AttrUnderlyingSymbol = "UNDERLYING_SYMBOL"
)

// Instrument kinds used as the last canonical component.
const (
	KindSpot = "SPOT"
	KindPerp = "PERP"
)

// Attributes is the native attribute set of one instrument.
type Attributes map[string]string

// Transform maps native attributes to a canonical symbol.
// ok is false when the instrument has no mapping and must be excluded.
type Transform interface {
	Canonical(attrs Attributes) (symbol string, ok bool)
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(Attributes) (string, bool)

func (f TransformFunc) Canonical(attrs Attributes) (string, bool) {
	return f(attrs)
}

var registry = map[string]Transform{
	"binance-usds-futures": TransformFunc(binanceUSDSFutures),
	"bybit":                spot,
	"bybit-derivatives":    perp,
	"mexc-futures":         TransformFunc(mexcFutures),
	"okx":                  TransformFunc(okx),
	"huobi-coin-swap":      TransformFunc(huobiSwap("USD")),
	"huobi-usdt-swap":      TransformFunc(huobiSwap("USDT")),
	"ascendex":             spot,
	"kucoin":               spot,
	"bitget-futures":       perp,
	"kucoin-futures":       TransformFunc(kucoinFutures),
	"bitget":               spot,
	"bitmart":              spot,
	"cryptocom":            spot,
	"kraken":               spot,
	"bitstamp":             spot,
	"coinbase":             spot,
	"mexc":                 perp,
	"binance-coin-futures": TransformFunc(binanceCoinFutures),
	"deribit":              TransformFunc(deribit),
	"huobi":                spot,
	"gateio":               spot,
	"binance":              spot,
	"whitebit":             perp,
}

// Lookup returns the Transform registered for exchange.
func Lookup(exchange string) (Transform, error) {
	tr, ok := registry[exchange]
	if !ok {
		return nil, fmt.Errorf("%w: no symbol transform for exchange %q", model.ErrConfiguration, exchange)
	}
	return tr, nil
}

// Exchanges returns every registered exchange id, sorted.
func Exchanges() []string {
	out := make([]string, 0, len(registry))
	for ex := range registry {
		out = append(out, ex)
	}
	sort.Strings(out)
	return out
}

// Unifier is a validated subset of the registry.
type Unifier struct {
	transforms map[string]Transform
}

// NewUnifier resolves a Transform for every exchange, failing on the first
// unknown id.
func NewUnifier(exchanges []string) (*Unifier, error) {
	u := &Unifier{transforms: make(map[string]Transform, len(exchanges))}
	for _, ex := range exchanges {
		tr, err := Lookup(ex)
		if err != nil {
			return nil, err
		}
		u.transforms[ex] = tr
	}
	return u, nil
}

// Canonical maps one instrument of exchange.
func (u *Unifier) Canonical(exchange string, attrs Attributes) (string, bool, error) {
	tr, ok := u.transforms[exchange]
	if !ok {
		return "", false, fmt.Errorf("%w: exchange %q not configured", model.ErrConfiguration, exchange)
	}
	s, ok := tr.Canonical(attrs)
	return s, ok, nil
}
