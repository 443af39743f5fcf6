package symbol

import "strings"

var (
	spot = TransformFunc(baseQuote(KindSpot))
	perp = TransformFunc(baseQuote(KindPerp))
)

func join(base, quote, kind string) string {
	return base + "-" + quote + "-" + kind
}

// get returns attrs[key], failing on missing or empty values.
func get(attrs Attributes, key string) (string, bool) {
	v, ok := attrs[key]
	return v, ok && v != ""
}

// baseQuote builds {BASE_ASSET}-{QUOTE_ASSET}-{kind}.
func baseQuote(kind string) func(Attributes) (string, bool) {
	return func(attrs Attributes) (string, bool) {
		base, ok := get(attrs, AttrBaseAsset)
		if !ok {
			return "", false
		}
		quote, ok := get(attrs, AttrQuoteAsset)
		if !ok {
			return "", false
		}
		return join(base, quote, kind), true
	}
}

// kucoinFutures splits XBTUSDTM style contracts on the settlement suffix.
func kucoinFutures(attrs Attributes) (string, bool) {
	inst, ok := get(attrs, AttrInstrument)
	if !ok {
		return "", false
	}
	inst = strings.ReplaceAll(inst, "XBT", "BTC")

	var base, quote string
	switch {
	case strings.HasSuffix(inst, "USDTM"):
		base, quote = strings.TrimSuffix(inst, "USDTM"), "USDT"
	case strings.HasSuffix(inst, "USDCM"):
		base, quote = strings.TrimSuffix(inst, "USDCM"), "USDC"
	case strings.HasSuffix(inst, "USDM"):
		base, quote = strings.TrimSuffix(inst, "USDM"), "USD"
	default:
		return "", false
	}
	if base == "" {
		return "", false
	}
	return join(base, quote, KindPerp), true
}

// okx instruments are already dash separated. Swaps become PERP, spot ids
// pass through unchanged, anything already ending in PERP is excluded.
func okx(attrs Attributes) (string, bool) {
	inst, ok := get(attrs, AttrInstrument)
	if !ok {
		return "", false
	}
	switch {
	case strings.HasSuffix(inst, "SWAP"):
		return strings.ReplaceAll(inst, "SWAP", KindPerp), true
	case strings.HasSuffix(inst, KindPerp):
		return "", false
	default:
		return inst, true
	}
}

// binanceUSDSFutures excludes dated delivery contracts (BTCUSDT_250627).
func binanceUSDSFutures(attrs Attributes) (string, bool) {
	inst, ok := get(attrs, AttrInstrument)
	if !ok || isDigit(inst[len(inst)-1]) {
		return "", false
	}
	underlying, ok := get(attrs, AttrUnderlyingSymbol)
	if !ok {
		return "", false
	}
	margin, ok := get(attrs, AttrMarginAsset)
	if !ok {
		return "", false
	}
	base := strings.TrimSuffix(underlying, margin)
	if base == "" {
		return "", false
	}
	return join(base, margin, KindPerp), true
}

// binanceCoinFutures: margin BTC, underlying BTCUSD -> BTC-USD-PERP.
func binanceCoinFutures(attrs Attributes) (string, bool) {
	underlying, ok := get(attrs, AttrUnderlyingSymbol)
	if !ok {
		return "", false
	}
	margin, ok := get(attrs, AttrMarginAsset)
	if !ok {
		return "", false
	}
	quote := strings.TrimPrefix(underlying, margin)
	if quote == "" {
		return "", false
	}
	return join(margin, quote, KindPerp), true
}

// mexcFutures: BTC_USDT with margin USDT -> BTC-USDT-PERP.
func mexcFutures(attrs Attributes) (string, bool) {
	inst, ok := get(attrs, AttrInstrument)
	if !ok {
		return "", false
	}
	margin, ok := get(attrs, AttrMarginAsset)
	if !ok {
		return "", false
	}
	base := strings.TrimSuffix(inst, margin)
	if len(base) < 2 {
		return "", false
	}
	return join(base[:len(base)-1], margin, KindPerp), true
}

func huobiSwap(quote string) func(Attributes) (string, bool) {
	return func(attrs Attributes) (string, bool) {
		inst, ok := get(attrs, AttrInstrument)
		if !ok {
			return "", false
		}
		return join(inst, quote, KindPerp), true
	}
}

func deribit(attrs Attributes) (string, bool) {
	underlying, ok := get(attrs, AttrUnderlyingSymbol)
	if !ok {
		return "", false
	}
	return join(underlying, "USDC", KindPerp), true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
