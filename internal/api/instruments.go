package api

import (
	"context"
	"fmt"

	"github.com/rickgao/quote-collector/internal/model"
	"github.com/rickgao/quote-collector/internal/symbol"
)

// Exchange ids with a discovery endpoint.
const (
	ExchangeBinance            = "binance"
	ExchangeBinanceUSDSFutures = "binance-usds-futures"
)

// exchangeInfo is the subset of Binance exchangeInfo shared by spot and
// USD-M futures.
type exchangeInfo struct {
	Symbols []struct {
		Symbol       string `json:"symbol"`
		Pair         string `json:"pair"`
		Status       string `json:"status"`
		ContractType string `json:"contractType"`
		BaseAsset    string `json:"baseAsset"`
		QuoteAsset   string `json:"quoteAsset"`
		MarginAsset  string `json:"marginAsset"`
	} `json:"symbols"`
}

// ListInstruments returns the trading instruments of exchange in listing
// order.
func (c *Client) ListInstruments(ctx context.Context, exchange string) ([]symbol.Instrument, error) {
	var path string
	switch exchange {
	case ExchangeBinance:
		path = "/api/v3/exchangeInfo"
	case ExchangeBinanceUSDSFutures:
		path = "/fapi/v1/exchangeInfo"
	default:
		return nil, fmt.Errorf("%w: no instrument listing for exchange %q", model.ErrConfiguration, exchange)
	}

	var info exchangeInfo
	if err := c.get(ctx, c.endpoints[exchange], path, nil, &info); err != nil {
		return nil, fmt.Errorf("get exchange info: %w", err)
	}

	out := make([]symbol.Instrument, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		attrs := symbol.Attributes{
			symbol.AttrInstrument: s.Symbol,
			symbol.AttrBaseAsset:  s.BaseAsset,
			symbol.AttrQuoteAsset: s.QuoteAsset,
		}
		if s.MarginAsset != "" {
			attrs[symbol.AttrMarginAsset] = s.MarginAsset
		}
		if s.Pair != "" {
			attrs[symbol.AttrUnderlyingSymbol] = s.Pair
		}
		out = append(out, symbol.Instrument{Attributes: attrs})
	}

	c.logger.Debug("listed instruments",
		"exchange", exchange,
		"total", len(info.Symbols),
		"trading", len(out),
	)
	return out, nil
}

var _ symbol.InstrumentLister = (*Client)(nil)
