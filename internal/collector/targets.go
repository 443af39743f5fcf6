package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/quote-collector/internal/config"
	"github.com/rickgao/quote-collector/internal/feed"
	"github.com/rickgao/quote-collector/internal/model"
	"github.com/rickgao/quote-collector/internal/symbol"
)

// ResolveTargets returns the configured markets, or discovers them through
// lister when a market filter is set.
func ResolveTargets(ctx context.Context, cfg config.CollectorConfig, lister symbol.InstrumentLister, logger *slog.Logger) ([]model.Target, error) {
	if !cfg.Discovers() {
		return StaticTargets(cfg.Exchanges, cfg.Markets), nil
	}

	filter, err := symbol.CompileFilter(cfg.MarketFilter)
	if err != nil {
		return nil, err
	}
	d, err := symbol.Discover(ctx, lister, cfg.Exchanges, filter, logger)
	if err != nil {
		return nil, fmt.Errorf("discover instruments: %w", err)
	}
	if d.Len() == 0 {
		return nil, fmt.Errorf("%w: market_filter %q matched no instruments", model.ErrConfiguration, cfg.MarketFilter)
	}
	return d.Targets(), nil
}

// StaticTargets pairs every exchange with every market. The native
// instrument is the upper-cased market.
func StaticTargets(exchanges, markets []string) []model.Target {
	out := make([]model.Target, 0, len(exchanges)*len(markets))
	for _, ex := range exchanges {
		for _, m := range markets {
			out = append(out, model.Target{
				Pair:       model.PairKey{Exchange: ex, Market: m},
				Instrument: strings.ToUpper(m),
			})
		}
	}
	return out
}

// Pairs returns the pair of each target, in order.
func Pairs(targets []model.Target) []model.PairKey {
	out := make([]model.PairKey, len(targets))
	for i, t := range targets {
		out[i] = t.Pair
	}
	return out
}

// Subscriptions builds one top-of-book subscription per target, correlated
// by "exchange,market".
func Subscriptions(targets []model.Target) []feed.Subscription {
	out := make([]feed.Subscription, len(targets))
	for i, t := range targets {
		out[i] = feed.Subscription{
			Exchange:      t.Pair.Exchange,
			Instrument:    t.Instrument,
			Field:         feed.FieldMarketDepth,
			Options:       feed.OptionTopOfBook,
			CorrelationID: t.Pair.CorrelationID(),
		}
	}
	return out
}
