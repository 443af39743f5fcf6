package collector

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rickgao/quote-collector/internal/feed"
	"github.com/rickgao/quote-collector/internal/model"
)

// ParseEvent converts a subscription-data event into a QuoteTick. The first
// element is the bid side and the second the ask side.
func ParseEvent(ev feed.Event) (model.QuoteTick, error) {
	pair, err := model.ParseCorrelationID(ev.CorrelationID)
	if err != nil {
		return model.QuoteTick{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, ev.TimeISO)
	if err != nil {
		return model.QuoteTick{}, fmt.Errorf("%w: event time %q: %v", model.ErrDataFormat, ev.TimeISO, err)
	}

	if len(ev.Elements) != 2 {
		return model.QuoteTick{}, fmt.Errorf("%w: %s: want bid and ask elements, got %d",
			model.ErrDataFormat, pair, len(ev.Elements))
	}
	bid, ask := ev.Elements[0], ev.Elements[1]

	tick := model.QuoteTick{
		Timestamp: t.UnixNano(),
		Exchange:  pair.Exchange,
		Market:    pair.Market,
	}
	fields := []struct {
		el  feed.Element
		key string
		dst *model.Float
	}{
		{bid, feed.BidPrice, &tick.BidPrice},
		{ask, feed.AskPrice, &tick.AskPrice},
		{bid, feed.BidSize, &tick.BidSize},
		{ask, feed.AskSize, &tick.AskSize},
	}
	for _, f := range fields {
		v, err := parseValue(f.el, f.key)
		if err != nil {
			return model.QuoteTick{}, fmt.Errorf("%s: %w", pair, err)
		}
		*f.dst = v
	}
	return tick, nil
}

// parseValue returns None for a missing or empty value.
func parseValue(el feed.Element, key string) (model.Float, error) {
	raw, ok := el.Value(key)
	if !ok || raw == "" {
		return model.None(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return model.Float{}, fmt.Errorf("%w: %s %q is not a finite number", model.ErrDataFormat, key, raw)
	}
	return model.Some(v), nil
}
