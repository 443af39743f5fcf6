package symbol

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/rickgao/quote-collector/internal/model"
)

// Instrument is one native instrument returned by an exchange listing.
type Instrument struct {
	Attributes Attributes
}

// Native returns the INSTRUMENT attribute.
func (i Instrument) Native() string {
	return i.Attributes[AttrInstrument]
}

// InstrumentLister lists the native instruments of an exchange.
type InstrumentLister interface {
	ListInstruments(ctx context.Context, exchange string) ([]Instrument, error)
}

// Entry is one discovered mapping.
type Entry struct {
	Exchange  string
	Canonical string
	Native    string
}

// Discovery is the immutable result of Discover.
type Discovery struct {
	entries []Entry
	index   map[string]map[string]string
}

// Entries returns the mappings in discovery order.
func (d *Discovery) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Native returns the native id behind a canonical symbol.
func (d *Discovery) Native(exchange, canonical string) (string, bool) {
	n, ok := d.index[exchange][canonical]
	return n, ok
}

// Symbols returns a copy of exchange -> canonical -> native.
func (d *Discovery) Symbols() map[string]map[string]string {
	out := make(map[string]map[string]string, len(d.index))
	for ex, m := range d.index {
		cp := make(map[string]string, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out[ex] = cp
	}
	return out
}

// Targets returns one subscription target per entry, keyed by canonical
// symbol.
func (d *Discovery) Targets() []model.Target {
	out := make([]model.Target, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, model.Target{
			Pair:       model.PairKey{Exchange: e.Exchange, Market: e.Canonical},
			Instrument: e.Native,
		})
	}
	return out
}

// Len returns the number of discovered instruments.
func (d *Discovery) Len() int {
	return len(d.entries)
}

// CompileFilter compiles a case-insensitive market filter. An empty pattern
// matches everything.
func CompileFilter(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = ".*"
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: market filter %q: %v", model.ErrConfiguration, pattern, err)
	}
	return re, nil
}

// Discover lists instruments per exchange and keeps those that map to a
// canonical symbol matching filter. When several native instruments produce
// the same canonical symbol on one exchange, the first one listed wins.
func Discover(ctx context.Context, lister InstrumentLister, exchanges []string, filter *regexp.Regexp, logger *slog.Logger) (*Discovery, error) {
	if logger == nil {
		logger = slog.Default()
	}
	unifier, err := NewUnifier(exchanges)
	if err != nil {
		return nil, err
	}

	d := &Discovery{index: make(map[string]map[string]string, len(exchanges))}
	for _, ex := range exchanges {
		instruments, err := lister.ListInstruments(ctx, ex)
		if err != nil {
			return nil, fmt.Errorf("list instruments %s: %w", ex, err)
		}

		seen := d.index[ex]
		if seen == nil {
			seen = make(map[string]string)
			d.index[ex] = seen
		}
		kept := 0
		for _, inst := range instruments {
			canonical, ok, err := unifier.Canonical(ex, inst.Attributes)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if filter != nil && !filter.MatchString(canonical) {
				continue
			}
			if prev, dup := seen[canonical]; dup {
				logger.Debug("duplicate canonical symbol dropped",
					"exchange", ex,
					"canonical", canonical,
					"kept", prev,
					"dropped", inst.Native(),
				)
				continue
			}
			seen[canonical] = inst.Native()
			d.entries = append(d.entries, Entry{Exchange: ex, Canonical: canonical, Native: inst.Native()})
			kept++
		}

		logger.Info("instruments discovered",
			"exchange", ex,
			"listed", len(instruments),
			"kept", kept,
		)
	}
	return d, nil
}
