package rollover

import (
	"sync"
	"time"

	"github.com/rickgao/quote-collector/internal/model"
)

// Tracker holds the current day of every pair.
type Tracker struct {
	mu   sync.Mutex
	now  func() time.Time
	days map[model.PairKey]model.Day
}

// NewTracker creates a tracker whose pairs start at the UTC day of now().
// A nil now uses time.Now.
func NewTracker(pairs []model.PairKey, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	t := &Tracker{
		now:  now,
		days: make(map[model.PairKey]model.Day, len(pairs)),
	}
	today := model.DayOf(now())
	for _, p := range pairs {
		t.days[p] = today
	}
	return t
}

// Current returns the tracked day of pair. A pair seen for the first time
// starts at today.
func (t *Tracker) Current(pair model.PairKey) model.Day {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentLocked(pair)
}

func (t *Tracker) currentLocked(pair model.PairKey) model.Day {
	d, ok := t.days[pair]
	if !ok {
		d = model.DayOf(t.now())
		t.days[pair] = d
	}
	return d
}

// Due reports whether lastTimestamp falls on a later UTC day than the
// tracked day of pair.
func (t *Tracker) Due(pair model.PairKey, lastTimestamp int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return model.UTCDay(lastTimestamp).After(t.currentLocked(pair))
}

// Advance moves pair to the current UTC day and returns the day it left.
// Skipped days are not visited one by one.
func (t *Tracker) Advance(pair model.PairKey) model.Day {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.currentLocked(pair)
	t.days[pair] = model.DayOf(t.now())
	return prev
}

// Set overrides the tracked day of pair, used when recovering state from
// staged files.
func (t *Tracker) Set(pair model.PairKey, day model.Day) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.days[pair] = day
}
