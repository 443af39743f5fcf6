package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/quote-collector/internal/buffer"
	"github.com/rickgao/quote-collector/internal/feed"
	"github.com/rickgao/quote-collector/internal/metrics"
	"github.com/rickgao/quote-collector/internal/writer"
)

// State is the scheduler's phase.
type State int32

const (
	StateWaiting State = iota
	StateFlushing
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StateFlushing:
		return "FLUSHING"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// DefaultFinalFlushTimeout bounds the flush performed on shutdown.
const DefaultFinalFlushTimeout = 30 * time.Second

// SchedulerStats holds scheduler statistics.
type SchedulerStats struct {
	Flushes   int64
	Events    int64
	Ticks     int64
	Skipped   int64 // pair windows with no data
	LastFlush time.Time
}

// Scheduler runs the periodic flush.
type Scheduler struct {
	interval time.Duration
	source   feed.Source
	buf      *buffer.QuoteBuffer
	sink     writer.Sink
	logger   *slog.Logger

	state   atomic.Int32
	flushMu sync.Mutex

	statsMu sync.Mutex
	stats   SchedulerStats
}

// NewScheduler creates a Scheduler.
func NewScheduler(interval time.Duration, source feed.Source, buf *buffer.QuoteBuffer, sink writer.Sink, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval: interval,
		source:   source,
		buf:      buf,
		sink:     sink,
		logger:   logger,
	}
}

// State returns the current phase.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Stats returns current statistics.
func (s *Scheduler) Stats() SchedulerStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// Run flushes every interval until ctx is done, then flushes once more and
// returns. The first failed flush stops the loop. Cancellation is observed
// only between flushes; a flush in progress always completes.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval, "pairs", len(s.buf.Pairs()))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("final flush")
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultFinalFlushTimeout)
			defer cancel()
			if err := s.Flush(flushCtx); err != nil {
				return fmt.Errorf("final flush: %w", err)
			}
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			if err := s.Flush(context.WithoutCancel(ctx)); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
		}
	}
}

// Flush moves every purged event into the buffer, drains all pairs into the
// sink and commits the sink. A malformed event aborts the flush before any
// write. Write failures do not stop the remaining pairs; they are returned
// joined.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.state.Store(int32(StateFlushing))
	defer s.state.Store(int32(StateWaiting))
	start := time.Now()

	events := s.source.Purge()
	var ticks int64
	for _, ev := range events {
		if ev.Type != feed.EventTypeSubscriptionData {
			continue
		}
		tick, err := ParseEvent(ev)
		if err != nil {
			return err
		}
		if err := s.buf.Append(tick.Pair(), tick); err != nil {
			return err
		}
		metrics.TicksAppended.WithLabelValues(tick.Exchange, tick.Market).Inc()
		ticks++
	}

	var errs []error
	var skipped int64
	for _, pair := range s.buf.Pairs() {
		batch := s.buf.Drain(pair)
		metrics.BufferedRows.WithLabelValues(pair.Exchange, pair.Market).Set(float64(batch.Len()))
		if batch.Empty() {
			skipped++
			s.logger.Info("no data collected", "exchange", pair.Exchange, "market", pair.Market)
			continue
		}
		if err := s.sink.Write(ctx, batch); err != nil {
			s.logger.Error("write failed",
				"exchange", pair.Exchange,
				"market", pair.Market,
				"rows", batch.Len(),
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	if err := s.sink.Flush(ctx); err != nil {
		errs = append(errs, err)
	}

	elapsed := time.Since(start)
	metrics.FlushDuration.Observe(elapsed.Seconds())
	if len(errs) == 0 {
		metrics.LastFlush.SetToCurrentTime()
	}

	s.statsMu.Lock()
	s.stats.Flushes++
	s.stats.Events += int64(len(events))
	s.stats.Ticks += ticks
	s.stats.Skipped += skipped
	if len(errs) == 0 {
		s.stats.LastFlush = time.Now()
	}
	s.statsMu.Unlock()

	s.logger.Debug("flush complete",
		"events", len(events),
		"ticks", ticks,
		"empty_pairs", skipped,
		"duration", elapsed,
	)
	return errors.Join(errs...)
}
