package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rickgao/quote-collector/internal/collector"
	"github.com/rickgao/quote-collector/internal/config"
	"github.com/rickgao/quote-collector/internal/database"
	"github.com/rickgao/quote-collector/internal/feed"
	"github.com/rickgao/quote-collector/internal/metrics"
	"github.com/rickgao/quote-collector/internal/version"
)

// createHealthHandler creates the HTTP handler for health checks and metrics.
func createHealthHandler(cfg *config.Config, scheduler *collector.Scheduler, source *feed.BinanceSource, conns *database.Conns) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Version    version.Info   `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.Get(),
			Components: make(map[string]any),
		}

		// Check scheduler
		stats := scheduler.Stats()
		sched := map[string]any{
			"state":   scheduler.State().String(),
			"flushes": stats.Flushes,
			"ticks":   stats.Ticks,
		}
		if !stats.LastFlush.IsZero() {
			sched["last_flush"] = stats.LastFlush.UTC().Format(time.RFC3339)
			if time.Since(stats.LastFlush) > 3*cfg.Collector.Interval {
				health.Status = "degraded"
			}
		}
		health.Components["scheduler"] = sched

		// Check feed queue
		q := source.Stats()
		conns := source.Connections()
		for _, up := range conns {
			if !up && health.Status == "healthy" {
				health.Status = "degraded"
			}
		}
		health.Components["feed"] = map[string]any{
			"queued":      q.Count,
			"pushed":      q.TotalPushed,
			"connections": conns,
		}

		// Check database
		if conns != nil {
			if err := conns.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["database"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["database"] = "connected"
			}
		}

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
