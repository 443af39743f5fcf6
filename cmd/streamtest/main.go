// streamtest subscribes to the configured pairs and prints parsed quotes to
// the console without writing anything.
// Usage: go run ./cmd/streamtest --config configs/collector.example.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/quote-collector/internal/api"
	"github.com/rickgao/quote-collector/internal/collector"
	"github.com/rickgao/quote-collector/internal/config"
	"github.com/rickgao/quote-collector/internal/feed"
)

func main() {
	configPath := flag.String("config", "configs/collector.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full event JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	targets, err := collector.ResolveTargets(ctx, cfg.Collector, api.NewClientFromConfig(cfg.Discovery, logger), logger)
	if err != nil {
		logger.Error("failed to resolve targets", "error", err)
		os.Exit(1)
	}
	logger.Info("targets ready", "pairs", len(targets))

	source := feed.NewBinanceSource(feed.BinanceConfigFrom(cfg.Feed), logger)
	defer source.Close()

	if err := source.Subscribe(ctx, collector.Subscriptions(targets)); err != nil {
		logger.Error("failed to subscribe", "error", err)
		os.Exit(1)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				q := source.Stats()
				logger.Info("stats",
					"queued", q.Count,
					"capacity", q.Capacity,
					"pushed", q.TotalPushed,
					"purged", q.TotalPurged,
					"resizes", q.ResizeCount,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")
	printQuotes(ctx, source, *verbose, logger)
	logger.Info("shutdown complete")
}

func printQuotes(ctx context.Context, source feed.Source, verbose bool, logger *slog.Logger) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, ev := range source.Purge() {
			if ev.Type != feed.EventTypeSubscriptionData {
				fmt.Printf("[%s] %s\n", ev.Type, ev.CorrelationID)
				continue
			}
			if verbose {
				data, _ := json.MarshalIndent(ev, "", "  ")
				fmt.Printf("[EVENT] %s\n", data)
				continue
			}
			tick, err := collector.ParseEvent(ev)
			if err != nil {
				logger.Warn("unparsable event", "correlation_id", ev.CorrelationID, "error", err)
				continue
			}
			fmt.Printf("[QUOTE] %s/%s ts=%s bid=%s x %s ask=%s x %s\n",
				tick.Exchange, tick.Market,
				time.Unix(0, tick.Timestamp).UTC().Format(time.RFC3339Nano),
				formatFloat(tick.BidPrice.Ptr()), formatFloat(tick.BidSize.Ptr()),
				formatFloat(tick.AskPrice.Ptr()), formatFloat(tick.AskSize.Ptr()),
			)
		}
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}
