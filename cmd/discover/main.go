package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rickgao/quote-collector/internal/api"
	"github.com/rickgao/quote-collector/internal/config"
	"github.com/rickgao/quote-collector/internal/symbol"
)

// discover prints exchange -> canonical symbol -> native instrument as JSON.
func main() {
	configPath := flag.String("config", "", "optional config file supplying exchanges, market_filter and discovery settings")
	envPath := flag.String("env", ".env", "optional env file loaded before config expansion")
	exchanges := flag.String("exchanges", "", "comma-separated exchange ids (overrides config)")
	filter := flag.String("filter", "", "case-insensitive regex on canonical symbols (overrides config)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := config.LoadEnv(*envPath); err != nil {
		logger.Error("failed to load env file", "error", err)
		os.Exit(1)
	}

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.LoadWithDefaults(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *exchanges != "" {
		cfg.Collector.Exchanges = strings.Split(*exchanges, ",")
	}
	if *filter != "" {
		cfg.Collector.MarketFilter = *filter
	}
	if len(cfg.Collector.Exchanges) == 0 {
		cfg.Collector.Exchanges = []string{api.ExchangeBinanceUSDSFutures}
	}

	re, err := symbol.CompileFilter(cfg.Collector.MarketFilter)
	if err != nil {
		logger.Error("invalid filter", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := api.NewClientFromConfig(cfg.Discovery, logger)

	d, err := symbol.Discover(ctx, client, cfg.Collector.Exchanges, re, logger)
	if err != nil {
		logger.Error("discovery failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d.Symbols()); err != nil {
		logger.Error("failed to write output", "error", err)
		os.Exit(1)
	}
}
