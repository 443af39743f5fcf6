package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/quote-collector/internal/api"
	"github.com/rickgao/quote-collector/internal/buffer"
	"github.com/rickgao/quote-collector/internal/collector"
	"github.com/rickgao/quote-collector/internal/config"
	"github.com/rickgao/quote-collector/internal/database"
	"github.com/rickgao/quote-collector/internal/feed"
	"github.com/rickgao/quote-collector/internal/model"
	"github.com/rickgao/quote-collector/internal/rollover"
	"github.com/rickgao/quote-collector/internal/storage"
	"github.com/rickgao/quote-collector/internal/version"
	"github.com/rickgao/quote-collector/internal/writer"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/collector.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional env file loaded before config expansion")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.LoadEnv(*envPath); err != nil {
		logger.Error("failed to load env file", "error", err)
		return 1
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	// Set up structured logging
	logger = newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	logger.Info("starting collector",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"policy", cfg.Output.Policy,
		"interval", cfg.Collector.Interval,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := collect(ctx, cfg, logger); err != nil {
		logger.Error("collector failed", "error", err)
		return 1
	}
	logger.Info("collector stopped")
	return 0
}

func collect(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	client := api.NewClientFromConfig(cfg.Discovery, logger)
	targets, err := collector.ResolveTargets(ctx, cfg.Collector, client, logger)
	if err != nil {
		return err
	}
	pairs := collector.Pairs(targets)
	logger.Info("pairs resolved", "pairs", len(pairs), "discovered", cfg.Collector.Discovers())

	sink, conns, err := buildSink(ctx, cfg, pairs, logger)
	if err != nil {
		return err
	}
	defer sink.Close()
	if conns != nil {
		defer conns.Close()
	}

	source := feed.NewBinanceSource(feed.BinanceConfigFrom(cfg.Feed), logger)
	defer source.Close()

	if err := source.Subscribe(ctx, collector.Subscriptions(targets)); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	buf := buffer.New(pairs, cfg.Collector.SizeHint)
	scheduler := collector.NewScheduler(cfg.Collector.Interval, source, buf, sink, logger)

	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           createHealthHandler(cfg, scheduler, source, conns),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Metrics.Port, "metrics_path", cfg.Metrics.Path)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return healthServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	logger.Info("collector running",
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)
	return g.Wait()
}

// buildSink creates the writer for the configured policy. conns is non-nil
// for the database policy.
func buildSink(ctx context.Context, cfg *config.Config, pairs []model.PairKey, logger *slog.Logger) (writer.Sink, *database.Conns, error) {
	var deps writer.Deps

	switch cfg.Output.Policy {
	case config.PolicyDirect, config.PolicyStaged:
		out, err := storage.NewFS(ctx, cfg.Output.DataDir, cfg.Storage.S3, logger)
		if err != nil {
			return nil, nil, err
		}
		deps.Output = out
		if cfg.Output.Policy == config.PolicyStaged {
			deps.Staging = storage.NewLocal(strings.TrimPrefix(cfg.Output.StagingDir, "file://"))
			deps.Tracker = rollover.NewTracker(pairs, nil)
		}
	case config.PolicyDatabase:
		logger.Info("connecting to database",
			"driver", cfg.Database.Driver,
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		conns, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := conns.EnsureSchema(ctx); err != nil {
			conns.Close()
			return nil, nil, err
		}
		logger.Info("database connected")

		if conns.Timescale != nil {
			deps.Inserter = writer.NewTimescaleInserter(conns.Timescale)
		} else {
			deps.Inserter = writer.NewClickHouseInserter(conns.ClickHouse)
		}
		sink, err := writer.New(cfg.Output.Policy, deps, logger)
		if err != nil {
			conns.Close()
			return nil, nil, err
		}
		return sink, conns, nil
	}

	sink, err := writer.New(cfg.Output.Policy, deps, logger)
	if err != nil {
		return nil, nil, err
	}
	if staged, ok := sink.(*writer.StagedWriter); ok {
		if err := staged.Recover(ctx, pairs); err != nil {
			return nil, nil, err
		}
	}
	return sink, nil, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
}
