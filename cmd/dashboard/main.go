package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rickgao/serum-dashboard/internal/balances"
	"github.com/rickgao/serum-dashboard/internal/chain"
	"github.com/rickgao/serum-dashboard/internal/config"
	"github.com/rickgao/serum-dashboard/internal/dashboard"
	"github.com/rickgao/serum-dashboard/internal/datafeed"
	"github.com/rickgao/serum-dashboard/internal/loader"
	"github.com/rickgao/serum-dashboard/internal/logging"
	"github.com/rickgao/serum-dashboard/internal/market"
	"github.com/rickgao/serum-dashboard/internal/notify"
	"github.com/rickgao/serum-dashboard/internal/openorders"
	"github.com/rickgao/serum-dashboard/internal/poller"
	"github.com/rickgao/serum-dashboard/internal/server"
	"github.com/rickgao/serum-dashboard/internal/store"
	"github.com/rickgao/serum-dashboard/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/dashboard.example.yaml", "path to config file")
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	// Bootstrap logger until the configured one exists
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Error("failed to load env file", "path", *envFile, "err", err)
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(cfg.Logging, os.Stdout)
	if err != nil {
		slog.Error("failed to set up logging", "err", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("starting dashboard",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
		"rpc_url", cfg.RPC.URL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("dashboard failed", "err", err)
		os.Exit(1)
	}
	logger.Info("dashboard stopped")
}

func run(ctx context.Context, cfg *config.DashboardConfig, logger *slog.Logger) error {
	registry, err := market.NewRegistry(market.Config{
		Exclude:          cfg.Markets.Exclude,
		IgnoreDeprecated: cfg.Markets.IgnoreDeprecated,
	}, logger)
	if err != nil {
		return fmt.Errorf("load market registry: %w", err)
	}
	logger.Info("market registry loaded",
		"static", len(registry.Static()),
		"listed", len(registry.MarketsList()),
		"deprecated_programs", len(registry.DeprecatedProgramIDs()),
	)

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	rpcClient := chain.NewRPC(cfg.RPC.URL, cfg.RPC.Commitment, logger)
	defer rpcClient.Close()

	hub := notify.NewHub(notify.DefaultHistorySize, logger)
	defer hub.Close()

	feed := datafeed.NewClient(
		cfg.DataFeed.BaseURL,
		cfg.DataFeed.TVURL,
		datafeed.WithLogger(logger),
		datafeed.WithTimeout(cfg.DataFeed.Timeout),
		datafeed.WithRetries(cfg.DataFeed.MaxRetries, cfg.DataFeed.RetryBackoff),
		datafeed.WithRateLimit(cfg.DataFeed.RatePerSecond),
	)

	ld := loader.New(loader.Config{
		Concurrency:   cfg.Loader.Concurrency,
		Timeout:       cfg.Loader.Timeout,
		MaxJitter:     cfg.Loader.MaxJitter,
		RatePerSecond: cfg.Loader.RatePerSecond,
	}, rpcClient, registry, hub, logger)

	p := poller.New(poller.Config{
		Concurrency: cfg.Refresh.Concurrency,
		Timeout:     cfg.Loader.Timeout,
	}, logger)

	svc := dashboard.New(dashboard.Deps{
		Registry:   registry,
		Chain:      rpcClient,
		Loader:     ld,
		OpenOrders: openorders.New(rpcClient, registry, cfg.Loader.Concurrency, logger),
		Reconciler: balances.NewReconciler(logger),
		Trades:     feed,
		Resolver:   datafeed.NewResolver(feed, cfg.Refresh.VerySlow, cfg.DataFeed.DefaultMarket, logger),
		Store:      st,
		Poller:     p,
		Refresh:    cfg.Refresh,
		BookDepth:  cfg.Loader.BookDepth,
		Logger:     logger,
	})

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("start poller: %w", err)
	}

	srv := server.New(server.Config{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		PingInterval:    cfg.Server.PingInterval,
		RequestTimeout:  cfg.Loader.Timeout,
	}, svc, hub, logger)
	srv.Start()

	logger.Info("dashboard running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
		"store", cfg.Store.Driver,
	)

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", "err", err)
	}
	if err := p.Stop(shutdownCtx); err != nil {
		logger.Warn("poller shutdown", "err", err)
	}

	refreshed, failed := p.Stats()
	logger.Info("refresh totals", "refreshed", refreshed, "failed", failed, "tracked", svc.Tracked())
	return nil
}
