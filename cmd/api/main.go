package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/nevy-wallets/satoshi/internal/bank"
	"github.com/nevy-wallets/satoshi/internal/chain"
	"github.com/nevy-wallets/satoshi/internal/config"
	"github.com/nevy-wallets/satoshi/internal/infra"
	"github.com/nevy-wallets/satoshi/internal/logging"
	"github.com/nevy-wallets/satoshi/internal/rates"
	"github.com/nevy-wallets/satoshi/internal/routes"
	"github.com/nevy-wallets/satoshi/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName, cfg.AppEnv)

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set, idempotency disabled and locks are process-local")
	}

	node, closeNode, err := buildNode(ctx, cfg, logger)
	if err != nil {
		logger.Error("connect node", "error", err)
		os.Exit(1)
	}
	defer closeNode()

	oracle, err := buildOracle(cfg, logger)
	if err != nil {
		logger.Error("build rate oracle", "error", err)
		os.Exit(1)
	}

	aggregator, err := buildAggregator(cfg, logger)
	if err != nil {
		logger.Error("build bank aggregator", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(routes.Deps{
		Cfg:        cfg,
		DB:         db,
		Cache:      cache,
		Logger:     logger,
		Node:       node,
		Oracle:     oracle,
		Aggregator: aggregator,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

func buildNode(ctx context.Context, cfg config.Config, logger *slog.Logger) (chain.Node, func(), error) {
	if cfg.Node.Enabled() {
		return infra.NewNode(ctx, cfg.Node, logger)
	}
	logger.Warn("NODE_HOST not set, using simulated node")
	node := chain.NewSimulatedNode()
	if err := node.CreateWallet(ctx, cfg.Node.TreasuryWallet); err != nil {
		return nil, nil, err
	}
	return node, func() {}, nil
}

func buildOracle(cfg config.Config, logger *slog.Logger) (rates.Oracle, error) {
	if cfg.Rates.FeedURL == "" && cfg.IsDevelopment() {
		logger.Warn("RATE_FEED_URL not set, quoting a static price")
		return rates.StaticOracle{UnitPrice: decimal.NewFromInt(50_000)}, nil
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return rates.NewHTTPOracle(client, cfg.Rates.FeedURL, cfg.Rates.AssetID, cfg.Rates.Fiat)
}

func buildAggregator(cfg config.Config, logger *slog.Logger) (bank.Aggregator, error) {
	if !cfg.Plaid.Enabled() {
		logger.Warn("PLAID credentials not set, using sandbox bank")
		return bank.NewSandboxAggregator(), nil
	}
	return bank.NewPlaidAggregator(bank.PlaidConfig{
		ClientID:   cfg.Plaid.ClientID,
		Secret:     cfg.Plaid.Secret,
		Env:        cfg.Plaid.Env,
		ClientName: cfg.Plaid.ClientName,
		BaseURL:    cfg.Plaid.BaseURL,
	})
}
