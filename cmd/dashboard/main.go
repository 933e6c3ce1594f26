package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/illomx/market-dashboard/internal/app"
	"github.com/illomx/market-dashboard/internal/chain"
	"github.com/illomx/market-dashboard/internal/config"
	"github.com/illomx/market-dashboard/internal/dashboard"
	"github.com/illomx/market-dashboard/internal/telemetry"
	"github.com/illomx/market-dashboard/internal/version"
	"github.com/illomx/market-dashboard/internal/watch"
)

func main() {
	configPath := flag.String("config", "configs/dashboard.example.yaml", "path to config file (empty: environment only)")
	account := flag.String("account", "", "wallet address to load (default: wallet section of config)")
	market := flag.Bool("market", false, "print the items for sale instead of a dashboard")
	follow := flag.Bool("watch", false, "keep refreshing and print every load")
	flag.Parse()

	// Logs go to stderr; stdout carries the JSON output.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger, *configPath, *account, *market, *follow); err != nil {
		logger.Error("dashboard failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath, accountFlag string, market, follow bool) error {
	logger.Info("starting dashboard", "version", version.String(), "config", configPath)

	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if market {
		m, err := a.Dashboard.LoadMarket(ctx)
		if encErr := enc.Encode(m); encErr != nil {
			return encErr
		}
		return err
	}

	account, err := resolveAccount(cfg, accountFlag)
	if err != nil {
		return err
	}

	if !follow {
		d, err := a.Dashboard.Load(ctx, account)
		if encErr := enc.Encode(d); encErr != nil {
			return encErr
		}
		if err == nil && d.Empty() {
			logger.Info("no items created/bought", "account", account.Hex())
		}
		return err
	}

	refresher := watch.New(watch.Config{
		Interval: cfg.Watch.Interval,
		Timeout:  cfg.Chain.Timeout + cfg.Metadata.Timeout,
	}, a.Dashboard, account, watch.HandlerFunc(func(d *dashboard.Dashboard) error {
		return enc.Encode(d)
	}), logger)

	if err := refresher.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-refresher.Done():
	}
	return refresher.Stop(context.Background())
}

func resolveAccount(cfg *config.Config, accountFlag string) (common.Address, error) {
	if accountFlag != "" {
		return chain.ParseAccount(accountFlag)
	}
	account, err := chain.ResolveAccount(cfg.Wallet)
	if errors.Is(err, chain.ErrWalletNotConnected) {
		return common.Address{}, fmt.Errorf("%w: pass -account or set wallet.address", err)
	}
	return account, err
}
