// Package app builds the dashboard service graph shared by the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/illomx/market-dashboard/internal/chain"
	"github.com/illomx/market-dashboard/internal/config"
	"github.com/illomx/market-dashboard/internal/dashboard"
	"github.com/illomx/market-dashboard/internal/listing"
	"github.com/illomx/market-dashboard/internal/metadata"
)

// App holds the wired components. Close releases the RPC connection.
type App struct {
	Chain     *chain.Client
	Dashboard *dashboard.Service
}

// New dials the chain and wires the aggregator and dashboard service.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	chainClient, err := chain.Dial(ctx, cfg.Chain)
	if err != nil {
		return nil, fmt.Errorf("connect chain: %w", err)
	}

	metaClient := metadata.NewClient(
		metadata.WithLogger(logger),
		metadata.WithTimeout(cfg.Metadata.Timeout),
		metadata.WithRetries(cfg.Metadata.Retries(), cfg.Metadata.RetryBackoff),
		metadata.WithIPFSGateway(cfg.Metadata.IPFSGateway),
	)

	agg := listing.NewAggregator(listing.Config{
		Concurrency:   cfg.Aggregator.Concurrency,
		OnItemFailure: listing.FailurePolicy(cfg.Aggregator.OnItemFailure),
	}, chainClient.Token, metaClient, logger)

	return &App{
		Chain:     chainClient,
		Dashboard: dashboard.NewService(chainClient.Market, agg, logger),
	}, nil
}

// Close releases resources.
func (a *App) Close() {
	a.Chain.Close()
}
