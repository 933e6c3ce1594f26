package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/illomx/market-dashboard/internal/chain"
	"github.com/illomx/market-dashboard/internal/listing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/illomx/market-dashboard/internal/dashboard")

// State is the loading state of a dashboard.
type State string

const (
	StateNotLoaded State = "not-loaded"
	StateLoaded    State = "loaded"
	StateFailed    State = "failed"
)

// Dashboard is one load of a viewer's items. It is never cached.
type Dashboard struct {
	LoadID   uuid.UUID          `json:"loadId"`
	Account  common.Address     `json:"account"`
	State    State              `json:"state"`
	Created  []listing.Listing  `json:"created"`
	Sold     []listing.Listing  `json:"sold"`
	Bought   []listing.Listing  `json:"bought"`
	Failures []*listing.Failure `json:"failures,omitempty"`
	Error    string             `json:"error,omitempty"`
	LoadedAt time.Time          `json:"loadedAt"`
}

// Empty reports the "no items created/bought" view: loaded, nothing created.
func (d *Dashboard) Empty() bool {
	return d.State == StateLoaded && len(d.Created) == 0
}

// Market is one load of the items currently for sale.
type Market struct {
	LoadID   uuid.UUID          `json:"loadId"`
	State    State              `json:"state"`
	Items    []listing.Listing  `json:"items"`
	Failures []*listing.Failure `json:"failures,omitempty"`
	LoadedAt time.Time          `json:"loadedAt"`
}

// MarketReader is the subset of the market contract the dashboard reads.
type MarketReader interface {
	FetchItemsCreated(ctx context.Context, account common.Address) ([]chain.MarketItem, error)
	FetchMyNFTs(ctx context.Context, account common.Address) ([]chain.MarketItem, error)
	FetchMarketItems(ctx context.Context) ([]chain.MarketItem, error)
}

// Aggregator merges market items with their metadata.
type Aggregator interface {
	Aggregate(ctx context.Context, items []chain.MarketItem) (*listing.Batch, error)
}

// Service loads dashboards.
type Service struct {
	market MarketReader
	agg    Aggregator
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a dashboard Service.
func NewService(market MarketReader, agg Aggregator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		market: market,
		agg:    agg,
		logger: logger,
		now:    time.Now,
	}
}

// Load builds the dashboard for account. On error the returned Dashboard is
// still non-nil and carries StateFailed and the error message.
func (s *Service) Load(ctx context.Context, account common.Address) (*Dashboard, error) {
	d := &Dashboard{
		LoadID:  uuid.New(),
		Account: account,
		State:   StateNotLoaded,
	}
	logger := s.logger.With("load_id", d.LoadID, "account", account.Hex())

	ctx, span := tracer.Start(ctx, "dashboard.Load",
		trace.WithAttributes(
			attribute.String("dashboard.load_id", d.LoadID.String()),
			attribute.String("dashboard.account", account.Hex()),
		),
	)
	defer span.End()

	fail := func(err error) (*Dashboard, error) {
		d.State = StateFailed
		d.Error = err.Error()
		d.LoadedAt = s.now()
		span.RecordError(err)
		span.SetStatus(codes.Error, "dashboard load failed")
		logger.Error("dashboard load failed", "error", err)
		return d, err
	}

	if account == (common.Address{}) {
		return fail(chain.ErrWalletNotConnected)
	}

	start := s.now()

	created, err := s.market.FetchItemsCreated(ctx, account)
	if err != nil {
		return fail(err)
	}
	mine, err := s.market.FetchMyNFTs(ctx, account)
	if err != nil {
		return fail(err)
	}

	createdBatch, err := s.agg.Aggregate(ctx, created)
	if err != nil {
		return fail(fmt.Errorf("items created: %w", err))
	}
	boughtBatch, err := s.agg.Aggregate(ctx, mine)
	if err != nil {
		return fail(fmt.Errorf("items bought: %w", err))
	}

	d.Created = createdBatch.Listings
	d.Sold = listing.FilterSold(createdBatch.Listings)
	d.Bought = boughtBatch.Listings
	d.Failures = slices.Concat(createdBatch.Failures, boughtBatch.Failures)
	d.State = StateLoaded
	d.LoadedAt = s.now()

	logger.Info("dashboard loaded",
		"created", len(d.Created),
		"sold", len(d.Sold),
		"bought", len(d.Bought),
		"failures", len(d.Failures),
		"duration", d.LoadedAt.Sub(start),
	)

	return d, nil
}

// LoadMarket builds the list of items currently for sale.
func (s *Service) LoadMarket(ctx context.Context) (*Market, error) {
	m := &Market{
		LoadID: uuid.New(),
		State:  StateNotLoaded,
	}

	ctx, span := tracer.Start(ctx, "dashboard.LoadMarket",
		trace.WithAttributes(attribute.String("dashboard.load_id", m.LoadID.String())),
	)
	defer span.End()

	items, err := s.market.FetchMarketItems(ctx)
	if err == nil {
		var batch *listing.Batch
		if batch, err = s.agg.Aggregate(ctx, items); err == nil {
			m.Items = batch.Listings
			m.Failures = batch.Failures
			m.State = StateLoaded
		}
	}
	m.LoadedAt = s.now()

	if err != nil {
		m.State = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, "market load failed")
		s.logger.Error("market load failed", "load_id", m.LoadID, "error", err)
		return m, err
	}

	s.logger.Info("market loaded", "load_id", m.LoadID, "items", len(m.Items))
	return m, nil
}
