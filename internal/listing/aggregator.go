package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/illomx/market-dashboard/internal/chain"
	"github.com/illomx/market-dashboard/internal/metadata"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/illomx/market-dashboard/internal/listing")

// URIResolver looks up a token's metadata URI.
type URIResolver interface {
	TokenURI(ctx context.Context, contract common.Address, tokenID *big.Int) (string, error)
}

// MetadataFetcher retrieves a metadata document.
type MetadataFetcher interface {
	Fetch(ctx context.Context, uri string) (*metadata.Document, error)
}

// FailurePolicy decides what a single failed item does to its batch.
type FailurePolicy string

const (
	// Drop omits the item and records it in Batch.Failures.
	Drop FailurePolicy = "drop"
	// Abort cancels the remaining fetches and fails the batch.
	Abort FailurePolicy = "abort"
)

// Config holds aggregator configuration.
type Config struct {
	Concurrency   int           // Max in-flight items, 0 = unbounded
	OnItemFailure FailurePolicy // Default: Drop
}

// Failure records one item that could not be merged.
type Failure struct {
	Index   int      // Position in the input
	TokenID *big.Int // As returned by the contract
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("item %d (token %s): %v", f.Index, f.TokenID, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// MarshalJSON flattens the error to its message.
func (f *Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index   int    `json:"index"`
		TokenID string `json:"tokenId"`
		Error   string `json:"error"`
	}{
		Index:   f.Index,
		TokenID: f.TokenID.String(),
		Error:   f.Err.Error(),
	})
}

// Batch is the result of one Aggregate call.
type Batch struct {
	Listings []Listing
	Failures []*Failure
}

// Aggregator merges market items with their metadata.
type Aggregator struct {
	cfg    Config
	uris   URIResolver
	meta   MetadataFetcher
	logger *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg Config, uris URIResolver, meta MetadataFetcher, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OnItemFailure == "" {
		cfg.OnItemFailure = Drop
	}
	return &Aggregator{
		cfg:    cfg,
		uris:   uris,
		meta:   meta,
		logger: logger,
	}
}

// Aggregate merges every item concurrently and joins the results in input order.
// Under Drop, len(Listings)+len(Failures) == len(items). Under Abort the first
// failure is returned and the batch is discarded.
func (a *Aggregator) Aggregate(ctx context.Context, items []chain.MarketItem) (*Batch, error) {
	ctx, span := tracer.Start(ctx, "listing.Aggregate",
		trace.WithAttributes(
			attribute.Int("listing.items", len(items)),
			attribute.String("listing.on_item_failure", string(a.cfg.OnItemFailure)),
		),
	)
	defer span.End()

	// Each goroutine owns one slot in each slice.
	merged := make([]Listing, len(items))
	failed := make([]*Failure, len(items))

	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.Concurrency > 0 {
		g.SetLimit(a.cfg.Concurrency)
	}

	for i, item := range items {
		g.Go(func() error {
			l, err := a.merge(gctx, item)
			if err != nil {
				f := &Failure{Index: i, TokenID: item.TokenID, Err: err}
				if a.cfg.OnItemFailure == Abort {
					return f
				}
				failed[i] = f
				return nil
			}
			merged[i] = l
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate aborted")
		return nil, fmt.Errorf("aggregate listings: %w", err)
	}

	batch := &Batch{Listings: make([]Listing, 0, len(items))}
	for i := range items {
		if f := failed[i]; f != nil {
			a.logger.Warn("dropping listing",
				"index", f.Index,
				"token_id", f.TokenID,
				"err", f.Err,
			)
			batch.Failures = append(batch.Failures, f)
			continue
		}
		batch.Listings = append(batch.Listings, merged[i])
	}

	span.SetAttributes(
		attribute.Int("listing.merged", len(batch.Listings)),
		attribute.Int("listing.failed", len(batch.Failures)),
	)
	a.logger.Debug("aggregated listings",
		"items", len(items),
		"merged", len(batch.Listings),
		"failed", len(batch.Failures),
	)

	return batch, nil
}

// merge builds the Listing for a single item.
func (a *Aggregator) merge(ctx context.Context, item chain.MarketItem) (Listing, error) {
	tokenID, err := tokenIDInt64(item.TokenID)
	if err != nil {
		return Listing{}, err
	}

	uri, err := a.uris.TokenURI(ctx, item.NFTContract, item.TokenID)
	if err != nil {
		return Listing{}, fmt.Errorf("resolve token uri: %w", err)
	}

	doc, err := a.meta.Fetch(ctx, uri)
	if err != nil {
		return Listing{}, fmt.Errorf("fetch metadata: %w", err)
	}

	return Listing{
		TokenID:     tokenID,
		Price:       FormatEther(item.Price),
		Seller:      item.Seller,
		Owner:       item.Owner,
		Sold:        item.Sold,
		Image:       doc.Image,
		Name:        doc.Name,
		Description: doc.Description,
	}, nil
}
