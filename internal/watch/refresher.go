package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/illomx/market-dashboard/internal/dashboard"
)

// Loader loads a dashboard.
type Loader interface {
	Load(ctx context.Context, account common.Address) (*dashboard.Dashboard, error)
}

// Handler receives refreshed dashboards.
type Handler interface {
	HandleDashboard(d *dashboard.Dashboard) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(*dashboard.Dashboard) error

func (f HandlerFunc) HandleDashboard(d *dashboard.Dashboard) error {
	return f(d)
}

// Config holds refresher configuration.
type Config struct {
	Interval time.Duration // Refresh interval (default: 30s)
	Timeout  time.Duration // Per-load timeout, 0 = none
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  time.Minute,
	}
}

// Refresher periodically reloads one viewer's dashboard.
type Refresher struct {
	cfg     Config
	loader  Loader
	account common.Address
	handler Handler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new Refresher.
func New(cfg Config, loader Loader, account common.Address, handler Handler, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Refresher{
		cfg:     cfg,
		loader:  loader,
		account: account,
		handler: handler,
		logger:  logger.With("account", account.Hex()),
		done:    make(chan struct{}),
	}
}

// Start begins the refresh loop.
func (r *Refresher) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	go r.run()

	r.logger.Info("dashboard refresher started", "interval", r.cfg.Interval)

	return nil
}

// Stop gracefully shuts down the refresher.
func (r *Refresher) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	select {
	case <-r.done:
		r.logger.Info("dashboard refresher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the refresh loop has exited.
func (r *Refresher) Done() <-chan struct{} {
	return r.done
}

// run is the main refresh loop.
func (r *Refresher) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	// Refresh immediately on start.
	if !r.refresh() {
		return
	}

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if !r.refresh() {
				return
			}
		}
	}
}

// refresh loads and delivers one dashboard. It returns false when the loop
// should end.
func (r *Refresher) refresh() bool {
	ctx := r.ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(r.ctx, r.cfg.Timeout)
		defer cancel()
	}

	d, err := r.loader.Load(ctx, r.account)
	if r.ctx.Err() != nil {
		return false
	}
	if err != nil {
		r.logger.Warn("dashboard refresh failed", "err", err)
	}
	if d == nil {
		return true
	}

	if err := r.handler.HandleDashboard(d); err != nil {
		r.logger.Debug("dashboard handler closed", "err", err)
		r.cancel()
		return false
	}
	return true
}
