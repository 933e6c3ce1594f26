package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/illomx/market-dashboard/internal/chain"
	"github.com/illomx/market-dashboard/internal/dashboard"
)

// Loader loads dashboards and the market view.
type Loader interface {
	Load(ctx context.Context, account common.Address) (*dashboard.Dashboard, error)
	LoadMarket(ctx context.Context) (*dashboard.Market, error)
}

// Pinger reports whether the chain node is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server configuration.
type Config struct {
	AllowedOrigins []string
	WatchInterval  time.Duration // Stream refresh interval
	LoadTimeout    time.Duration // Per-load timeout, 0 = request lifetime
}

// Server serves the HTTP API.
type Server struct {
	cfg      Config
	loader   Loader
	pinger   Pinger
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a Server.
func New(cfg Config, loader Loader, pinger Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		cfg:    cfg,
		loader: loader,
		pinger: pinger,
		logger: logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/market", s.handleMarket)
		r.Get("/dashboard/{address}", s.handleDashboard)
		r.Get("/dashboard/{address}/stream", s.handleStream)
	})

	return r
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Components: make(map[string]any),
	}

	if err := s.pinger.Ping(ctx); err != nil {
		health.Status = "unhealthy"
		health.Components["rpc"] = map[string]string{
			"status": "disconnected",
			"error":  err.Error(),
		}
	} else {
		health.Components["rpc"] = "connected"
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.loadContext(r.Context())
	defer cancel()

	m, err := s.loader.LoadMarket(ctx)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, m)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	account, ok := s.parseAccount(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.loadContext(r.Context())
	defer cancel()

	d, err := s.loader.Load(ctx, account)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, d)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) parseAccount(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	account, err := chain.ParseAccount(chi.URLParam(r, "address"))
	switch {
	case errors.Is(err, chain.ErrWalletNotConnected):
		writeError(w, http.StatusUnauthorized, err)
		return common.Address{}, false
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
		return common.Address{}, false
	}
	return account, true
}

func (s *Server) loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.LoadTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.LoadTimeout)
	}
	return context.WithCancel(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
