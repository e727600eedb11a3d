package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/serum-dashboard/internal/dashboard"
	"github.com/rickgao/serum-dashboard/internal/loader"
	"github.com/rickgao/serum-dashboard/internal/model"
	"github.com/rickgao/serum-dashboard/internal/notify"
	"github.com/rickgao/serum-dashboard/internal/pricing"
	"github.com/rickgao/serum-dashboard/internal/version"
)

// Dashboard is the query surface served over HTTP.
type Dashboard interface {
	MarketsList() []model.MarketInfo
	MarketInfos(ctx context.Context) ([]model.MarketInfo, error)
	Session(ctx context.Context, address string) dashboard.Session
	Market(ctx context.Context, address string) (dashboard.MarketView, error)
	OrderBook(ctx context.Context, address string, bids bool) (model.OrderBook, error)
	Quote(ctx context.Context, address, side string, cost float64, tickDecimals *int) (dashboard.PriceQuote, error)
	Trades(ctx context.Context, address string) ([]model.Trade, error)
	Unmigrated(ctx context.Context, owner string) ([]dashboard.UnmigratedMarket, error)
	OpenOrders(ctx context.Context, owner string) ([]loader.MarketOrders, error)
	Balances(ctx context.Context, owner string) (dashboard.Balances, error)
	SelectedTokenAccount(ctx context.Context, owner, mint string) (*model.TokenAccount, error)

	CustomMarkets(ctx context.Context) ([]model.CustomMarketInfo, error)
	SetCustomMarkets(ctx context.Context, markets []model.CustomMarketInfo) error
	SelectedTokenAccounts(ctx context.Context) (map[string]string, error)
	SetSelectedTokenAccounts(ctx context.Context, selected map[string]string) error
	FeeDiscountKey(ctx context.Context) (string, error)
	SetFeeDiscountKey(ctx context.Context, key string) error
}

// Notifications is the notification stream served over WebSocket.
type Notifications interface {
	Subscribe() *notify.Subscription
	Unsubscribe(sub *notify.Subscription)
	Recent(n int) []notify.Notification
	Subscribers() int
}

// Config holds server settings.
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	PingInterval    time.Duration
	RequestTimeout  time.Duration // per-request deadline for dashboard calls
}

// maxBodyBytes bounds PUT bodies.
const maxBodyBytes = 1 << 20

// Server serves the dashboard API.
type Server struct {
	cfg      Config
	dash     Dashboard
	notifier Notifications
	logger   *slog.Logger
	upgrader websocket.Upgrader
	http     *http.Server
}

// New creates a Server.
func New(cfg Config, dash Dashboard, notifier Notifications, logger *slog.Logger) *Server {
	if dash == nil || notifier == nil {
		panic("server: nil dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		cfg:      cfg,
		dash:     dash,
		notifier: notifier,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/markets", s.handleMarketsList)
	mux.HandleFunc("GET /api/markets/all", s.handleMarketInfos)
	mux.HandleFunc("GET /api/markets/{address}", s.handleMarket)
	mux.HandleFunc("GET /api/markets/{address}/orderbook", s.handleOrderBook)
	mux.HandleFunc("GET /api/markets/{address}/pricing", s.handlePricing)
	mux.HandleFunc("GET /api/markets/{address}/trades", s.handleTrades)

	mux.HandleFunc("GET /api/wallets/{owner}/unmigrated", s.handleUnmigrated)
	mux.HandleFunc("GET /api/wallets/{owner}/balances", s.handleBalances)
	mux.HandleFunc("GET /api/wallets/{owner}/orders", s.handleOpenOrders)
	mux.HandleFunc("GET /api/wallets/{owner}/token-accounts/{mint}", s.handleSelectedTokenAccount)

	mux.HandleFunc("GET /api/custom-markets", s.handleGetCustomMarkets)
	mux.HandleFunc("PUT /api/custom-markets", s.handlePutCustomMarkets)
	mux.HandleFunc("GET /api/selected-token-accounts", s.handleGetSelected)
	mux.HandleFunc("PUT /api/selected-token-accounts", s.handlePutSelected)
	mux.HandleFunc("GET /api/fee-discount-key", s.handleGetFeeDiscountKey)
	mux.HandleFunc("PUT /api/fee-discount-key", s.handlePutFeeDiscountKey)

	mux.HandleFunc("GET /api/notifications", s.handleRecentNotifications)
	mux.HandleFunc("GET /ws/notifications", s.handleNotificationStream)

	return s.recoverer(mux)
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("starting http server", "port", s.cfg.Port)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "err", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// recoverer turns a handler panic into a 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.logger.Error("handler panic", "path", r.URL.Path, "panic", v)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := struct {
		Status     string         `json:"status"`
		Version    string         `json:"version"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Version:    version.String(),
		Components: make(map[string]any),
	}

	markets := len(s.dash.MarketsList())
	health.Components["market_registry"] = map[string]any{"markets": markets}
	if markets == 0 {
		health.Status = "degraded"
	}
	health.Components["notifications"] = map[string]any{"subscribers": s.notifier.Subscribers()}

	writeJSON(w, http.StatusOK, health)
}

// writeJSON writes v as JSON with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps a dashboard error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrInvalidAddress), errors.Is(err, dashboard.ErrInvalidSide):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrUnknownMarket):
		return http.StatusNotFound
	case errors.Is(err, pricing.ErrInsufficientLiquidity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Warn("request failed", "path", r.URL.Path, "status", status, "err", err)
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid body: %w", err)
	}
	return nil
}
