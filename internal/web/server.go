// Package web exposes the paper trading API over HTTP.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/papertrade/config"
	"github.com/vadiminshakov/papertrade/internal/domain"
	"github.com/vadiminshakov/papertrade/internal/services/accounts"
	"github.com/vadiminshakov/papertrade/internal/services/trades"
	"go.uber.org/zap"
)

const (
	ServiceName    = "papertrade"
	ServiceVersion = "1.0"

	RequestIDHeaderKey  = "X-Request-ID"
	RequestIDContextKey = "request_id"
	UserIDContextKey    = "user_id"

	snapshotPollInterval = 2 * time.Second
	heartbeatInterval    = 30 * time.Second
)

type AccountService interface {
	Register(ctx context.Context, r accounts.Registration) (*accounts.Session, error)
	Login(ctx context.Context, login, password string) (*accounts.Session, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
	Authenticate(token string) (string, error)
}

type TradeService interface {
	RecordTrade(ctx context.Context, order trades.Order) (*trades.Execution, error)
	History(ctx context.Context, userID string) ([]domain.Trade, error)
}

type MarketGateway interface {
	GetTicker(ctx context.Context, pair string) (domain.Quote, error)
	GetCandles(ctx context.Context, pair, timeframe string, limit int) (domain.CandleSeries, error)
}

type SnapshotReader interface {
	SnapshotsForUserAfter(userID string, index uint64) ([]domain.BalanceSnapshotRecord, error)
}

// Deps are the services behind the API. Snapshots may be nil, which disables the balance stream.
type Deps struct {
	Accounts  AccountService
	Trades    TradeService
	Market    MarketGateway
	Snapshots SnapshotReader
}

// Server is the HTTP API.
type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	logger *zap.Logger
	router *gin.Engine

	pollInterval      time.Duration
	heartbeatInterval time.Duration
}

func NewServer(cfg config.ServerConfig, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:               cfg,
		deps:              deps,
		logger:            logger,
		pollInterval:      snapshotPollInterval,
		heartbeatInterval: heartbeatInterval,
	}
	s.router = s.setupRoutes()
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(requestIDMiddleware())
	router.Use(accessLogMiddleware(s.logger))
	router.Use(recoveryMiddleware(s.logger))
	router.Use(corsMiddleware(s.cfg.CORSOrigins))

	api := router.Group("/api")
	api.GET("/health", s.handleHealth)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/login", s.handleLogin)
	authGroup.GET("/me", s.authMiddleware(), s.handleMe)

	marketGroup := api.Group("/market")
	marketGroup.GET("/ticker/:pair", s.handleTicker)
	marketGroup.GET("/candles/:pair/:timeframe", s.handleCandles)

	tradeGroup := api.Group("/trades", s.authMiddleware())
	tradeGroup.POST("/execute", s.handleExecuteTrade)
	tradeGroup.GET("/history", s.handleTradeHistory)

	api.GET("/balance/stream", s.authMiddleware(), s.handleBalanceStream)

	router.NoRoute(func(c *gin.Context) {
		respondError(c, s.logger, errors.Wrapf(domain.ErrNotFound, "route %s %s", c.Request.Method, c.Request.URL.Path))
	})

	return router
}

func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := s.httpServer()

	stop := s.shutdownOnDone(ctx, server)
	defer stop()

	s.logger.Info("api server listening", zap.String("addr", ln.Addr().String()))
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve api")
	}
	return nil
}

// shutdownOnDone shuts servers down when ctx ends. The returned func waits for the shutdown.
func (s *Server) shutdownOnDone(ctx context.Context, servers ...*http.Server) func() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Warn("server shutdown error", zap.String("addr", srv.Addr), zap.Error(err))
			}
		}
	}()
	return func() {
		if ctx.Err() != nil {
			<-done
		}
	}
}
