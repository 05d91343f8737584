// Package web exposes the market and trading state to the browser UI over HTTP and SSE.
package web

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vadiminshakov/simex/internal/activity"
	"github.com/vadiminshakov/simex/internal/domain"
	"github.com/vadiminshakov/simex/internal/services/balance"
	"github.com/vadiminshakov/simex/internal/services/depth"
	"github.com/vadiminshakov/simex/internal/services/market"
	"github.com/vadiminshakov/simex/internal/services/orders"
	"github.com/vadiminshakov/simex/internal/services/session"
	"github.com/vadiminshakov/simex/internal/services/trading"
)

const heartbeatInterval = 30 * time.Second

// Market market state and pair selection.
type Market interface {
	View() market.View
	SetActivePair(ctx context.Context, pair string) error
	SelectLevel(side domain.Side, index int) (depth.Selection, error)
	Subscribe() chan string
	Unsubscribe(ch chan string)
}

// Trading order draft state.
type Trading interface {
	State() trading.State
	Dispatch(a trading.Action) trading.State
	Subscribe() chan trading.State
	Unsubscribe(ch chan trading.State)
}

// Orders submission pipeline and order history.
type Orders interface {
	Submit(ctx context.Context) (domain.LimitOrderDocket, error)
	Cancel(ctx context.Context) error
	History(ctx context.Context) (orders.History, error)
	Find(orderID int64) (domain.Order, bool)
	Repeat(ctx context.Context, order domain.Order) (domain.LimitOrderDocket, error)
	CancelOrder(ctx context.Context, orderID int64) error
}

// Balances account balances.
type Balances interface {
	View() balance.View
}

// Session account credentials.
type Session interface {
	Credentials() domain.Credentials
	Connected() bool
	SetManual(address, apiKey string) error
	ConnectWallet(ctx context.Context, signer session.Signer) (domain.Credentials, error)
	Disconnect() error
}

// Deps services served by the UI API. Signer may be nil when no wallet key is configured.
type Deps struct {
	Market   Market
	Trading  Trading
	Orders   Orders
	Balances Balances
	Session  Session
	Activity *activity.Log
	Signer   session.Signer
}

// Server exposes HTTP endpoints serving the HTML UI, the JSON API and an SSE stream.
type Server struct {
	Addr   string
	deps   Deps
	logger *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(addr string, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Activity == nil {
		deps.Activity = activity.NewLog(logger, 0)
	}
	return &Server{Addr: addr, deps: deps, logger: logger}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.handleIndex)

	api := r.Group("/api")
	{
		api.GET("/market", s.handleMarket)
		api.GET("/market/stream", s.handleStream)
		api.POST("/market/pair", s.handleSetPair)
		api.POST("/market/depth/select", s.handleSelectLevel)

		api.GET("/trade", s.handleTrade)
		api.POST("/trade", s.handleEditTrade)
		api.POST("/trade/submit", s.handleSubmit)
		api.DELETE("/trade/docket", s.handleCancelDocket)

		api.GET("/orders", s.handleOrders)
		api.POST("/orders/:id/repeat", s.handleRepeatOrder)
		api.DELETE("/orders/:id", s.handleCancelOrder)

		api.GET("/balances", s.handleBalances)

		api.GET("/session", s.handleSession)
		api.POST("/session", s.handleSetSession)
		api.DELETE("/session", s.handleDisconnect)
		api.POST("/session/wallet", s.handleConnectWallet)

		api.GET("/activity", s.handleActivity)
	}

	return r
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("web server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs HTTPS with certificates from Let's Encrypt plus an
// HTTP listener on :80 for ACME challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return errors.New("at least one domain is required for TLS")
	}
	if cacheDir == "" {
		cacheDir = "./certs"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("http (acme) server shutdown error", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("https server shutdown error", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http (acme) server error", zap.Error(err))
		}
	}()

	s.logger.Info("web server listening with TLS", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// writeError maps the error taxonomy to HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{"error": domain.UserMessage(err)}

	var (
		validationErr *domain.ValidationError
		apiErr        *domain.APIError
		networkErr    *domain.NetworkError
	)
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusUnprocessableEntity
		body["field"] = validationErr.Field
	case errors.Is(err, domain.ErrNoCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNoDocket):
		status = http.StatusNotFound
	case errors.As(err, &apiErr):
		status = http.StatusBadGateway
		body["level"] = domain.LevelCritical
	case errors.As(err, &networkErr):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}
