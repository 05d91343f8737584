package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/simex/internal/activity"
	"github.com/vadiminshakov/simex/internal/domain"
	"github.com/vadiminshakov/simex/internal/services/trading"
)

type pairRequest struct {
	Pair string `json:"pair" binding:"required"`
}

type selectRequest struct {
	Side  domain.Side `json:"side" binding:"required"`
	Index int         `json:"index"`
}

type tradeRequest struct {
	Price      *string      `json:"price"`
	Amount     *string      `json:"amount"`
	Side       *domain.Side `json:"side"`
	AutoUpdate *bool        `json:"auto_update"`
}

type tradeResponse struct {
	trading.State
	Valid bool `json:"valid"`
}

type sessionRequest struct {
	Address string `json:"address"`
	APIKey  string `json:"api_key"`
}

type activityResponse struct {
	activity.Snapshot
	Status string `json:"status"`
}

func newTradeResponse(s trading.State) tradeResponse {
	return tradeResponse{State: s, Valid: s.Valid()}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}

func (s *Server) handleMarket(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Market.View())
}

func (s *Server) handleSetPair(c *gin.Context) {
	var req pairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, &domain.ValidationError{Field: "pair", Reason: err.Error()})
		return
	}
	if err := s.deps.Market.SetActivePair(c.Request.Context(), req.Pair); err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			s.writeError(c, err)
			return
		}
		// depth refresh failures are shown in the view; the switch itself succeeded
		s.logger.Warn("depth refresh after pair switch failed", zap.String("pair", req.Pair), zap.Error(err))
	}
	c.JSON(http.StatusOK, s.deps.Market.View())
}

func (s *Server) handleSelectLevel(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, &domain.ValidationError{Field: "side", Reason: err.Error()})
		return
	}
	selection, err := s.deps.Market.SelectLevel(req.Side, req.Index)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"selection": selection,
		"trade":     newTradeResponse(s.deps.Trading.State()),
	})
}

func (s *Server) handleTrade(c *gin.Context) {
	c.JSON(http.StatusOK, newTradeResponse(s.deps.Trading.State()))
}

func (s *Server) handleEditTrade(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, &domain.ValidationError{Field: "trade", Reason: err.Error()})
		return
	}

	state := s.deps.Trading.State()
	if req.AutoUpdate != nil {
		state = s.deps.Trading.Dispatch(trading.SetAutoUpdate{Enabled: *req.AutoUpdate})
	}
	if req.Side != nil {
		if !req.Side.IsValid() {
			s.writeError(c, &domain.ValidationError{Field: "side", Value: string(*req.Side), Reason: "must be bid or ask"})
			return
		}
		state = s.deps.Trading.Dispatch(trading.EditSide{Side: *req.Side})
	}
	if req.Price != nil {
		state = s.deps.Trading.Dispatch(trading.EditPrice{Value: *req.Price})
	}
	if req.Amount != nil {
		state = s.deps.Trading.Dispatch(trading.EditAmount{Value: *req.Amount})
	}

	c.JSON(http.StatusOK, newTradeResponse(state))
}

func (s *Server) handleSubmit(c *gin.Context) {
	docket, err := s.deps.Orders.Submit(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"docket": docket,
		"trade":  newTradeResponse(s.deps.Trading.State()),
	})
}

func (s *Server) handleCancelDocket(c *gin.Context) {
	if err := s.deps.Orders.Cancel(c.Request.Context()); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTradeResponse(s.deps.Trading.State()))
}

func (s *Server) handleOrders(c *gin.Context) {
	history, err := s.deps.Orders.History(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if status := c.Query("status"); status != "" {
		c.JSON(http.StatusOK, gin.H{"status": status, "orders": history.Groups[status]})
		return
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) handleRepeatOrder(c *gin.Context) {
	id, ok := s.orderID(c)
	if !ok {
		return
	}
	order, found := s.deps.Orders.Find(id)
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("order %d not found", id)})
		return
	}
	docket, err := s.deps.Orders.Repeat(c.Request.Context(), order)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"docket": docket})
}

func (s *Server) handleCancelOrder(c *gin.Context) {
	id, ok := s.orderID(c)
	if !ok {
		return
	}
	if err := s.deps.Orders.CancelOrder(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) orderID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(c, &domain.ValidationError{Field: "order_id", Value: raw, Reason: "must be a positive integer"})
		return 0, false
	}
	return id, true
}

func (s *Server) handleBalances(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Balances.View())
}

func (s *Server) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, sessionView(s.deps.Session))
}

func (s *Server) handleSetSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, &domain.ValidationError{Field: "session", Reason: err.Error()})
		return
	}
	if err := s.deps.Session.SetManual(req.Address, req.APIKey); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionView(s.deps.Session))
}

func (s *Server) handleDisconnect(c *gin.Context) {
	if err := s.deps.Session.Disconnect(); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionView(s.deps.Session))
}

func (s *Server) handleConnectWallet(c *gin.Context) {
	if s.deps.Signer == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "wallet key is not configured"})
		return
	}
	if _, err := s.deps.Session.ConnectWallet(c.Request.Context(), s.deps.Signer); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionView(s.deps.Session))
}

func (s *Server) handleActivity(c *gin.Context) {
	c.JSON(http.StatusOK, activityResponse{
		Snapshot: s.deps.Activity.Snapshot(),
		Status:   s.deps.Activity.Status(s.deps.Session.Connected()),
	})
}

// handleStream pushes the market view and the trade state whenever either changes.
func (s *Server) handleStream(c *gin.Context) {
	marketUpdates := s.deps.Market.Subscribe()
	defer s.deps.Market.Unsubscribe(marketUpdates)
	tradeUpdates := s.deps.Trading.Subscribe()
	defer s.deps.Trading.Unsubscribe(tradeUpdates)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("market", s.deps.Market.View())
	c.SSEvent("trade", newTradeResponse(s.deps.Trading.State()))
	c.Writer.Flush()

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = c.Writer.WriteString(": ping\n\n")
			c.Writer.Flush()
		case _, ok := <-marketUpdates:
			if !ok {
				return
			}
			c.SSEvent("market", s.deps.Market.View())
			c.Writer.Flush()
		case state, ok := <-tradeUpdates:
			if !ok {
				return
			}
			c.SSEvent("trade", newTradeResponse(state))
			c.Writer.Flush()
		}
	}
}

func sessionView(sess Session) gin.H {
	creds := sess.Credentials()
	return gin.H{
		"address":   creds.Address,
		"connected": sess.Connected(),
	}
}
