package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketsim/internal/models"
	"marketsim/internal/service"
	"marketsim/internal/session"
)

// TradeHandler serves the trader-facing routes. Both require the bearer token issued on join.
type TradeHandler struct {
	Trades  *service.TradeService
	Traders *service.TraderRegistry
	Logger  *zap.Logger
}

func (h *TradeHandler) Register(r *gin.Engine) {
	g := r.Group("/api/markets")
	g.POST("/:id/trades", h.submit)
	g.GET("/:id/me", h.me)
}

// caller returns the token claims when they name a trader of the market in the path.
func caller(c *gin.Context) (session.Claims, bool) {
	claims, ok := session.FromGin(c)
	if !ok {
		unauthorized(c)
		return session.Claims{}, false
	}
	if claims.MarketID != strings.TrimSpace(c.Param("id")) {
		renderError(c, nil, service.ErrTraderNotInMarket)
		return session.Claims{}, false
	}
	return claims, true
}

type submitTradeRequest struct {
	Round  *int64    `json:"round"`
	Price  formValue `json:"price"`
	Amount formValue `json:"amount"`
}

// @Summary Submit a trade for the current round
// @Tags trades
// @Accept json
// @Security BearerAuth
// @Param id path string true "Market ID"
// @Param body body submitTradeRequest true "Round, unit price and unit amount"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 401 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/markets/{id}/trades [post]
func (h *TradeHandler) submit(c *gin.Context) {
	claims, ok := caller(c)
	if !ok {
		return
	}
	var req submitTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if req.Round == nil {
		Error(c, http.StatusBadRequest, "invalid round: required", map[string]any{"field": "round"})
		return
	}
	trade, err := h.Trades.Submit(c.Request.Context(), service.SubmitTradeInput{
		TraderID: claims.TraderID,
		MarketID: claims.MarketID,
		Round:    *req.Round,
		Price:    req.Price.String(),
		Amount:   req.Amount.String(),
	})
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	Ok(c, trade, nil)
}

type meResponse struct {
	Trader *models.Trader `json:"trader"`
	Trades []models.Trade `json:"trades"`
}

// @Summary Caller's trader record and trade history
// @Tags trades
// @Security BearerAuth
// @Param id path string true "Market ID"
// @Success 200 {object} apiResponse
// @Failure 401 {object} apiResponse
// @Router /api/markets/{id}/me [get]
func (h *TradeHandler) me(c *gin.Context) {
	claims, ok := caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	trader, err := h.Traders.TraderInMarket(ctx, claims.MarketID, claims.TraderID)
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	trades, err := h.Traders.TraderTrades(ctx, trader.ID)
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	Ok(c, meResponse{Trader: trader, Trades: trades}, nil)
}
