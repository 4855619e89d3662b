package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketsim/internal/models"
	"marketsim/internal/service"
	"marketsim/internal/session"
)

type MarketHandler struct {
	Markets   *service.MarketRegistry
	Traders   *service.TraderRegistry
	Readiness *service.ReadinessService
	Sessions  *session.Signer
	Logger    *zap.Logger
}

func (h *MarketHandler) Register(r *gin.Engine) {
	g := r.Group("/api/markets")
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.GET("/:id/traders", h.traders)
	g.POST("/:id/join", h.join)
	g.GET("/:id/round", h.round)
	g.GET("/:id/ready", h.ready)
}

type createMarketRequest struct {
	Alpha               formValue `json:"alpha"`
	Beta                formValue `json:"beta"`
	Theta               formValue `json:"theta"`
	MinCost             formValue `json:"min_cost"`
	MaxCost             formValue `json:"max_cost"`
	ProductNameSingular string    `json:"product_name_singular"`
	ProductNamePlural   string    `json:"product_name_plural"`
}

// @Summary Create market
// @Tags markets
// @Accept json
// @Param body body createMarketRequest false "Demand coefficients and cost range; omitted fields use defaults"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/markets [post]
func (h *MarketHandler) create(c *gin.Context) {
	var req createMarketRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid body", nil)
			return
		}
	}
	market, err := h.Markets.CreateMarket(c.Request.Context(), service.CreateMarketInput{
		Alpha:               req.Alpha.String(),
		Beta:                req.Beta.String(),
		Theta:               req.Theta.String(),
		MinCost:             req.MinCost.String(),
		MaxCost:             req.MaxCost.String(),
		ProductNameSingular: req.ProductNameSingular,
		ProductNamePlural:   req.ProductNamePlural,
	})
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	Ok(c, market, nil)
}

type marketView struct {
	Market  *models.Market  `json:"market"`
	Traders []models.Trader `json:"traders"`
}

// @Summary Get market with its traders
// @Tags markets
// @Param id path string true "Market ID"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/markets/{id} [get]
func (h *MarketHandler) get(c *gin.Context) {
	ctx := c.Request.Context()
	market, err := h.Markets.GetMarket(ctx, c.Param("id"))
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	traders, err := h.Markets.Repo.ListTraders(ctx, market.ID)
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	if traders == nil {
		traders = []models.Trader{}
	}
	Ok(c, marketView{Market: market, Traders: traders}, map[string]any{"total": len(traders)})
}

// @Summary List trader names in join order
// @Tags markets
// @Param id path string true "Market ID"
// @Success 200 {object} apiResponse
// @Router /api/markets/{id}/traders [get]
func (h *MarketHandler) traders(c *gin.Context) {
	names, err := h.Readiness.TradersInMarket(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	Ok(c, names, map[string]any{"total": len(names)})
}

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	Trader    *models.Trader `json:"trader"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// @Summary Join a market as a new trader
// @Tags markets
// @Accept json
// @Param id path string true "Market ID"
// @Param body body joinRequest true "Trader name"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/markets/{id}/join [post]
func (h *MarketHandler) join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	trader, err := h.Traders.JoinMarket(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	if h.Sessions == nil {
		Error(c, http.StatusInternalServerError, "session signer unavailable", nil)
		return
	}
	token, expiresAt, err := h.Sessions.Sign(trader.MarketID, trader.ID)
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	Ok(c, joinResponse{Trader: trader, Token: token, ExpiresAt: expiresAt}, nil)
}

// @Summary Current round
// @Tags markets
// @Param id path string true "Market ID"
// @Success 200 {object} apiResponse
// @Router /api/markets/{id}/round [get]
func (h *MarketHandler) round(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	round, err := h.Markets.CurrentRound(c.Request.Context(), id)
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	Ok(c, map[string]any{"market_id": id, "round": round}, nil)
}

// @Summary Readiness of a round
// @Description Lists traders holding a voluntary trade for the round (current round by default) and whether the current round is ready to settle.
// @Tags markets
// @Param id path string true "Market ID"
// @Param round query int false "Round (defaults to current)"
// @Success 200 {object} apiResponse
// @Router /api/markets/{id}/ready [get]
func (h *MarketHandler) ready(c *gin.Context) {
	round, ok := int64QueryPtr(c, "round")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid round: not an integer", map[string]any{"field": "round"})
		return
	}
	ctx := c.Request.Context()
	status, err := h.Readiness.Status(ctx, c.Param("id"))
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	if round != nil && *round != status.Round {
		names, err := h.Readiness.TradersReady(ctx, status.MarketID, *round)
		if err != nil {
			renderError(c, h.Logger, err)
			return
		}
		Ok(c, map[string]any{
			"market_id":     status.MarketID,
			"round":         *round,
			"current_round": status.Round,
			"ready":         status.Ready,
			"submitted":     names,
			"traders":       status.Traders,
		}, nil)
		return
	}
	Ok(c, map[string]any{
		"market_id":     status.MarketID,
		"round":         status.Round,
		"current_round": status.Round,
		"ready":         status.Ready,
		"submitted":     status.Submitted,
		"traders":       status.Traders,
	}, nil)
}
