package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketsim/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SettlementHandler struct {
	Settlement *service.SettlementService
	History    *service.HistoryService
	Logger     *zap.Logger
}

func (h *SettlementHandler) Register(r *gin.Engine) {
	g := r.Group("/api/markets")
	g.POST("/:id/settle", h.settle)
	g.GET("/:id/history", h.history)
}

type settleRequest struct {
	Round *int64 `json:"round"`
}

// @Summary Settle a round
// @Description Clears the round and advances the market. Settling a round the market has already left returns settled=false.
// @Tags settlement
// @Accept json
// @Param id path string true "Market ID"
// @Param body body settleRequest false "Round to settle (defaults to current)"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/markets/{id}/settle [post]
func (h *SettlementHandler) settle(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	var (
		res *service.SettlementResult
		err error
	)
	if req.Round != nil {
		res, err = h.Settlement.SettleRound(ctx, id, *req.Round)
	} else {
		res, err = h.Settlement.SettleCurrent(ctx, id)
	}
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Export market history
// @Description One row per settled round with averages and each trader's bank.
// @Tags settlement
// @Param id path string true "Market ID"
// @Param format query string false "json (default), csv or xlsx"
// @Success 200 {object} apiResponse
// @Router /api/markets/{id}/history [get]
func (h *SettlementHandler) history(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "json")))
	switch format {
	case "json", "csv", "xlsx":
	default:
		Error(c, http.StatusBadRequest, "invalid format: must be json, csv or xlsx", map[string]any{"field": "format"})
		return
	}
	hist, err := h.History.ExportHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}
	filename := fmt.Sprintf("%s_stats.%s", hist.MarketID, format)
	switch format {
	case "csv":
		var buf bytes.Buffer
		if err := hist.WriteCSV(&buf); err != nil {
			renderError(c, h.Logger, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	case "xlsx":
		var buf bytes.Buffer
		if err := hist.WriteXLSX(&buf); err != nil {
			renderError(c, h.Logger, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	default:
		Ok(c, hist, map[string]any{"header": hist.Header()})
	}
}
