package handler

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"marketsim/internal/service"
)

// StreamHandler pushes a market's round status over a websocket whenever it changes,
// so waiting rooms do not have to poll.
type StreamHandler struct {
	Readiness    *service.ReadinessService
	Flags        *service.SystemSettingsService
	PollInterval time.Duration
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/api/markets/:id/watch", h.watch)
}

// @Summary Watch round status
// @Description Websocket. Sends {market_id, round, ready, traders, submitted} on connect and on every change.
// @Tags markets
// @Param id path string true "Market ID"
// @Success 101
// @Failure 404 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /api/markets/{id}/watch [get]
func (h *StreamHandler) watch(c *gin.Context) {
	if h.Flags != nil && !h.Flags.IsEnabled(c.Request.Context(), service.FeatureRoundStream, true) {
		Error(c, http.StatusServiceUnavailable, "round stream disabled", nil)
		return
	}
	id := c.Param("id")
	status, err := h.Readiness.Status(c.Request.Context(), id)
	if err != nil {
		renderError(c, h.Logger, err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		// Accept has already written the failure response.
		h.logDebug("websocket accept failed", zap.String("market_id", id), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Reads are discarded; the returned context ends when the client goes away.
	ctx := conn.CloseRead(c.Request.Context())
	if err := h.write(ctx, conn, status); err != nil {
		return
	}

	interval := h.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := status
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
		}
		next, err := h.Readiness.Status(ctx, id)
		if err != nil {
			if ctx.Err() == nil {
				h.logDebug("round status poll failed", zap.String("market_id", id), zap.Error(err))
			}
			continue
		}
		if sameStatus(last, next) {
			continue
		}
		if err := h.write(ctx, conn, next); err != nil {
			return
		}
		last = next
	}
}

func (h *StreamHandler) write(ctx context.Context, conn *websocket.Conn, status *service.RoundStatus) error {
	timeout := h.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := wsjson.Write(wctx, conn, status); err != nil {
		h.logDebug("websocket write failed", zap.String("market_id", status.MarketID), zap.Error(err))
		return err
	}
	return nil
}

func (h *StreamHandler) logDebug(msg string, fields ...zap.Field) {
	if h.Logger != nil {
		h.Logger.Debug(msg, fields...)
	}
}

func sameStatus(a, b *service.RoundStatus) bool {
	return a.Round == b.Round &&
		a.Ready == b.Ready &&
		slices.Equal(a.Traders, b.Traders) &&
		slices.Equal(a.Submitted, b.Submitted)
}
