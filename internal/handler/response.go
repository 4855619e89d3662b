package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketsim/internal/service"
	"marketsim/internal/validation"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// renderError maps service and validation errors onto HTTP statuses. Callers whose
// identity no longer matches a trader get meta.rejoin so the client can send them back
// to the join page.
func renderError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		Error(c, http.StatusBadRequest, verr.Error(), map[string]any{"field": verr.Field})
	case errors.Is(err, service.ErrDuplicateSubmission):
		Error(c, http.StatusConflict, err.Error(), map[string]any{"reason": "duplicate"})
	case errors.Is(err, service.ErrStaleRound):
		Error(c, http.StatusConflict, err.Error(), map[string]any{"reason": "stale_round"})
	case errors.Is(err, service.ErrMarketNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrTraderNotFound):
		Error(c, http.StatusNotFound, err.Error(), map[string]any{"rejoin": true})
	case errors.Is(err, service.ErrTraderNotInMarket):
		Error(c, http.StatusUnauthorized, err.Error(), map[string]any{"rejoin": true})
	case errors.Is(err, service.ErrMarketIDExhausted):
		Error(c, http.StatusServiceUnavailable, err.Error(), nil)
	default:
		if logger != nil {
			logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
		}
		Error(c, http.StatusInternalServerError, "internal error", nil)
	}
}

func unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "missing or invalid trader token", map[string]any{"rejoin": true})
}
