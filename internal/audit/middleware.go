package audit

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// WriteMiddleware records every non-GET request under /api/ after it completes.
func WriteMiddleware(c *Client) gin.HandlerFunc {
	if c == nil {
		return func(ctx *gin.Context) { ctx.Next() }
	}
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		path := ctx.Request.URL.Path
		method := strings.ToUpper(ctx.Request.Method)
		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}
		status := ctx.Writer.Status()
		c.RecordAsync("market_http_write", LevelFromStatus(status), map[string]any{
			"method":   method,
			"path":     path,
			"route":    ctx.FullPath(),
			"status":   status,
			"duration": time.Since(start).String(),
		})
	}
}

func LevelFromStatus(status int) string {
	if status >= 500 {
		return "error"
	}
	if status >= 400 {
		return "warn"
	}
	return "info"
}
