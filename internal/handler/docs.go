package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const serviceDocs = `# Market Simulation Service

Turn-based market game. A moderator creates a market, traders join it and submit one
offer (unit price, unit amount) per round. Once every trader has submitted, the round is
settled: demand is alpha - beta*price + theta*average_price, each trader sells
min(demand, amount) units and pays its production cost on every unit offered.

## Flow

1. POST /api/markets                      create a market (coefficients optional)
2. POST /api/markets/{id}/join            {"name": "..."} returns a bearer token
3. POST /api/markets/{id}/trades          {"round": 0, "price": 10, "amount": 45}
4. GET  /api/markets/{id}/ready           who has submitted, is the round complete
5. POST /api/markets/{id}/settle          settle the current round (or {"round": n})
6. GET  /api/markets/{id}/history         ?format=json|csv|xlsx

Traders that have not submitted when a round settles get a zero offer (price 0,
amount 0) and still pay nothing.

## Auth

Trader routes (/trades, /me) need the token returned by /join:
Authorization: Bearer <token>
A 401 with meta.rejoin=true means the token does not belong to this market.

## Other routes

- GET /api/markets/{id}/watch             websocket round status
- GET /api/system-settings/switches       feature switches
- GET /healthz, GET /readyz
- GET /swagger/index.html
`

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, serviceDocs)
	})
}
