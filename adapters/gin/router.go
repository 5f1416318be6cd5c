// Package relaygin wires the relay's HTTP surface: broadcast endpoints,
// health, the websocket upgrade path, and the CORS layer driven by the
// origin guard.
package relaygin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sofolpay/realtime/adapters/gin/handlers"
	"github.com/sofolpay/realtime/hub"
	"github.com/sofolpay/realtime/origin"
	"github.com/sofolpay/realtime/ratelimit"
)

// maxBodyBytes caps broadcast request bodies.
const maxBodyBytes = 256 << 10

// Deps holds everything the router needs.
type Deps struct {
	Trust   handlers.SnapshotSource
	Guard   *origin.Guard
	Hub     *hub.Hub
	Socket  http.Handler
	Limiter ratelimit.Limiter
}

// New builds the gin engine with all routes and middleware attached.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), cors(d.Guard), bodyLimit(maxBodyBytes))

	r.GET("/", HandleIndexGET)
	r.GET("/health", handlers.HandleHealthGET(d.Trust, d.Guard, d.Hub))
	r.GET("/socket", gin.WrapH(d.Socket))
	r.POST("/broadcast/payment", handlers.HandleBroadcastPaymentPOST(d.Trust, d.Hub, d.Limiter))
	r.POST("/broadcast/qr", handlers.HandleBroadcastQRPOST(d.Trust, d.Hub, d.Limiter))

	return r
}

// cors reflects the request origin when the guard allows it and answers
// preflights. Disallowed origins simply get no CORS headers; the browser
// enforces the rest.
func cors(g *origin.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqOrigin := c.GetHeader("Origin")
		if reqOrigin != "" && g.IsOriginAllowed(reqOrigin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", reqOrigin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if c.Request.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
