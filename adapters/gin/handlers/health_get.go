package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sofolpay/realtime/hub"
	"github.com/sofolpay/realtime/origin"
)

// HandleHealthGET reports relay liveness and trust-config state. It takes
// no authentication and never fails; unready state reads as false/zero.
func HandleHealthGET(src SnapshotSource, g *origin.Guard, h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := src.Snapshot()
		clients, rooms := h.Counts()

		var lastRefresh any
		if !snap.LastRefreshAt.IsZero() {
			lastRefresh = snap.LastRefreshAt.UTC().Format(time.RFC3339)
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":                    true,
			"server_time":           time.Now().UTC().Format(time.RFC3339),
			"clients":               clients,
			"rooms":                 rooms,
			"config_loaded":         snap.Loaded(),
			"issuer":                nullable(snap.Issuer),
			"kid":                   nullable(snap.KeyID),
			"allowed_origins_count": len(g.EffectiveRules()),
			"origin_lock":           g.OverrideActive(),
			"last_refresh_at":       lastRefresh,
		})
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
