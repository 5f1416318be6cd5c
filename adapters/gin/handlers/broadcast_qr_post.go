package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sofolpay/realtime/adapters/ginutil"
	"github.com/sofolpay/realtime/hub"
	"github.com/sofolpay/realtime/ratelimit"
)

type qrPayload struct {
	UserID   FlexID `json:"user_id"`
	DeviceID string `json:"device_id"`
}

// HandleBroadcastQRPOST notifies a user's sessions that their login QR
// was consumed on another device.
func HandleBroadcastQRPOST(src SnapshotSource, h *hub.Hub, rl ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.Allow(c, rl, ratelimit.BucketBroadcastQR) {
			ginutil.TooMany(c)
			return
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			ginutil.InvalidPayload(c)
			return
		}
		if _, ok := verifyBroadcastRequest(c, src.Snapshot(), body); !ok {
			return
		}

		var p qrPayload
		if err := json.Unmarshal(body, &p); err != nil || p.UserID == "" {
			ginutil.InvalidPayload(c)
			return
		}

		h.Broadcast(hub.UserRoom(string(p.UserID)), hub.Event{Name: "qr_consumed", Data: gin.H{
			"ok":        true,
			"device_id": p.DeviceID,
		}})

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
