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

type paymentPayload struct {
	UserID    FlexID  `json:"user_id"`
	PaymentID FlexID  `json:"payment_id"`
	TrxID     string  `json:"trx_id"`
	Redirect  *string `json:"redirect"`
}

// HandleBroadcastPaymentPOST pushes a payment outcome to the payment room.
// The broadcast guard runs before any payload validation.
func HandleBroadcastPaymentPOST(src SnapshotSource, h *hub.Hub, rl ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.Allow(c, rl, ratelimit.BucketBroadcastPayment) {
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

		var p paymentPayload
		if err := json.Unmarshal(body, &p); err != nil || p.UserID == "" || p.PaymentID == "" {
			ginutil.InvalidPayload(c)
			return
		}

		room := hub.PaymentRoom(string(p.UserID), string(p.PaymentID))
		var redirect any
		if p.Redirect != nil && *p.Redirect != "" {
			redirect = *p.Redirect
		}
		h.Broadcast(room, hub.Event{Name: "payment_completed", Data: gin.H{
			"paid":     true,
			"trx_id":   p.TrxID,
			"redirect": redirect,
		}})

		c.JSON(http.StatusOK, gin.H{"ok": true, "room": room})
	}
}
