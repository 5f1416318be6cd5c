// Package handlers implements the relay's HTTP endpoints, one file per
// endpoint, plus the shared broadcast guard.
package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sofolpay/realtime/adapters/ginutil"
	"github.com/sofolpay/realtime/token"
	"github.com/sofolpay/realtime/trust"
)

// SnapshotSource yields the trust snapshot a request verifies against.
// *trust.Store satisfies it.
type SnapshotSource interface {
	Snapshot() *trust.Snapshot
}

var log = logrus.WithField("component", "broadcast")

// verifyBroadcastRequest runs the broadcast guard: bearer extraction,
// token verification, and the path and body-hash bindings. On failure it
// writes the 401 response and returns false. All failure modes collapse
// to a terse client message; the distinction stays in the logs.
func verifyBroadcastRequest(c *gin.Context, snap *trust.Snapshot, body []byte) (*token.BroadcastClaims, bool) {
	raw, ok := ginutil.ExtractBearer(c.GetHeader("Authorization"))
	if !ok {
		ginutil.Unauthorized(c, "Missing bearer token")
		return nil, false
	}

	claims, err := token.VerifyBroadcast(c.Request.Context(), raw, snap)
	if err != nil {
		if errors.Is(err, token.ErrConfigNotReady) {
			log.Warn("broadcast rejected: trust config not loaded")
			ginutil.Unauthorized(c, "Realtime config not loaded")
			return nil, false
		}
		log.WithError(err).Debug("broadcast token rejected")
		ginutil.Unauthorized(c, "Unauthorized")
		return nil, false
	}

	if claims.Path != "" && claims.Path != c.Request.URL.Path {
		ginutil.Unauthorized(c, "Path mismatch")
		return nil, false
	}
	if claims.BodySHA256 != "" && sha256Hex(body) != claims.BodySHA256 {
		ginutil.Unauthorized(c, "Body hash mismatch")
		return nil, false
	}
	return claims, true
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
