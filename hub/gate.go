package hub

import (
	"context"
	"errors"
	"fmt"

	"github.com/sofolpay/realtime/token"
	"github.com/sofolpay/realtime/trust"
)

// Handshake rejection messages. One client-visible category for all
// credential failures; the distinction only appears in logs.
const (
	MsgMissingToken    = "Missing token"
	MsgConfigNotLoaded = "Realtime config not loaded"
	MsgInvalidPayload  = "Invalid token payload"
	MsgUnauthorized    = "Unauthorized"
)

// Gate verifies a handshake token and returns the claims to pin to the
// session, or a rejection message. It runs once per connection attempt,
// before any membership is established.
func Gate(ctx context.Context, rawToken string, snap *trust.Snapshot) (*token.ConnectionClaims, string) {
	if rawToken == "" {
		return nil, MsgMissingToken
	}
	claims, err := token.VerifyConnection(ctx, rawToken, snap)
	switch {
	case err == nil:
		return claims, ""
	case errors.Is(err, token.ErrConfigNotReady):
		return nil, MsgConfigNotLoaded
	case errors.Is(err, token.ErrInvalidPayload):
		return nil, MsgInvalidPayload
	default:
		return nil, MsgUnauthorized
	}
}

// UserRoom is the room every authenticated session joins.
func UserRoom(userID string) string {
	return fmt.Sprintf("u:%s", userID)
}

// PaymentRoom is the narrower room joined when the token carries a
// payment scope.
func PaymentRoom(userID, paymentID string) string {
	return fmt.Sprintf("u:%s:p:%s", userID, paymentID)
}

// Rooms derives the fixed membership set for a session from its claims.
func Rooms(claims *token.ConnectionClaims) []string {
	rooms := []string{UserRoom(claims.UserID)}
	if claims.PaymentID != "" {
		rooms = append(rooms, PaymentRoom(claims.UserID, claims.PaymentID))
	}
	return rooms
}
