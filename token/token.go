// Package token verifies signed credentials against the current trust
// snapshot. Two claim profiles exist: connection tokens presented by
// browsers at handshake time, and broadcast tokens presented by backend
// services pushing events. No verification result is ever cached, so a
// key rotation takes effect on the next call.
package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/sofolpay/realtime/trust"
)

// Audiences for the two claim profiles.
const (
	AudienceConnection = "sofolpay-realtime"
	AudienceBroadcast  = "sofolpay-realtime-broadcast"
)

var (
	// ErrConfigNotReady means trust material has not loaded yet. Surfaced
	// to callers as unauthorized but logged distinctly.
	ErrConfigNotReady = errors.New("realtime config not loaded")
	// ErrUnauthorized covers every signature/issuer/audience/expiry failure.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidPayload means the token verified but lacks required claims.
	ErrInvalidPayload = errors.New("invalid token payload")
)

// ConnectionClaims is the verified identity attached to a session for its
// whole lifetime.
type ConnectionClaims struct {
	UserID    string
	PaymentID string // empty when the token carries no payment scope
}

// BroadcastClaims binds a push credential to an endpoint and payload.
// Both fields are optional in the token; when present they are enforced
// by the broadcast guard.
type BroadcastClaims struct {
	Path       string
	BodySHA256 string
}

// VerifyConnection validates a handshake token against the snapshot and
// extracts the connection profile claims.
func VerifyConnection(ctx context.Context, raw string, snap *trust.Snapshot) (*ConnectionClaims, error) {
	tok, err := parse(ctx, raw, AudienceConnection, snap)
	if err != nil {
		return nil, err
	}
	userID := stringClaim(tok, "user_id")
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidPayload)
	}
	return &ConnectionClaims{
		UserID:    userID,
		PaymentID: stringClaim(tok, "payment_id"),
	}, nil
}

// VerifyBroadcast validates a push token against the snapshot and extracts
// the broadcast profile claims.
func VerifyBroadcast(ctx context.Context, raw string, snap *trust.Snapshot) (*BroadcastClaims, error) {
	tok, err := parse(ctx, raw, AudienceBroadcast, snap)
	if err != nil {
		return nil, err
	}
	return &BroadcastClaims{
		Path:       stringClaim(tok, "path"),
		BodySHA256: stringClaim(tok, "body_sha256"),
	}, nil
}

// parse runs signature and registered-claim validation. The algorithm is
// pinned to RS256; the issuer check is skipped when the snapshot has no
// issuer, never failed.
func parse(ctx context.Context, raw string, audience string, snap *trust.Snapshot) (jwt.Token, error) {
	if !snap.Loaded() {
		return nil, ErrConfigNotReady
	}
	opts := []jwt.ParseOption{
		jwt.WithContext(ctx),
		jwt.WithKey(jwa.RS256, snap.Key),
		jwt.WithValidate(true),
		jwt.WithAudience(audience),
	}
	if snap.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(snap.Issuer))
	}
	tok, err := jwt.ParseString(raw, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return tok, nil
}

// stringClaim reads a private claim as a string, accepting the numeric
// forms JSON producers commonly emit for ids.
func stringClaim(tok jwt.Token, name string) string {
	raw, ok := tok.Get(name)
	if !ok {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}
