// Package testkit provides an in-process token issuer and a fake gateway
// for testing the relay without a real SofolPay deployment.
//
// Example usage:
//
//	issuer := testkit.NewIssuer()
//	snap := issuer.Snapshot("*.example.com")
//	tok := issuer.ConnectionToken("42", "7")
package testkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"

	jwtkit "github.com/sofolpay/realtime/jwt"
	"github.com/sofolpay/realtime/token"
	"github.com/sofolpay/realtime/trust"
)

// Issuer signs RS256 tokens that validate against the snapshots and
// gateway responses it produces.
type Issuer struct {
	signer *jwtkit.RSASigner
	issuer string
	pem    string
}

// NewIssuer creates an issuer with a fresh RSA key pair.
func NewIssuer() *Issuer {
	return NewIssuerNamed("https://gateway.test")
}

// NewIssuerNamed creates an issuer with a specific iss claim value.
func NewIssuerNamed(iss string) *Issuer {
	signer, err := jwtkit.NewRSASigner(2048, "test-key-1")
	if err != nil {
		panic("testkit: failed to create RSA signer: " + err.Error())
	}
	pemStr, err := signer.PublicKeyPEM()
	if err != nil {
		panic("testkit: failed to encode public key: " + err.Error())
	}
	return &Issuer{signer: signer, issuer: iss, pem: pemStr}
}

// IssuerURL returns the iss claim value this issuer stamps into tokens.
func (i *Issuer) IssuerURL() string { return i.issuer }

// PublicKeyPEM returns the verification key in gateway wire form.
func (i *Issuer) PublicKeyPEM() string { return i.pem }

// Snapshot builds a loaded trust snapshot that validates this issuer's
// tokens, with the given origin allow-rules.
func (i *Issuer) Snapshot(origins ...string) *trust.Snapshot {
	key, err := jwk.ParseKey([]byte(i.pem), jwk.WithPEM(true))
	if err != nil {
		panic("testkit: failed to parse public key: " + err.Error())
	}
	return &trust.Snapshot{
		Issuer:         i.issuer,
		KeyID:          i.signer.KID(),
		PublicKeyPEM:   i.pem,
		Key:            key,
		AllowedOrigins: origins,
		LastRefreshAt:  time.Now(),
	}
}

// GatewayServer starts an httptest server speaking the gateway's
// realtime-config protocol for this issuer's key. Callers own Close.
func (i *Issuer) GatewayServer(origins []string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/internal/realtime-config" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		body := map[string]any{
			"data": map[string]any{
				"issuer":          i.issuer,
				"kid":             i.signer.KID(),
				"public_key_pem":  i.pem,
				"allowed_origins": origins,
			},
		}
		writeJSON(w, body)
	}))
}

// TokenWithClaims signs a token for the given audience, merging extra
// claims over the registered set.
func (i *Issuer) TokenWithClaims(audience string, extra map[string]any) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": i.issuer,
		"aud": audience,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	signed, err := i.signer.Sign(claims)
	if err != nil {
		panic("testkit: failed to sign token: " + err.Error())
	}
	return signed
}

// ConnectionToken signs a connection-profile token. paymentID may be empty.
func (i *Issuer) ConnectionToken(userID, paymentID string) string {
	extra := map[string]any{"user_id": userID}
	if paymentID != "" {
		extra["payment_id"] = paymentID
	}
	return i.TokenWithClaims(token.AudienceConnection, extra)
}

// BroadcastToken signs a broadcast-profile token. path and bodySHA256 are
// optional bindings; empty values are omitted from the claims.
func (i *Issuer) BroadcastToken(path, bodySHA256 string) string {
	extra := map[string]any{}
	if path != "" {
		extra["path"] = path
	}
	if bodySHA256 != "" {
		extra["body_sha256"] = bodySHA256
	}
	return i.TokenWithClaims(token.AudienceBroadcast, extra)
}

// ExpiredToken signs a connection token that expired an hour ago.
func (i *Issuer) ExpiredToken(userID string) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":     i.issuer,
		"aud":     token.AudienceConnection,
		"iat":     now.Add(-2 * time.Hour).Unix(),
		"exp":     now.Add(-time.Hour).Unix(),
		"user_id": userID,
	}
	signed, err := i.signer.Sign(claims)
	if err != nil {
		panic("testkit: failed to sign token: " + err.Error())
	}
	return signed
}

func writeJSON(w http.ResponseWriter, v map[string]any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic("testkit: write response: " + err.Error())
	}
}
