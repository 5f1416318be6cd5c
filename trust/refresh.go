package trust

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/sofolpay/realtime/hostmatch"
)

// configPath is the well-known gateway endpoint serving trust material.
const configPath = "/api/internal/realtime-config"

const fetchTimeout = 10 * time.Second

// ErrUpstreamUnavailable indicates the gateway could not be reached or
// returned a non-success status. It never invalidates existing material.
var ErrUpstreamUnavailable = errors.New("trust: upstream unavailable")

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var defaultClient httpDoer = &http.Client{Timeout: fetchTimeout}

type configEnvelope struct {
	Data configPayload `json:"data"`
}

// configPayload mirrors the gateway response. AllowedOrigins is kept raw
// because the gateway may send either a comma-separated string or an array.
type configPayload struct {
	Issuer         string          `json:"issuer"`
	KID            string          `json:"kid"`
	PublicKeyPEM   string          `json:"public_key_pem"`
	AllowedOrigins json.RawMessage `json:"allowed_origins"`
}

// Refresh fetches the trust configuration from the gateway and publishes a
// new snapshot. Any failure leaves the previous snapshot untouched: stale
// but valid material always beats none. Failures are logged and returned;
// callers on the timer path ignore the error.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gatewayURL == "" {
		s.log.Warn("gateway URL not set; cannot fetch config")
		return nil
	}

	payload, err := s.fetch(ctx)
	if err != nil {
		s.log.WithError(err).Warn("config refresh failed")
		return err
	}

	prev := s.snap.Load()
	next := &Snapshot{
		Issuer:         prev.Issuer,
		KeyID:          prev.KeyID,
		PublicKeyPEM:   prev.PublicKeyPEM,
		Key:            prev.Key,
		AllowedOrigins: prev.AllowedOrigins,
		LastRefreshAt:  time.Now(),
	}

	if payload.Issuer != "" {
		next.Issuer = payload.Issuer
	} else if next.Issuer == "" {
		next.Issuer = s.gatewayURL
	}
	if payload.KID != "" {
		next.KeyID = payload.KID
	}
	if payload.PublicKeyPEM != "" && payload.PublicKeyPEM != prev.PublicKeyPEM {
		key, err := jwk.ParseKey([]byte(payload.PublicKeyPEM), jwk.WithPEM(true))
		if err != nil {
			s.log.WithError(err).Warn("config refresh returned unparsable public key; keeping previous")
			return fmt.Errorf("trust: parse public key: %w", err)
		}
		next.PublicKeyPEM = payload.PublicKeyPEM
		next.Key = key
	}
	if origins, ok := parseOrigins(payload.AllowedOrigins); ok {
		next.AllowedOrigins = origins
	}

	s.snap.Store(next)
	s.log.WithFields(map[string]any{
		"issuer":  next.Issuer,
		"kid":     next.KeyID,
		"origins": len(next.AllowedOrigins),
	}).Info("config refreshed")
	return nil
}

func (s *Store) fetch(ctx context.Context) (*configPayload, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.gatewayURL+configPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: gateway responded %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	var env configEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstreamUnavailable, err)
	}
	return &env.Data, nil
}

// parseOrigins returns the normalized rule list and whether the field was
// present in the response at all. An explicit empty list replaces the
// previous rules; an absent field keeps them.
func parseOrigins(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	list := hostmatch.ParseAllowedList(v)
	if list == nil {
		list = []string{}
	}
	return list, true
}
