// Package trust holds the relay's verification material: signing key,
// issuer, and origin policy fetched from the payment gateway. The material
// is published as an immutable snapshot so readers never observe a
// half-updated key/issuer pair while a refresh is in flight.
package trust

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Snapshot is one immutable view of the trust configuration. Fields are
// zero-valued until the first successful refresh.
type Snapshot struct {
	Issuer         string
	KeyID          string
	PublicKeyPEM   string
	Key            jwk.Key
	AllowedOrigins []string
	LastRefreshAt  time.Time
}

// Loaded reports whether verification material is available.
func (s *Snapshot) Loaded() bool {
	return s != nil && s.Key != nil
}

// Store owns the current Snapshot and the refresh schedule. Refreshes are
// serialized; a tick that arrives while one is running waits its turn and
// then merges against the result.
type Store struct {
	gatewayURL string
	client     httpDoer
	log        *logrus.Entry

	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
	cron *cron.Cron
}

// NewStore creates a Store for the given gateway base URL. An empty URL is
// allowed; Refresh then becomes a warning no-op and the config stays unset.
func NewStore(gatewayURL string) *Store {
	s := &Store{
		gatewayURL: trimTrailingSlashes(gatewayURL),
		client:     defaultClient,
		log:        logrus.WithField("component", "trust"),
	}
	s.snap.Store(&Snapshot{})
	return s
}

// Snapshot returns the current configuration view. Never nil.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// StartRefreshing schedules a background refresh every minute. The caller
// is expected to have run one awaited Refresh first so the server does not
// accept connections against an empty config.
func (s *Store) StartRefreshing() {
	if s.cron != nil {
		return
	}
	s.cron = cron.New()
	s.cron.AddFunc("@every 1m", func() {
		s.Refresh(context.Background())
	})
	s.cron.Start()
}

// Stop halts the refresh schedule. In-flight fetches are abandoned.
func (s *Store) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}

func trimTrailingSlashes(u string) string {
	for len(u) > 0 && u[len(u)-1] == '/' {
		u = u[:len(u)-1]
	}
	return u
}
