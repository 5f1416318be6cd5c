// Package origin decides whether a declared Origin is acceptable, using
// the operator override list when configured and the gateway-supplied
// rules otherwise.
package origin

import (
	"github.com/sofolpay/realtime/hostmatch"
	"github.com/sofolpay/realtime/trust"
)

// SnapshotSource yields the current trust snapshot. *trust.Store satisfies it.
type SnapshotSource interface {
	Snapshot() *trust.Snapshot
}

// Guard evaluates origin allow-rules. When the operator override list is
// non-empty it takes total precedence over the dynamically fetched rules.
type Guard struct {
	override []string
	trust    SnapshotSource
}

// NewGuard builds a Guard. overrideList is the raw operator value (comma
// separated); empty means no override.
func NewGuard(overrideList string, src SnapshotSource) *Guard {
	var override []string
	if overrideList != "" {
		override = hostmatch.ParseAllowedList(overrideList)
	}
	return &Guard{override: override, trust: src}
}

// OverrideActive reports whether the operator override list is in effect.
func (g *Guard) OverrideActive() bool {
	return len(g.override) > 0
}

// EffectiveRules returns the rule set currently used for decisions.
func (g *Guard) EffectiveRules() []string {
	if g.OverrideActive() {
		return g.override
	}
	return g.trust.Snapshot().AllowedOrigins
}

// IsOriginAllowed reports whether the given Origin header value is
// acceptable. An absent origin is allowed: same-origin and non-browser
// callers send none, and the trust boundary for those is the token check.
// With rules present, no match means reject.
func (g *Guard) IsOriginAllowed(originHeader string) bool {
	if originHeader == "" {
		return true
	}
	host := hostmatch.HostnameFromOrigin(originHeader)
	return hostmatch.MatchAny(host, g.EffectiveRules())
}
