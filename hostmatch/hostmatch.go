// Package hostmatch implements hostname normalization and allow-rule
// matching for the origin policy. Rules are either a literal host, the
// wildcard "*", or a subdomain wildcard "*.example.com" (which never
// matches the apex domain itself).
package hostmatch

import (
	"net/url"
	"regexp"
	"strings"
)

var trailingPort = regexp.MustCompile(`:\d+$`)

// Normalize canonicalizes a raw host string: lowercase, trimmed, with a
// leading "www." label and a trailing ":port" stripped. It is total;
// invalid input yields the empty string rather than an error.
func Normalize(raw string) string {
	h := strings.ToLower(strings.TrimSpace(raw))
	h = strings.TrimPrefix(h, "www.")
	return trailingPort.ReplaceAllString(h, "")
}

// HostnameFromOrigin extracts the normalized hostname from an Origin
// header value. If the value does not parse as a URL, the raw string is
// normalized as a fallback.
func HostnameFromOrigin(origin string) string {
	if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
		return Normalize(u.Hostname())
	}
	return Normalize(origin)
}

// Match reports whether host satisfies rule.
func Match(host, rule string) bool {
	if rule == "" {
		return false
	}
	if rule == "*" {
		return true
	}
	if strings.HasPrefix(rule, "*.") {
		base := rule[2:]
		if base == "" {
			return false
		}
		return host != base && strings.HasSuffix(host, "."+base)
	}
	return host == rule
}

// MatchAny reports whether host satisfies at least one rule. An empty
// rule set never matches.
func MatchAny(host string, rules []string) bool {
	for _, r := range rules {
		if Match(host, r) {
			return true
		}
	}
	return false
}

// ParseAllowedList normalizes a rule list that may arrive either as a
// slice or as a single comma-separated string. Empty entries are dropped.
func ParseAllowedList(val any) []string {
	switch v := val.(type) {
	case nil:
		return nil
	case []string:
		return normalizeAll(v)
	case string:
		return normalizeAll(strings.Split(v, ","))
	case []any:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				parts = append(parts, s)
			}
		}
		return normalizeAll(parts)
	}
	return nil
}

func normalizeAll(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if h := Normalize(p); h != "" {
			out = append(out, h)
		}
	}
	return out
}
