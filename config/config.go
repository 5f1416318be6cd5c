// Package config reads the relay's environment-level configuration.
package config

import (
	"os"
	"strings"
)

// Config is the full set of recognized environment options.
type Config struct {
	// Port the HTTP server listens on.
	Port string
	// GatewayURL is the trust-source base URL; empty disables refreshes.
	GatewayURL string
	// OriginLock is the hard origin allow-list. When set it takes total
	// precedence over the dynamically fetched rules.
	OriginLock string
	// RedisURL enables the redis-backed rate limiter when set.
	RedisURL string
	// LogLevel is a logrus level name; empty means info.
	LogLevel string
}

// FromEnv builds a Config from process environment variables.
func FromEnv() Config {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3001"
	}
	return Config{
		Port:       port,
		GatewayURL: strings.TrimRight(strings.TrimSpace(os.Getenv("SOFOLPAY_GATEWAY_URL")), "/"),
		OriginLock: strings.TrimSpace(os.Getenv("SOFOLPAY_ALLOWED_ORIGIN")),
		RedisURL:   strings.TrimSpace(os.Getenv("REDIS_URL")),
		LogLevel:   strings.TrimSpace(os.Getenv("LOG_LEVEL")),
	}
}
