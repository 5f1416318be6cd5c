package config

import "testing"

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SOFOLPAY_GATEWAY_URL", "")
	cfg := FromEnv()
	if cfg.Port != "3001" {
		t.Errorf("Port = %q, want 3001", cfg.Port)
	}
	if cfg.GatewayURL != "" {
		t.Errorf("GatewayURL = %q, want empty", cfg.GatewayURL)
	}
}

func TestFromEnvTrimsGatewayURL(t *testing.T) {
	t.Setenv("SOFOLPAY_GATEWAY_URL", " https://gw.example.com/// ")
	cfg := FromEnv()
	if cfg.GatewayURL != "https://gw.example.com" {
		t.Errorf("GatewayURL = %q", cfg.GatewayURL)
	}
}

func TestFromEnvPassesThrough(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("SOFOLPAY_ALLOWED_ORIGIN", "locked.example.com")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg := FromEnv()
	if cfg.Port != "8080" || cfg.OriginLock != "locked.example.com" || cfg.RedisURL == "" {
		t.Errorf("cfg = %+v", cfg)
	}
}
