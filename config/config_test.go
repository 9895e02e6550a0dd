package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadAgentDefaults(t *testing.T) {
	t.Setenv("PRISM_API_URL", "https://prism.example/")
	t.Setenv("PRISM_TOKEN", "tok")
	cfg, err := LoadAgent()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIURL != "https://prism.example" || cfg.EventsURL != cfg.APIURL {
		t.Fatalf("unexpected urls: %#v", cfg)
	}
	if cfg.ReconnectBase != time.Second || cfg.ReconnectMax != 30*time.Second || cfg.Debug {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestLoadAgentOverrides(t *testing.T) {
	t.Setenv("PRISM_EVENTS_URL", "wss://events.example")
	t.Setenv("RECONNECT_BASE", "250ms")
	t.Setenv("RECONNECT_MAX", "5s")
	t.Setenv("DEBUG", "true")
	cfg, err := LoadAgent()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EventsURL != "wss://events.example" || cfg.ReconnectBase != 250*time.Millisecond || cfg.ReconnectMax != 5*time.Second || !cfg.Debug {
		t.Fatalf("unexpected config: %#v", cfg)
	}
}

func TestLoadAgentRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"RECONNECT_BASE":  "soon",
		"PING_INTERVAL":   "-1s",
		"REQUEST_TIMEOUT": "0s",
		"DEBUG":           "maybe",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := LoadAgent(); err == nil || !strings.Contains(err.Error(), key) {
				t.Fatalf("expected error naming %s, got %v", key, err)
			}
		})
	}
}

func TestLoadAgentMaxBelowBase(t *testing.T) {
	t.Setenv("RECONNECT_BASE", "10s")
	t.Setenv("RECONNECT_MAX", "1s")
	if _, err := LoadAgent(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadRelay(t *testing.T) {
	t.Setenv("LOCAL_AUTH_SHARED_SECRET", "")
	t.Setenv("AUTH0_DOMAIN", "")
	t.Setenv("AUTH0_AUDIENCE", "")
	if _, err := LoadRelay(); err == nil {
		t.Fatalf("expected missing auth error")
	}

	t.Setenv("LOCAL_AUTH_SHARED_SECRET", "secret")
	t.Setenv("RELAY_DEDUPE_TTL", "1m")
	t.Setenv("RELAY_SEND_BUFFER", "8")
	cfg, err := LoadRelay()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.Channel != "prism-events" || cfg.DedupeTTL != time.Minute || cfg.SendBuffer != 8 {
		t.Fatalf("unexpected config: %#v", cfg)
	}

	t.Setenv("RELAY_SEND_BUFFER", "0")
	if _, err := LoadRelay(); err == nil {
		t.Fatalf("expected error for zero buffer")
	}
}
