package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Agent holds the settings of the headless sync agent.
type Agent struct {
	APIURL         string
	EventsURL      string
	Token          string
	BoardID        string
	ReconnectBase  time.Duration
	ReconnectMax   time.Duration
	PingInterval   time.Duration
	ReadTimeout    time.Duration
	RequestTimeout time.Duration
	Debug          bool
}

// Relay holds the settings of the websocket relay.
type Relay struct {
	Addr          string
	RedisURL      string
	Channel       string
	PublishToken  string
	DedupeTTL     time.Duration
	SharedSecret  string
	Auth0Domain   string
	Auth0Audience string
	SendBuffer    int
	Debug         bool
}

// LoadAgent reads the agent settings from the environment.
func LoadAgent() (Agent, error) {
	cfg := Agent{
		APIURL:  strings.TrimRight(getenv("PRISM_API_URL", "http://localhost:8080"), "/"),
		Token:   os.Getenv("PRISM_TOKEN"),
		BoardID: os.Getenv("PRISM_BOARD_ID"),
	}
	cfg.EventsURL = getenv("PRISM_EVENTS_URL", cfg.APIURL)

	var err error
	if cfg.ReconnectBase, err = getenvDur("RECONNECT_BASE", time.Second); err != nil {
		return Agent{}, err
	}
	if cfg.ReconnectMax, err = getenvDur("RECONNECT_MAX", 30*time.Second); err != nil {
		return Agent{}, err
	}
	if cfg.PingInterval, err = getenvDur("PING_INTERVAL", 20*time.Second); err != nil {
		return Agent{}, err
	}
	if cfg.ReadTimeout, err = getenvDur("READ_TIMEOUT", 60*time.Second); err != nil {
		return Agent{}, err
	}
	if cfg.RequestTimeout, err = getenvDur("REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return Agent{}, err
	}
	if cfg.Debug, err = getenvBool("DEBUG", false); err != nil {
		return Agent{}, err
	}
	if cfg.ReconnectMax < cfg.ReconnectBase {
		return Agent{}, fmt.Errorf("invalid RECONNECT_MAX: %s is below RECONNECT_BASE %s", cfg.ReconnectMax, cfg.ReconnectBase)
	}
	return cfg, nil
}

// LoadRelay reads the relay settings from the environment. One of
// LOCAL_AUTH_SHARED_SECRET or the Auth0 pair must be set.
func LoadRelay() (Relay, error) {
	cfg := Relay{
		Addr:          getenv("RELAY_ADDR", ":9000"),
		RedisURL:      getenv("REDIS_URL", "redis://localhost:6379/0"),
		Channel:       getenv("RELAY_CHANNEL", "prism-events"),
		PublishToken:  os.Getenv("RELAY_PUBLISH_TOKEN"),
		SharedSecret:  os.Getenv("LOCAL_AUTH_SHARED_SECRET"),
		Auth0Domain:   os.Getenv("AUTH0_DOMAIN"),
		Auth0Audience: os.Getenv("AUTH0_AUDIENCE"),
	}
	var err error
	if cfg.DedupeTTL, err = getenvDur("RELAY_DEDUPE_TTL", 10*time.Minute); err != nil {
		return Relay{}, err
	}
	if cfg.SendBuffer, err = getenvInt("RELAY_SEND_BUFFER", 64); err != nil {
		return Relay{}, err
	}
	if cfg.Debug, err = getenvBool("DEBUG", false); err != nil {
		return Relay{}, err
	}
	if cfg.SharedSecret == "" && (cfg.Auth0Domain == "" || cfg.Auth0Audience == "") {
		return Relay{}, fmt.Errorf("missing auth config: set LOCAL_AUTH_SHARED_SECRET or AUTH0_DOMAIN and AUTH0_AUDIENCE")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be greater than zero", key)
	}
	return n, nil
}

func getenvDur(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be greater than zero", key)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
