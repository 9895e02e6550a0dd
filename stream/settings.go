package stream

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Status is the connectivity indicator exposed to the application.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

type Settings struct {
	ReconnectBase    time.Duration
	ReconnectMax     time.Duration
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	// OnStatus, when set, is called after every connectivity change. It runs
	// on the manager's goroutine and must not block.
	OnStatus func(Status)
}

func DefaultSettings() *Settings {
	return &Settings{
		ReconnectBase:    1 * time.Second,
		ReconnectMax:     30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     20 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// ReconnectDelay returns min(base*2^attempts, ceiling) for the number of failures
// seen since the last successful open.
func ReconnectDelay(attempts int, base, ceiling time.Duration) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	delay := base
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	return min(delay, ceiling)
}

var ErrUnsupportedScheme = errors.New("stream: unsupported url scheme")

// EventsURL builds the websocket endpoint for base, mapping http to ws and
// https to wss.
func EventsURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse events url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/events"
	u.RawQuery = url.Values{"token": []string{token}}.Encode()
	return u.String(), nil
}
