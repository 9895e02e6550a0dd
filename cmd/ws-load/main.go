// Command ws-load holds many event stream connections open against a relay
// and reports how many events arrived and how often connections dropped.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"prism-sync/domain"
	"prism-sync/stream"
)

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

type counters struct {
	events      atomic.Uint64
	connects    atomic.Uint64
	disconnects atomic.Uint64
}

func main() {
	relayURL := getenv("RELAY_URL", "http://localhost:9000")
	conns := getenvInt("WS_CONNECTIONS", 200)
	duration := time.Duration(getenvInt("DURATION_SEC", 120)) * time.Second

	tokens, err := loadTokens(os.Getenv("TOKENS_FILE"), os.Getenv("TEST_BEARER"))
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	logger := log.New()
	logger.SetLevel(log.ErrorLevel)

	var c counters
	handler := stream.HandlerFunc(func(ev domain.Event) {
		if ev.Kind() != domain.KindConnected {
			c.events.Add(1)
		}
	})

	managers := make([]*stream.Manager, conns)
	for i := range managers {
		settings := stream.DefaultSettings()
		settings.ReconnectMax = 5 * time.Second
		settings.OnStatus = func(st stream.Status) {
			switch st {
			case stream.StatusConnected:
				c.connects.Add(1)
			case stream.StatusReconnecting:
				c.disconnects.Add(1)
			}
		}
		tok := tokens[i%len(tokens)]
		managers[i] = stream.NewManager(relayURL, stream.StaticToken(tok), handler, settings, logger)
		managers[i].Connect()
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()
	go func() {
		select {
		case <-time.After(60 * time.Second):
			if c.events.Load() == 0 {
				fmt.Println("no events received in 60s")
				os.Exit(1)
			}
		case <-ctx.Done():
		}
	}()
	<-ctx.Done()
	for _, m := range managers {
		m.Close()
	}

	events := c.events.Load()
	connects := c.connects.Load()
	drops := c.disconnects.Load()
	failureRate := 0.0
	if attempts := connects + drops; attempts > 0 {
		failureRate = float64(drops) / float64(attempts)
	}
	fmt.Printf("connections=%d duration_sec=%d events_received=%d connects=%d drops=%d\n", conns, int(duration.Seconds()), events, connects, drops)
	if events == 0 || failureRate > 0.01 {
		os.Exit(1)
	}
}

// loadTokens reads a JSON array written by gen-token, or falls back to a
// single bearer shared by every connection.
func loadTokens(path, bearer string) ([]string, error) {
	if path == "" {
		if bearer == "" {
			return nil, fmt.Errorf("set TOKENS_FILE or TEST_BEARER")
		}
		return []string{bearer}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tokens []string
	if err := sonic.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%s holds no tokens", path)
	}
	return tokens, nil
}
