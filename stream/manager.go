package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"prism-sync/domain"
)

// TokenSource supplies the credential used to open the channel. An empty
// token means the user is not authenticated and no connection is made.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same credential.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// EventHandler receives decoded events in arrival order.
type EventHandler interface {
	HandleEvent(domain.Event)
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(domain.Event)

func (f HandlerFunc) HandleEvent(ev domain.Event) { f(ev) }

type session struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns the single push channel of a client. It dials, reads, pings
// and reconnects with exponential backoff until Disconnect is called. It
// never touches board state; decoded events go to the handler.
type Manager struct {
	baseURL  string
	tokens   TokenSource
	handler  EventHandler
	settings *Settings
	logger   log.FieldLogger
	dialer   *websocket.Dialer

	mu      sync.Mutex
	current *session
	status  Status
}

func NewManager(baseURL string, tokens TokenSource, handler EventHandler, settings *Settings, logger log.FieldLogger) *Manager {
	if settings == nil {
		settings = DefaultSettings()
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Manager{
		baseURL:  baseURL,
		tokens:   tokens,
		handler:  handler,
		settings: settings,
		logger:   logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: settings.HandshakeTimeout,
		},
		status: StatusDisconnected,
	}
}

// Status returns the current connectivity state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Connect starts the connection in the background and returns immediately.
// It does nothing when a session is already live or no token is available.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.current != nil {
		m.mu.Unlock()
		return
	}
	if m.tokens == nil || m.tokens.Token() == "" {
		m.mu.Unlock()
		m.logger.Debug("stream.connect.skipped: no token")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{cancel: cancel, done: make(chan struct{})}
	m.current = s
	m.mu.Unlock()

	go m.run(ctx, s)
}

// Disconnect closes the channel and stops any pending or future reconnect.
func (m *Manager) Disconnect() {
	s := m.detach()
	if s == nil {
		return
	}
	s.cancel()
	m.setStatus(nil, StatusDisconnected)
	m.logger.Info("stream.disconnected")
}

// Close disconnects and waits for the connection goroutine to exit.
func (m *Manager) Close() {
	s := m.detach()
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
	m.setStatus(nil, StatusDisconnected)
}

func (m *Manager) detach() *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.current
	m.current = nil
	return s
}

// setStatus records st. A non-nil s restricts the update to the live session
// so a goroutine that was already disconnected cannot report stale state.
func (m *Manager) setStatus(s *session, st Status) {
	m.mu.Lock()
	if s != nil && m.current != s {
		m.mu.Unlock()
		return
	}
	changed := m.status != st
	m.status = st
	m.mu.Unlock()
	if changed && m.settings.OnStatus != nil {
		m.settings.OnStatus(st)
	}
}

func (m *Manager) run(ctx context.Context, s *session) {
	defer close(s.done)
	defer func() {
		m.mu.Lock()
		if m.current == s {
			m.current = nil
		}
		m.mu.Unlock()
	}()

	attempts := 0
	for {
		token := m.tokens.Token()
		if token == "" {
			m.logger.Info("stream.token.missing: stopping")
			m.setStatus(s, StatusDisconnected)
			return
		}
		if attempts == 0 {
			m.setStatus(s, StatusConnecting)
		}

		err := m.connectOnce(ctx, s, token, func() { attempts = 0 })
		if ctx.Err() != nil {
			return
		}

		delay := ReconnectDelay(attempts, m.settings.ReconnectBase, m.settings.ReconnectMax)
		attempts++
		m.setStatus(s, StatusReconnecting)
		m.logger.WithFields(log.Fields{
			"attempt": attempts,
			"delay":   delay.String(),
			"error":   errString(err),
		}).Warn("stream.reconnect.scheduled")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connectOnce dials and serves one connection until it fails or ctx ends.
// opened runs once the handshake succeeded.
func (m *Manager) connectOnce(ctx context.Context, s *session, token string, opened func()) error {
	target, err := EventsURL(m.baseURL, token)
	if err != nil {
		return err
	}
	conn, resp, err := m.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial: %w", err)
	}
	opened()
	m.setStatus(s, StatusConnected)
	m.logger.Info("stream.connected")
	return m.serve(ctx, conn)
}

func (m *Manager) serve(ctx context.Context, conn *websocket.Conn) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer conn.Close()

	go func() {
		<-connCtx.Done()
		// unblocks ReadMessage
		conn.Close()
	}()

	extend := func() error {
		return conn.SetReadDeadline(time.Now().Add(m.settings.ReadTimeout))
	}
	if err := extend(); err != nil {
		return err
	}
	conn.SetPongHandler(func(string) error { return extend() })

	go func() {
		defer cancel()
		ticker := time.NewTicker(m.settings.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-connCtx.Done():
				return
			case <-ticker.C:
				deadline := time.Now().Add(m.settings.WriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					m.logger.WithError(err).Debug("stream.ping.failed")
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if connCtx.Err() != nil {
				return connCtx.Err()
			}
			return err
		}
		if err := extend(); err != nil {
			return err
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		ev, err := domain.Decode(data)
		if err != nil {
			m.logger.WithFields(log.Fields{
				"error": err.Error(),
				"bytes": len(data),
			}).Warn("stream.message.malformed")
			continue
		}
		m.handler.HandleEvent(ev)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return fmt.Sprintf("closed: %d %s", closeErr.Code, closeErr.Text)
	}
	return err.Error()
}
