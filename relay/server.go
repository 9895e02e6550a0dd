package relay

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const maxPublishBytes = 1 << 20

var greeting = []byte(`{"type":"connected"}`)

// Options tunes a Server. Zero values pick the defaults.
type Options struct {
	Channel          string
	PublishToken     string
	SendBuffer       int
	PingInterval     time.Duration
	WriteTimeout     time.Duration
	ResubscribeDelay time.Duration
}

// Server fans events published on a Redis channel out to websocket clients.
type Server struct {
	redis        *redis.Client
	auth         Authenticator
	dedupe       Deduper
	hub          *Hub
	logger       log.FieldLogger
	upgrader     websocket.Upgrader
	channel      string
	publishToken string

	pingInterval     time.Duration
	writeTimeout     time.Duration
	resubscribeDelay time.Duration

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates a relay. dedupe may be nil to forward every envelope.
func New(rc *redis.Client, auth Authenticator, dedupe Deduper, opts Options, logger log.FieldLogger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if opts.Channel == "" {
		opts.Channel = "prism-events"
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 20 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.ResubscribeDelay <= 0 {
		opts.ResubscribeDelay = time.Second
	}
	return &Server{
		redis:            rc,
		auth:             auth,
		dedupe:           dedupe,
		hub:              NewHub(opts.SendBuffer, logger),
		logger:           logger,
		upgrader:         websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		channel:          opts.Channel,
		publishToken:     opts.PublishToken,
		pingInterval:     opts.PingInterval,
		writeTimeout:     opts.WriteTimeout,
		resubscribeDelay: opts.ResubscribeDelay,
		ready:            make(chan struct{}),
	}
}

// Hub exposes the connected clients.
func (s *Server) Hub() *Hub { return s.hub }

// Register wires the relay endpoints on the given Echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/ws/events", s.handleEvents)
	e.POST("/api/events", s.handlePublish)
	e.GET("/healthz", s.handleHealth)
}

func (s *Server) handleEvents(c echo.Context) error {
	userID, err := s.auth.UserIDFromAuthHeader(requestAuthHeader(c))
	if err != nil {
		s.logger.WithError(err).Debug("relay.ws.unauthorized")
		return c.String(http.StatusUnauthorized, err.Error())
	}
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		s.logger.WithError(err).Warn("relay.ws.upgrade_failed")
		return nil
	}
	cl := s.hub.add(userID, greeting)
	logger := s.logger.WithField("user_id", userID)
	logger.Info("relay.ws.connected")

	done := make(chan struct{})
	go s.writeLoop(conn, cl, done)
	s.readLoop(conn)

	s.hub.remove(cl)
	<-done
	conn.Close()
	logger.Info("relay.ws.disconnected")
	return nil
}

// readLoop discards client frames and returns when the peer goes away.
func (s *Server) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(4 << 10)
	wait := 3 * s.pingInterval
	conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(wait))
	}
}

func (s *Server) writeLoop(conn *websocket.Conn, cl *client, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-cl.send:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(s.writeTimeout))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.WithError(err).WithField("user_id", cl.userID).Debug("relay.ws.write_failed")
				conn.Close()
				s.drain(cl)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout)); err != nil {
				conn.Close()
				s.drain(cl)
				return
			}
		}
	}
}

// drain consumes the queue after a write failure until remove closes it.
func (s *Server) drain(cl *client) {
	for range cl.send {
	}
}

func (s *Server) handlePublish(c echo.Context) error {
	if !publishTokenMatches(c.Request().Header, s.publishToken) {
		return c.NoContent(http.StatusUnauthorized)
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPublishBytes))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	var env Envelope
	if err := sonic.Unmarshal(body, &env); err != nil || len(env.Event) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid envelope")
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := sonic.Unmarshal(env.Event, &head); err != nil || head.Type == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "event type required")
	}
	if env.ID == "" {
		env.ID = c.Request().Header.Get("Idempotency-Key")
	}
	data, err := sonic.Marshal(env)
	if err != nil {
		return err
	}
	if err := s.publish(c.Request().Context(), data); err != nil {
		s.logger.WithError(err).Error("relay.publish.failed")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "publish failed")
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) publish(ctx context.Context, data []byte) error {
	return s.redis.Publish(ctx, s.channel, data).Err()
}

func (s *Server) handleHealth(c echo.Context) error {
	status := http.StatusOK
	redisStatus := "ok"
	if err := s.redis.Ping(c.Request().Context()).Err(); err != nil {
		status = http.StatusServiceUnavailable
		redisStatus = err.Error()
	}
	return c.JSON(status, map[string]any{"redis": redisStatus, "clients": s.hub.Count()})
}
