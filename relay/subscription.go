package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

// Envelope is the message published on the events channel.
type Envelope struct {
	UserID string          `json:"userId,omitempty"`
	ID     string          `json:"id,omitempty"`
	Event  json.RawMessage `json:"event"`
}

// Subscribe forwards envelopes from the events channel to the hub until ctx
// is cancelled, resubscribing whenever the pubsub channel closes.
func (s *Server) Subscribe(ctx context.Context) {
	for {
		sub := s.redis.Subscribe(ctx, s.channel)
		if _, err := sub.Receive(ctx); err != nil {
			sub.Close()
			if ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Warn("relay.pubsub.subscribe_failed")
			if !sleep(ctx, s.resubscribeDelay) {
				return
			}
			continue
		}
		s.readyOnce.Do(func() { close(s.ready) })
		s.logger.WithField("channel", s.channel).Info("relay.pubsub.subscribed")

		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				s.deliver(ctx, msg.Payload)
			}
		}
		sub.Close()
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("relay.pubsub.closed: reconnecting")
		if !sleep(ctx, s.resubscribeDelay) {
			return
		}
	}
}

// Ready is closed once the first subscription is confirmed.
func (s *Server) Ready() <-chan struct{} { return s.ready }

func (s *Server) deliver(ctx context.Context, payload string) {
	var env Envelope
	if err := sonic.UnmarshalString(payload, &env); err != nil || len(env.Event) == 0 {
		s.logger.WithField("payload_bytes", len(payload)).Warn("relay.envelope.malformed")
		return
	}
	if env.ID != "" && s.dedupe != nil {
		fresh, err := s.dedupe.Add(ctx, env.UserID, env.ID)
		if err != nil {
			s.logger.WithError(err).WithField("envelope_id", env.ID).Warn("relay.dedupe.failed")
		} else if !fresh {
			s.logger.WithField("envelope_id", env.ID).Debug("relay.envelope.duplicate")
			return
		}
	}
	n := s.hub.Broadcast(env.UserID, env.Event)
	s.logger.WithFields(log.Fields{"user_id": env.UserID, "envelope_id": env.ID, "clients": n}).Debug("relay.envelope.delivered")
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
