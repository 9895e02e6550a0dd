package drag

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"prism-sync/board"
	"prism-sync/domain"
)

var (
	ErrSessionActive = errors.New("drag: a gesture is already in progress")
	ErrNoSession     = errors.New("drag: no gesture in progress")
	ErrCardNotFound  = errors.New("drag: card not found")
	ErrBoardNotFound = errors.New("drag: board not found")
)

// Mover persists a card placement and returns the authoritative record.
type Mover interface {
	MoveCard(ctx context.Context, cardID string, to domain.Placement) (domain.Card, error)
}

// Resyncer reloads the active board from the server.
type Resyncer interface {
	Resync(ctx context.Context) error
}

// Session is the state of one gesture. Origin is the rollback anchor; it is
// copied into the commit so later gestures cannot disturb it.
type Session struct {
	ID         string
	CardID     string
	Origin     domain.Placement
	LastTarget *Target
	Preview    *domain.Placement
}

type Engine struct {
	store    *board.Store
	mover    Mover
	resync   Resyncer
	logger   log.FieldLogger
	timeout  time.Duration
	detector Detector

	mu      sync.Mutex
	session *Session
	commits sync.WaitGroup
}

// NewEngine wires the engine to the store it previews on and the command
// surface it commits through. timeout bounds each persist call.
func NewEngine(store *board.Store, mover Mover, resync Resyncer, timeout time.Duration, logger log.FieldLogger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{store: store, mover: mover, resync: resync, timeout: timeout, logger: logger}
}

// Start begins a gesture on cardID and captures its current placement.
func (e *Engine) Start(cardID string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		return Session{}, ErrSessionActive
	}
	card, ok := e.store.Card(cardID)
	if !ok {
		return Session{}, ErrCardNotFound
	}
	e.detector.Reset()
	e.session = &Session{ID: uuid.NewString(), CardID: cardID, Origin: card.Placement()}
	e.logger.WithFields(log.Fields{
		"gesture": e.session.ID,
		"card_id": cardID,
		"stage":   string(card.Stage),
	}).Debug("drag.start")
	return *e.session, nil
}

// Active returns the live session, if any.
func (e *Engine) Active() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// Over resolves the target under pointer and previews the resulting
// placement in the store. Nothing is sent to the server.
func (e *Engine) Over(pointer Point, targets []Target) (domain.Placement, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if s == nil {
		return domain.Placement{}, false
	}
	target, ok := e.detector.Detect(ModeCard, s.CardID, pointer, targets)
	if !ok {
		return domain.Placement{}, false
	}
	return e.preview(s, target)
}

// OverTarget previews a drop on an already resolved target.
func (e *Engine) OverTarget(target Target) (domain.Placement, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return domain.Placement{}, false
	}
	return e.preview(e.session, target)
}

// preview must be called with mu held.
func (e *Engine) preview(s *Session, target Target) (domain.Placement, bool) {
	card, ok := e.store.Card(s.CardID)
	if !ok {
		e.vanished(s)
		return domain.Placement{}, false
	}
	if !target.Stage.Valid() {
		return domain.Placement{}, false
	}
	next := Placement(e.baseline(s, target.Stage), s.CardID, target)
	t := target
	s.LastTarget = &t
	s.Preview = &next
	if card.Placement() != next {
		e.store.OptimisticMove(s.CardID, card.Stage, next.Stage, next.Position)
	}
	return next, true
}

// baseline is the stage as it would look had the gesture not started: the
// live column without the dragged card, plus the card at its origin when
// the origin is this stage.
func (e *Engine) baseline(s *Session, stage domain.Stage) []domain.Card {
	live := e.store.Column(stage)
	out := make([]domain.Card, 0, len(live)+1)
	var active *domain.Card
	for _, c := range live {
		if c.ID == s.CardID {
			c := c
			active = &c
			continue
		}
		out = append(out, c)
	}
	if s.Origin.Stage != stage {
		return out
	}
	if active == nil {
		card, ok := e.store.Card(s.CardID)
		if !ok {
			return out
		}
		active = &card
	}
	anchor := *active
	anchor.Stage = s.Origin.Stage
	anchor.Position = s.Origin.Position
	out = append(out, anchor)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// vanished logs a gesture whose card was deleted underneath it. The session
// stays open so the caller's End still succeeds.
func (e *Engine) vanished(s *Session) {
	e.logger.WithFields(log.Fields{"gesture": s.ID, "card_id": s.CardID}).Debug("drag.card.vanished")
}

// Cancel ends the gesture and undoes its preview. A card the server moved
// while the gesture was open keeps the server's placement.
func (e *Engine) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if s == nil {
		return ErrNoSession
	}
	e.session = nil
	e.restore(s)
	return nil
}

// restore puts the card back at its origin only while it still sits where
// the last preview left it. Any other placement came from the server.
// restore must be called with mu held.
func (e *Engine) restore(s *Session) {
	if s.Preview == nil || *s.Preview == s.Origin {
		return
	}
	card, ok := e.store.Card(s.CardID)
	if !ok || card.Placement() != *s.Preview {
		return
	}
	e.store.RevertMove(s.CardID, s.Origin, card.Stage)
}

// End finishes the gesture. A gesture that never reached a target is a drop
// outside and restores the origin. When the final placement differs from
// the origin it is persisted in the background; the returned Commit reports
// the outcome. A rejected commit reverts the card to its origin and reloads
// the board.
func (e *Engine) End() (*Commit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if s == nil {
		return nil, ErrNoSession
	}
	e.session = nil

	card, ok := e.store.Card(s.CardID)
	if !ok {
		e.vanished(s)
		return resolved(s, s.Origin), nil
	}
	if s.Preview == nil {
		e.restore(s)
		return resolved(s, s.Origin), nil
	}
	final := *s.Preview
	if final == s.Origin {
		e.restore(s)
		return resolved(s, final), nil
	}
	if card.Placement() != final {
		e.store.OptimisticMove(s.CardID, card.Stage, final.Stage, final.Position)
	}

	c := &Commit{GestureID: s.ID, CardID: s.CardID, From: s.Origin, To: final, Pending: true, done: make(chan struct{})}
	e.commits.Add(1)
	go e.persist(c)
	return c, nil
}

func (e *Engine) persist(c *Commit) {
	defer e.commits.Done()
	defer close(c.done)

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	fields := log.Fields{"gesture": c.GestureID, "card_id": c.CardID, "to_stage": string(c.To.Stage), "position": c.To.Position}
	if _, err := e.mover.MoveCard(ctx, c.CardID, c.To); err != nil {
		c.err = err
		e.store.RevertMove(c.CardID, c.From, c.To.Stage)
		e.logger.WithFields(fields).WithError(err).Warn("drag.commit.rejected")
		if e.resync != nil {
			// ctx may already be spent by the rejected call
			rctx, rcancel := context.WithTimeout(context.Background(), e.timeout)
			defer rcancel()
			if rerr := e.resync.Resync(rctx); rerr != nil {
				e.logger.WithFields(fields).WithError(rerr).Error("drag.resync.failed")
			}
		}
		return
	}
	e.logger.WithFields(fields).Debug("drag.commit.accepted")
}

// Wait blocks until every commit issued so far has finished.
func (e *Engine) Wait() {
	e.commits.Wait()
}

// Commit is the outcome of one finished gesture.
type Commit struct {
	GestureID string
	CardID    string
	From      domain.Placement
	To        domain.Placement
	// Pending reports whether a persist call was issued.
	Pending bool

	done chan struct{}
	err  error
}

func resolved(s *Session, to domain.Placement) *Commit {
	c := &Commit{GestureID: s.ID, CardID: s.CardID, From: s.Origin, To: to, done: make(chan struct{})}
	close(c.done)
	return c
}

// Done is closed once the commit has settled.
func (c *Commit) Done() <-chan struct{} { return c.done }

// Wait blocks until the commit settles or ctx ends and returns the persist
// error, if any.
func (c *Commit) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
