package board

import (
	"encoding/json"
	"sync"

	"prism-sync/domain"
)

// State is a point-in-time copy of the board projection.
type State struct {
	BoardID string
	Columns Columns
	Boards  []domain.Board
	Details map[string]domain.CardDetail
	Version uint64
}

// Store is the canonical client projection of boards and cards. Every
// operation runs under one lock, so mutations never interleave; callers only
// change state through the methods below.
type Store struct {
	mu    sync.RWMutex
	state State
	subs  map[chan struct{}]struct{}
}

// NewStore creates an empty store with no active board.
func NewStore() *Store {
	return &Store{
		state: State{Columns: Columns{}, Details: map[string]domain.CardDetail{}},
		subs:  make(map[chan struct{}]struct{}),
	}
}

// Subscribe returns a channel that receives a signal after every state change
// and a function that releases it. Signals coalesce when the reader lags.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
}

// commit must be called with mu held.
func (s *Store) commit() {
	s.state.Version++
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	out.Columns = make(Columns, len(s.state.Columns))
	for stage, list := range s.state.Columns {
		out.Columns[stage] = append([]domain.Card(nil), list...)
	}
	out.Boards = append([]domain.Board(nil), s.state.Boards...)
	out.Details = make(map[string]domain.CardDetail, len(s.state.Details))
	for id, d := range s.state.Details {
		out.Details[id] = d.Clone()
	}
	return out
}

// Version increases by one with every applied mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Version
}

// ActiveBoard returns the id of the board currently in view.
func (s *Store) ActiveBoard() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.BoardID
}

// SetActiveBoard switches the view. Cards and details of the previous board
// are dropped; the caller is expected to load the new board's cards.
func (s *Store) SetActiveBoard(boardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.BoardID == boardID {
		return
	}
	s.state.BoardID = boardID
	s.state.Columns = Columns{}
	s.state.Details = map[string]domain.CardDetail{}
	s.commit()
}

// ReplaceCards installs a full fetch result. Results for a board that is no
// longer active are discarded and false is returned.
func (s *Store) ReplaceCards(boardID string, cards []domain.Card) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if boardID != s.state.BoardID {
		return false
	}
	s.replaceCards(cards)
	return true
}

// ReplaceCardsAt is ReplaceCards for a fetch started when the store was at
// version. It returns false without touching the store when anything was
// applied in the meantime, so a fetch never overwrites newer events.
func (s *Store) ReplaceCardsAt(boardID string, cards []domain.Card, version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if boardID != s.state.BoardID || version != s.state.Version {
		return false
	}
	s.replaceCards(cards)
	return true
}

// replaceCards must be called with mu held.
func (s *Store) replaceCards(cards []domain.Card) {
	s.state.Columns = NewColumns(cards)
	keep := make(map[string]domain.CardDetail, len(s.state.Details))
	for id, d := range s.state.Details {
		if _, _, ok := s.state.Columns.Find(id); ok {
			keep[id] = d
		}
	}
	s.state.Details = keep
	s.commit()
}

// Card returns the card with the given id.
func (s *Store) Card(cardID string) (domain.Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, _, ok := s.state.Columns.Find(cardID)
	return c, ok
}

// HasCard reports whether the card is in the current view.
func (s *Store) HasCard(cardID string) bool {
	_, ok := s.Card(cardID)
	return ok
}

// Column returns the cards of stage sorted by position.
func (s *Store) Column(stage domain.Stage) []domain.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Columns.Column(stage)
}

// OptimisticMove applies a local guess. It reports whether the card was found
// in fromStage.
func (s *Store) OptimisticMove(cardID string, fromStage, toStage domain.Stage, newPosition float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.state.Columns[fromStage], cardID) < 0 || !toStage.Valid() {
		return false
	}
	s.state.Columns = OptimisticMove(s.state.Columns, cardID, fromStage, toStage, newPosition)
	s.commit()
	return true
}

// RevertMove puts a card back at origin after a rejected commit.
func (s *Store) RevertMove(cardID string, origin domain.Placement, currentStage domain.Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.state.Columns[currentStage], cardID) < 0 || !origin.Stage.Valid() {
		return false
	}
	s.state.Columns = RevertMove(s.state.Columns, cardID, origin, currentStage)
	s.commit()
	return true
}

// ApplyAuthoritative upserts a server record, overriding any optimistic guess.
func (s *Store) ApplyAuthoritative(card domain.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card.ID == "" || !card.Stage.Valid() {
		return
	}
	s.state.Columns = ApplyAuthoritative(s.state.Columns, card)
	s.commit()
}

// MoveCard moves a card to stage wherever it currently is. The position is
// kept when none is given. It reports whether the card was found.
func (s *Store) MoveCard(cardID string, toStage domain.Stage, position *float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, _, ok := s.state.Columns.Find(cardID)
	if !ok || !toStage.Valid() {
		return false
	}
	pos := card.Position
	if position != nil {
		pos = *position
	}
	s.state.Columns = OptimisticMove(s.state.Columns, cardID, card.Stage, toStage, pos)
	s.commit()
	return true
}

// Remove deletes a card and its details. The removed card is returned so an
// optimistic delete can be undone.
func (s *Store) Remove(cardID string) (domain.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, _, ok := s.state.Columns.Find(cardID)
	if !ok {
		return domain.Card{}, false
	}
	s.state.Columns = Remove(s.state.Columns, cardID)
	if _, ok := s.state.Details[cardID]; ok {
		details := s.copyDetails()
		delete(details, cardID)
		s.state.Details = details
	}
	s.commit()
	return card, true
}

// SetAIStatus records an automation status for a card in view.
func (s *Store) SetAIStatus(cardID string, status domain.AIStatus, progress json.RawMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cols, ok := update(s.state.Columns, cardID, func(c domain.Card) domain.Card {
		c.AIStatus = status
		if progress != nil {
			c.AIProgress = append(json.RawMessage(nil), progress...)
		}
		return c
	})
	if !ok {
		return false
	}
	s.state.Columns = cols
	s.commit()
	return true
}

// Boards returns the board list in display order.
func (s *Store) Boards() []domain.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Board(nil), s.state.Boards...)
}

// SetBoards replaces the board list with a fetch result.
func (s *Store) SetBoards(boards []domain.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]domain.Board(nil), boards...)
	sortBoards(list)
	s.state.Boards = list
	s.commit()
}

// ReorderBoards replaces the board order optimistically.
func (s *Store) ReorderBoards(boards []domain.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Boards = ReorderBoards(boards)
	s.commit()
}

// MergeBoards reconciles authoritative board records by id.
func (s *Store) MergeBoards(boards []domain.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Boards = MergeBoards(s.state.Boards, boards)
	s.commit()
}

// UpsertBoard adds or replaces a single board.
func (s *Store) UpsertBoard(b domain.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Boards = UpsertBoard(s.state.Boards, b)
	s.commit()
}

// RemoveBoard drops a board. Removing the active board also clears the view.
func (s *Store) RemoveBoard(boardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Boards = RemoveBoard(s.state.Boards, boardID)
	if s.state.BoardID == boardID {
		s.state.BoardID = ""
		s.state.Columns = Columns{}
		s.state.Details = map[string]domain.CardDetail{}
	}
	s.commit()
}

// copyDetails must be called with mu held.
func (s *Store) copyDetails() map[string]domain.CardDetail {
	out := make(map[string]domain.CardDetail, len(s.state.Details)+1)
	for id, d := range s.state.Details {
		out[id] = d
	}
	return out
}
