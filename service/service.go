package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"prism-sync/board"
	"prism-sync/domain"
	"prism-sync/drag"
)

var (
	ErrNoActiveBoard = errors.New("service: no active board")
	ErrCardNotFound  = errors.New("service: card not found")
)

// Commands is the REST surface the service drives.
type Commands interface {
	CreateCard(ctx context.Context, draft domain.CardDraft) (domain.Card, error)
	UpdateCard(ctx context.Context, id string, patch domain.CardPatch) (domain.Card, error)
	MoveCard(ctx context.Context, id string, to domain.Placement) (domain.Card, error)
	DeleteCard(ctx context.Context, id string) error
	ListCards(ctx context.Context, boardID string) ([]domain.Card, error)
	ListBoards(ctx context.Context) ([]domain.Board, error)
	CreateBoard(ctx context.Context, name string) (domain.Board, error)
	UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (domain.Board, error)
	ReorderBoard(ctx context.Context, id string, position float64) (domain.Board, error)
	DeleteBoard(ctx context.Context, id string) error
}

// Service applies every user command optimistically to the store, persists
// it and undoes the local change when the server rejects it.
type Service struct {
	store    *board.Store
	commands Commands
	timeout  time.Duration
	logger   log.FieldLogger

	Drag   *drag.Engine
	Boards *drag.BoardReorderer
}

// New builds the service together with the drag engine and board reorderer
// that share its store and command client.
func New(store *board.Store, commands Commands, timeout time.Duration, logger log.FieldLogger) *Service {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Service{store: store, commands: commands, timeout: timeout, logger: logger}
	s.Drag = drag.NewEngine(store, commands, s, timeout, logger)
	s.Boards = drag.NewBoardReorderer(store, commands, logger)
	return s
}

// Resync reloads the board list and the cards of the active board.
func (s *Service) Resync(ctx context.Context) error {
	boards, err := s.commands.ListBoards(ctx)
	if err != nil {
		return fmt.Errorf("resync boards: %w", err)
	}
	s.store.SetBoards(boards)
	boardID := s.store.ActiveBoard()
	if boardID == "" {
		return nil
	}
	return s.loadCards(ctx, boardID)
}

// SelectBoard makes boardID the active board and loads its cards.
func (s *Service) SelectBoard(ctx context.Context, boardID string) error {
	s.store.SetActiveBoard(boardID)
	if boardID == "" {
		return nil
	}
	return s.loadCards(ctx, boardID)
}

// fetchAttempts bounds how often loadCards refetches when events keep
// landing while a fetch is in flight.
const fetchAttempts = 3

// loadCards installs the server's cards for boardID unless the store changed
// while they were fetched. Events applied during the fetch are newer than
// the result, so the fetch is retried instead of overwriting them.
func (s *Service) loadCards(ctx context.Context, boardID string) error {
	fields := log.Fields{"board_id": boardID}
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		version := s.store.Version()
		cards, err := s.commands.ListCards(ctx, boardID)
		if err != nil {
			return fmt.Errorf("load cards for board %s: %w", boardID, err)
		}
		if s.store.ReplaceCardsAt(boardID, cards, version) {
			return nil
		}
		if s.store.ActiveBoard() != boardID {
			s.logger.WithFields(fields).Debug("service.cards.stale")
			return nil
		}
		s.logger.WithFields(fields).WithField("attempt", attempt).Debug("service.cards.superseded")
	}
	s.logger.WithFields(fields).Warn("service.cards.fetch_abandoned")
	return nil
}

// CreateCard shows the card immediately under a temporary id and swaps it
// for the server record once created. Without a position the card goes to
// the end of its stage.
func (s *Service) CreateCard(ctx context.Context, draft domain.CardDraft) (domain.Card, error) {
	if draft.BoardID == "" {
		draft.BoardID = s.store.ActiveBoard()
	}
	if draft.BoardID == "" {
		return domain.Card{}, ErrNoActiveBoard
	}
	if !draft.Stage.Valid() {
		draft.Stage = domain.StageBacklog
	}
	if draft.Position <= 0 {
		draft.Position = endOf(s.store.Column(draft.Stage))
	}

	temp := domain.Card{
		ID:          "tmp-" + uuid.NewString(),
		BoardID:     draft.BoardID,
		Title:       draft.Title,
		Description: draft.Description,
		Stage:       draft.Stage,
		Position:    draft.Position,
		Priority:    draft.Priority,
		AIStatus:    domain.AIStatusIdle,
	}
	optimistic := draft.BoardID == s.store.ActiveBoard()
	if optimistic {
		s.store.ApplyAuthoritative(temp)
	}

	created, err := s.commands.CreateCard(ctx, draft)
	if optimistic {
		s.store.Remove(temp.ID)
	}
	if err != nil {
		s.logger.WithFields(log.Fields{"board_id": draft.BoardID, "stage": string(draft.Stage)}).WithError(err).Warn("service.card.create_failed")
		return domain.Card{}, fmt.Errorf("create card: %w", err)
	}
	if created.BoardID == "" || created.BoardID == s.store.ActiveBoard() {
		s.store.ApplyAuthoritative(created)
	}
	return created, nil
}

// UpdateCard applies patch locally and restores the previous record when
// the server rejects it.
func (s *Service) UpdateCard(ctx context.Context, id string, patch domain.CardPatch) (domain.Card, error) {
	before, ok := s.store.Card(id)
	if !ok {
		return domain.Card{}, fmt.Errorf("update card %s: %w", id, ErrCardNotFound)
	}
	s.store.ApplyAuthoritative(patch.Apply(before))

	updated, err := s.commands.UpdateCard(ctx, id, patch)
	if err != nil {
		s.store.ApplyAuthoritative(before)
		s.logger.WithField("card_id", id).WithError(err).Warn("service.card.update_failed")
		return domain.Card{}, fmt.Errorf("update card %s: %w", id, err)
	}
	s.store.ApplyAuthoritative(updated)
	return updated, nil
}

// MoveCard moves a card without a gesture, for keyboard or menu moves. It
// follows the same anchor protocol as a drag: revert and resync on failure.
func (s *Service) MoveCard(ctx context.Context, id string, to domain.Placement) error {
	before, ok := s.store.Card(id)
	if !ok {
		return fmt.Errorf("move card %s: %w", id, ErrCardNotFound)
	}
	if before.Placement() == to {
		return nil
	}
	s.store.OptimisticMove(id, before.Stage, to.Stage, to.Position)
	if _, err := s.commands.MoveCard(ctx, id, to); err != nil {
		s.store.RevertMove(id, before.Placement(), to.Stage)
		s.logger.WithField("card_id", id).WithError(err).Warn("service.card.move_failed")
		// the caller's ctx may be what failed the move
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		if rerr := s.Resync(rctx); rerr != nil {
			s.logger.WithError(rerr).Error("service.resync.failed")
		}
		return fmt.Errorf("move card %s: %w", id, err)
	}
	return nil
}

// DeleteCard removes the card at once and puts it back if the delete fails.
func (s *Service) DeleteCard(ctx context.Context, id string) error {
	removed, ok := s.store.Remove(id)
	if err := s.commands.DeleteCard(ctx, id); err != nil {
		if ok {
			s.store.ApplyAuthoritative(removed)
		}
		s.logger.WithField("card_id", id).WithError(err).Warn("service.card.delete_failed")
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	return nil
}

// CreateBoard appends a board locally and replaces it with the server record.
func (s *Service) CreateBoard(ctx context.Context, name string) (domain.Board, error) {
	boards := s.store.Boards()
	temp := domain.Board{ID: "tmp-" + uuid.NewString(), Name: name, Position: endOfBoards(boards)}
	s.store.UpsertBoard(temp)

	created, err := s.commands.CreateBoard(ctx, name)
	s.store.RemoveBoard(temp.ID)
	if err != nil {
		s.logger.WithError(err).Warn("service.board.create_failed")
		return domain.Board{}, fmt.Errorf("create board: %w", err)
	}
	s.store.UpsertBoard(created)
	return created, nil
}

// UpdateBoard patches a board locally and restores it on failure.
func (s *Service) UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (domain.Board, error) {
	var before *domain.Board
	for _, b := range s.store.Boards() {
		if b.ID == id {
			b := b
			before = &b
			break
		}
	}
	if before != nil {
		s.store.UpsertBoard(patch.Apply(*before))
	}
	updated, err := s.commands.UpdateBoard(ctx, id, patch)
	if err != nil {
		if before != nil {
			s.store.UpsertBoard(*before)
		}
		s.logger.WithField("board_id", id).WithError(err).Warn("service.board.update_failed")
		return domain.Board{}, fmt.Errorf("update board %s: %w", id, err)
	}
	s.store.UpsertBoard(updated)
	return updated, nil
}

// DeleteBoard removes a board and reloads the list if the server refuses.
func (s *Service) DeleteBoard(ctx context.Context, id string) error {
	active := s.store.ActiveBoard() == id
	boards := s.store.Boards()
	s.store.RemoveBoard(id)
	if err := s.commands.DeleteBoard(ctx, id); err != nil {
		s.store.SetBoards(boards)
		s.logger.WithField("board_id", id).WithError(err).Warn("service.board.delete_failed")
		if active {
			if serr := s.SelectBoard(ctx, id); serr != nil {
				s.logger.WithError(serr).Error("service.board.reload_failed")
			}
		}
		return fmt.Errorf("delete board %s: %w", id, err)
	}
	return nil
}

// ReorderBoard moves a board to index toIndex of the board list.
func (s *Service) ReorderBoard(ctx context.Context, id string, toIndex int) error {
	return s.Boards.Move(ctx, id, toIndex)
}

func endOf(column []domain.Card) float64 {
	if len(column) == 0 {
		return drag.EndPosition(nil)
	}
	last := column[len(column)-1].Position
	return drag.EndPosition(&last)
}

func endOfBoards(boards []domain.Board) float64 {
	if len(boards) == 0 {
		return drag.EndPosition(nil)
	}
	last := boards[len(boards)-1].Position
	return drag.EndPosition(&last)
}
