package drag

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"prism-sync/board"
	"prism-sync/domain"
)

// BoardCommands is the slice of the command surface board reordering needs.
type BoardCommands interface {
	ReorderBoard(ctx context.Context, boardID string, position float64) (domain.Board, error)
	ListBoards(ctx context.Context) ([]domain.Board, error)
}

// BoardReorderer moves boards within the board list with the same
// optimistic protocol as cards: reorder locally, persist, then merge the
// authoritative record or roll back and reload.
type BoardReorderer struct {
	store    *board.Store
	commands BoardCommands
	logger   log.FieldLogger
}

func NewBoardReorderer(store *board.Store, commands BoardCommands, logger log.FieldLogger) *BoardReorderer {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &BoardReorderer{store: store, commands: commands, logger: logger}
}

// Move places boardID at index toIndex of the board list.
func (r *BoardReorderer) Move(ctx context.Context, boardID string, toIndex int) error {
	before := r.store.Boards()
	from := -1
	for i, b := range before {
		if b.ID == boardID {
			from = i
			break
		}
	}
	if from < 0 {
		return fmt.Errorf("reorder board %s: %w", boardID, ErrBoardNotFound)
	}
	toIndex = max(0, min(toIndex, len(before)-1))
	if toIndex == from {
		return nil
	}

	others := make([]domain.Board, 0, len(before)-1)
	others = append(others, before[:from]...)
	others = append(others, before[from+1:]...)
	moved := before[from]
	moved.Position = boardPosition(others, toIndex)

	ordered := make([]domain.Board, 0, len(before))
	ordered = append(ordered, others[:toIndex]...)
	ordered = append(ordered, moved)
	ordered = append(ordered, others[toIndex:]...)
	r.store.ReorderBoards(ordered)

	auth, err := r.commands.ReorderBoard(ctx, boardID, moved.Position)
	if err != nil {
		r.logger.WithFields(log.Fields{"board_id": boardID, "position": moved.Position}).WithError(err).Warn("drag.board.rejected")
		r.store.ReorderBoards(before)
		if boards, lerr := r.commands.ListBoards(ctx); lerr == nil {
			r.store.SetBoards(boards)
		} else {
			r.logger.WithError(lerr).Error("drag.board.reload_failed")
		}
		return fmt.Errorf("reorder board %s: %w", boardID, err)
	}
	r.store.MergeBoards([]domain.Board{auth})
	return nil
}

// boardPosition returns the ordinal for a board inserted at idx of others.
func boardPosition(others []domain.Board, idx int) float64 {
	switch {
	case len(others) == 0:
		return EndPosition(nil)
	case idx >= len(others):
		last := others[len(others)-1].Position
		return EndPosition(&last)
	case idx == 0:
		return StartPosition(others[0].Position)
	default:
		return BetweenPosition(others[idx-1].Position, others[idx].Position)
	}
}
