package board

import (
	"sort"

	"prism-sync/domain"
)

// ReorderBoards returns the board list in the order the caller chose. It is
// the optimistic half of a reorder; MergeBoards reconciles it later.
func ReorderBoards(ordered []domain.Board) []domain.Board {
	return append([]domain.Board(nil), ordered...)
}

// MergeBoards folds authoritative records into current by id and orders the
// result by position. Boards the server did not mention are kept.
func MergeBoards(current, authoritative []domain.Board) []domain.Board {
	byID := make(map[string]domain.Board, len(authoritative))
	for _, b := range authoritative {
		byID[b.ID] = b
	}
	out := make([]domain.Board, 0, len(current)+len(authoritative))
	seen := make(map[string]struct{}, len(current))
	for _, b := range current {
		if auth, ok := byID[b.ID]; ok {
			b = auth
		}
		seen[b.ID] = struct{}{}
		out = append(out, b)
	}
	for _, b := range authoritative {
		if _, ok := seen[b.ID]; !ok {
			out = append(out, b)
		}
	}
	sortBoards(out)
	return out
}

// UpsertBoard replaces or adds b, keeping the list ordered by position.
func UpsertBoard(list []domain.Board, b domain.Board) []domain.Board {
	return MergeBoards(list, []domain.Board{b})
}

// RemoveBoard drops the board with the given id.
func RemoveBoard(list []domain.Board, id string) []domain.Board {
	out := make([]domain.Board, 0, len(list))
	for _, b := range list {
		if b.ID != id {
			out = append(out, b)
		}
	}
	return out
}

func sortBoards(list []domain.Board) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Position < list[j].Position })
}
