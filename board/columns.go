package board

import (
	"sort"

	"prism-sync/domain"
)

// Columns maps each stage to its cards sorted ascending by position. Slices
// are never modified in place: every operation returns a new Columns value
// sharing untouched slices with its input.
type Columns map[domain.Stage][]domain.Card

// NewColumns groups cards by stage. Cards with an unknown stage are skipped.
func NewColumns(cards []domain.Card) Columns {
	cols := Columns{}
	for _, c := range cards {
		if !c.Stage.Valid() {
			continue
		}
		cols[c.Stage] = append(cols[c.Stage], c)
	}
	for stage, list := range cols {
		sortByPosition(list)
		cols[stage] = list
	}
	return cols
}

// Find returns the card with the given id and its index within its stage.
func (c Columns) Find(cardID string) (domain.Card, int, bool) {
	for _, stage := range domain.Stages {
		if i := indexOf(c[stage], cardID); i >= 0 {
			return c[stage][i], i, true
		}
	}
	return domain.Card{}, -1, false
}

// Column returns a copy of the cards in stage.
func (c Columns) Column(stage domain.Stage) []domain.Card {
	return append([]domain.Card(nil), c[stage]...)
}

// Len returns the number of cards across all stages.
func (c Columns) Len() int {
	n := 0
	for _, list := range c {
		n += len(list)
	}
	return n
}

func (c Columns) clone() Columns {
	out := make(Columns, len(c)+1)
	for stage, list := range c {
		out[stage] = list
	}
	return out
}

// OptimisticMove removes the card from fromStage, sets its stage and
// position and inserts it into toStage. The input is returned unchanged when
// the card is not in fromStage.
func OptimisticMove(cols Columns, cardID string, fromStage, toStage domain.Stage, newPosition float64) Columns {
	if !toStage.Valid() {
		return cols
	}
	idx := indexOf(cols[fromStage], cardID)
	if idx < 0 {
		return cols
	}
	card := cols[fromStage][idx]
	card.Stage = toStage
	card.Position = newPosition

	out := cols.clone()
	out[fromStage] = without(cols[fromStage], idx)
	out[toStage] = insertSorted(out[toStage], card)
	return out
}

// RevertMove moves the card out of currentStage back to the origin placement
// captured when the gesture started. A card that is no longer in currentStage
// was moved by someone else and is left alone.
func RevertMove(cols Columns, cardID string, origin domain.Placement, currentStage domain.Stage) Columns {
	return OptimisticMove(cols, cardID, currentStage, origin.Stage, origin.Position)
}

// ApplyAuthoritative upserts card by id into its own stage, dropping any copy
// held under another stage. Applying the same card twice yields the same state.
func ApplyAuthoritative(cols Columns, card domain.Card) Columns {
	if card.ID == "" || !card.Stage.Valid() {
		return cols
	}
	out := cols.clone()
	for _, stage := range domain.Stages {
		if stage == card.Stage {
			continue
		}
		if i := indexOf(out[stage], card.ID); i >= 0 {
			out[stage] = without(out[stage], i)
		}
	}
	list := out[card.Stage]
	if i := indexOf(list, card.ID); i >= 0 {
		next := append([]domain.Card(nil), list...)
		next[i] = card
		sortByPosition(next)
		out[card.Stage] = next
		return out
	}
	out[card.Stage] = insertSorted(list, card)
	return out
}

// Remove deletes the card from whichever stage holds it.
func Remove(cols Columns, cardID string) Columns {
	for _, stage := range domain.Stages {
		if i := indexOf(cols[stage], cardID); i >= 0 {
			out := cols.clone()
			out[stage] = without(cols[stage], i)
			return out
		}
	}
	return cols
}

// update replaces the card in place, keeping its stage and position.
func update(cols Columns, cardID string, fn func(domain.Card) domain.Card) (Columns, bool) {
	card, idx, ok := cols.Find(cardID)
	if !ok {
		return cols, false
	}
	next := fn(card)
	next.ID, next.Stage, next.Position = card.ID, card.Stage, card.Position
	out := cols.clone()
	list := append([]domain.Card(nil), cols[card.Stage]...)
	list[idx] = next
	out[card.Stage] = list
	return out, true
}

func indexOf(list []domain.Card, cardID string) int {
	for i := range list {
		if list[i].ID == cardID {
			return i
		}
	}
	return -1
}

func without(list []domain.Card, idx int) []domain.Card {
	out := make([]domain.Card, 0, len(list)-1)
	out = append(out, list[:idx]...)
	return append(out, list[idx+1:]...)
}

// insertSorted appends card to a copy of list and re-sorts. The sort is
// stable, so a card landing on an occupied position goes after the cards
// already there.
func insertSorted(list []domain.Card, card domain.Card) []domain.Card {
	out := make([]domain.Card, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, card)
	sortByPosition(out)
	return out
}

func sortByPosition(list []domain.Card) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Position < list[j].Position })
}
