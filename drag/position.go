package drag

import (
	"math"

	"prism-sync/domain"
)

// Gap is the spacing left between positions appended at the end of a column.
const Gap = 1000.0

// EndPosition places a card after last, or at Gap in an empty column.
func EndPosition(last *float64) float64 {
	if last == nil {
		return Gap
	}
	return *last + Gap
}

// StartPosition places a card before first. The result stays >= 1.
func StartPosition(first float64) float64 {
	return math.Max(1, math.Floor(first/2))
}

// BetweenPosition places a card between two neighbours. Equal results for
// tightly packed neighbours are tolerated; ties keep insertion order.
func BetweenPosition(before, after float64) float64 {
	return math.Floor((before + after) / 2)
}

// Placement computes where activeID lands when dropped on target. column is
// the target stage as it stood when the gesture started, sorted by position,
// with the active card at its origin if it came from that stage. Computing
// against the same baseline on every frame keeps previews and the commit in
// agreement.
func Placement(column []domain.Card, activeID string, target Target) domain.Placement {
	stage := target.Stage
	others := make([]domain.Card, 0, len(column))
	activeIdx := -1
	for i, c := range column {
		if c.ID == activeID {
			activeIdx = i
			continue
		}
		others = append(others, c)
	}

	end := func() domain.Placement {
		if len(others) == 0 {
			return domain.Placement{Stage: stage, Position: EndPosition(nil)}
		}
		last := others[len(others)-1].Position
		return domain.Placement{Stage: stage, Position: EndPosition(&last)}
	}

	if target.Kind == TargetColumn {
		if activeIdx >= 0 && activeIdx == len(column)-1 {
			// already last in this column
			return domain.Placement{Stage: stage, Position: column[activeIdx].Position}
		}
		return end()
	}
	if target.ID == activeID && activeIdx >= 0 {
		return domain.Placement{Stage: stage, Position: column[activeIdx].Position}
	}

	overIdx := -1
	for i, c := range column {
		if c.ID == target.ID {
			overIdx = i
			break
		}
	}
	if overIdx < 0 {
		return end()
	}
	over := column[overIdx]

	// Moving down within the same column: the card ahead of the target is the
	// active card itself, so look one further and land after the target.
	if activeIdx >= 0 && activeIdx < overIdx {
		next := nextOther(column, overIdx, activeID)
		if next == nil {
			pos := over.Position
			return domain.Placement{Stage: stage, Position: EndPosition(&pos)}
		}
		return domain.Placement{Stage: stage, Position: BetweenPosition(over.Position, next.Position)}
	}

	prev := prevOther(column, overIdx, activeID)
	if prev == nil {
		return domain.Placement{Stage: stage, Position: StartPosition(over.Position)}
	}
	return domain.Placement{Stage: stage, Position: BetweenPosition(prev.Position, over.Position)}
}

func nextOther(column []domain.Card, idx int, activeID string) *domain.Card {
	for i := idx + 1; i < len(column); i++ {
		if column[i].ID != activeID {
			return &column[i]
		}
	}
	return nil
}

func prevOther(column []domain.Card, idx int, activeID string) *domain.Card {
	for i := idx - 1; i >= 0; i-- {
		if column[i].ID != activeID {
			return &column[i]
		}
	}
	return nil
}
