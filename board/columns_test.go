package board

import (
	"reflect"
	"testing"

	"prism-sync/domain"
)

func card(id string, stage domain.Stage, pos float64) domain.Card {
	return domain.Card{ID: id, BoardID: "b1", Title: id, Stage: stage, Position: pos}
}

func ids(list []domain.Card) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}

func assertSorted(t *testing.T, cols Columns) {
	t.Helper()
	seen := map[string]domain.Stage{}
	for stage, list := range cols {
		for i, c := range list {
			if c.Stage != stage {
				t.Fatalf("card %s has stage %s but sits in %s", c.ID, c.Stage, stage)
			}
			if i > 0 && list[i-1].Position > c.Position {
				t.Fatalf("stage %s not sorted: %v", stage, ids(list))
			}
			if prev, ok := seen[c.ID]; ok {
				t.Fatalf("card %s in both %s and %s", c.ID, prev, stage)
			}
			seen[c.ID] = stage
		}
	}
}

func TestNewColumnsGroupsAndSorts(t *testing.T) {
	cols := NewColumns([]domain.Card{
		card("c", domain.StageTodo, 3000),
		card("a", domain.StageTodo, 1000),
		card("b", domain.StageBacklog, 500),
		card("x", domain.Stage("nowhere"), 1),
	})
	assertSorted(t, cols)
	if got := ids(cols[domain.StageTodo]); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("unexpected todo column: %v", got)
	}
	if cols.Len() != 3 {
		t.Fatalf("unexpected card count %d", cols.Len())
	}
}

func TestOptimisticMoveDoesNotMutateInput(t *testing.T) {
	cols := NewColumns([]domain.Card{card("a", domain.StageBacklog, 1000), card("b", domain.StageBacklog, 2000)})
	next := OptimisticMove(cols, "a", domain.StageBacklog, domain.StageDone, 1000)
	if got := ids(cols[domain.StageBacklog]); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("input changed: %v", got)
	}
	if got := ids(next[domain.StageBacklog]); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("unexpected backlog: %v", got)
	}
	moved := next[domain.StageDone][0]
	if moved.ID != "a" || moved.Stage != domain.StageDone || moved.Position != 1000 {
		t.Fatalf("unexpected moved card: %#v", moved)
	}
	assertSorted(t, next)
}

func TestOptimisticMoveMissingCardIsNoop(t *testing.T) {
	cols := NewColumns([]domain.Card{card("a", domain.StageBacklog, 1000)})
	next := OptimisticMove(cols, "a", domain.StageTodo, domain.StageDone, 1000)
	if !reflect.DeepEqual(next, cols) {
		t.Fatalf("expected unchanged columns, got %#v", next)
	}
}

func TestRevertRestoresOrigin(t *testing.T) {
	cols := NewColumns([]domain.Card{
		card("a", domain.StageBacklog, 1000),
		card("b", domain.StageBacklog, 2000),
		card("c", domain.StageReview, 1000),
	})
	origin := domain.Placement{Stage: domain.StageBacklog, Position: 1000}
	moved := OptimisticMove(cols, "a", domain.StageBacklog, domain.StageReview, 500)
	reverted := RevertMove(moved, "a", origin, domain.StageReview)
	if !reflect.DeepEqual(reverted, cols) {
		t.Fatalf("revert did not restore state:\nwant %#v\ngot  %#v", cols, reverted)
	}
}

func TestRevertIgnoresCardMovedElsewhere(t *testing.T) {
	cols := NewColumns([]domain.Card{card("a", domain.StageDone, 1000)})
	next := RevertMove(cols, "a", domain.Placement{Stage: domain.StageBacklog, Position: 1000}, domain.StageReview)
	if !reflect.DeepEqual(next, cols) {
		t.Fatalf("expected no-op, got %#v", next)
	}
}

func TestApplyAuthoritativeIsIdempotent(t *testing.T) {
	cols := NewColumns([]domain.Card{card("a", domain.StageBacklog, 1000), card("b", domain.StageTodo, 1000)})
	server := card("a", domain.StageTodo, 2000)
	once := ApplyAuthoritative(cols, server)
	twice := ApplyAuthoritative(once, server)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second apply changed state:\n%#v\n%#v", once, twice)
	}
	if len(once[domain.StageBacklog]) != 0 {
		t.Fatalf("card left in old stage: %v", ids(once[domain.StageBacklog]))
	}
	if got := ids(once[domain.StageTodo]); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("unexpected todo column: %v", got)
	}
	assertSorted(t, once)
}

func TestApplyAuthoritativeReplacesInPlace(t *testing.T) {
	cols := NewColumns([]domain.Card{card("a", domain.StageTodo, 1000), card("b", domain.StageTodo, 2000)})
	updated := card("a", domain.StageTodo, 3000)
	updated.Title = "renamed"
	next := ApplyAuthoritative(cols, updated)
	if got := ids(next[domain.StageTodo]); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("unexpected order: %v", got)
	}
	if next[domain.StageTodo][1].Title != "renamed" {
		t.Fatalf("unexpected card: %#v", next[domain.StageTodo][1])
	}
	if cols[domain.StageTodo][0].Title != "a" {
		t.Fatalf("input changed: %#v", cols[domain.StageTodo][0])
	}
}

func TestTiesKeepInsertionOrder(t *testing.T) {
	cols := NewColumns([]domain.Card{card("a", domain.StageTodo, 1000)})
	cols = ApplyAuthoritative(cols, card("b", domain.StageTodo, 1000))
	cols = ApplyAuthoritative(cols, card("c", domain.StageTodo, 1000))
	if got := ids(cols[domain.StageTodo]); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected tie order: %v", got)
	}
}

func TestRemove(t *testing.T) {
	cols := NewColumns([]domain.Card{card("a", domain.StageTodo, 1000), card("b", domain.StageTodo, 2000)})
	next := Remove(cols, "a")
	if got := ids(next[domain.StageTodo]); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("unexpected todo column: %v", got)
	}
	if same := Remove(next, "missing"); !reflect.DeepEqual(same, next) {
		t.Fatalf("removing a missing card changed state")
	}
}

func TestMergeBoards(t *testing.T) {
	current := []domain.Board{{ID: "b1", Name: "one", Position: 2}, {ID: "b2", Name: "two", Position: 1}}
	merged := MergeBoards(current, []domain.Board{
		{ID: "b1", Name: "one", Position: 1},
		{ID: "b2", Name: "two", Position: 2},
		{ID: "b3", Name: "three", Position: 3},
	})
	var got []string
	for _, b := range merged {
		got = append(got, b.ID)
	}
	if !reflect.DeepEqual(got, []string{"b1", "b2", "b3"}) {
		t.Fatalf("unexpected merge order: %v", got)
	}
	if len(RemoveBoard(merged, "b2")) != 2 {
		t.Fatalf("expected board removed")
	}
}

func TestReorderBoardsCopies(t *testing.T) {
	in := []domain.Board{{ID: "b2"}, {ID: "b1"}}
	out := ReorderBoards(in)
	in[0].ID = "changed"
	if out[0].ID != "b2" {
		t.Fatalf("reorder shares memory with input: %#v", out)
	}
}
