package board

import (
	"encoding/json"
	"testing"

	"prism-sync/domain"
)

func newStore(t *testing.T, cards ...domain.Card) *Store {
	t.Helper()
	s := NewStore()
	s.SetActiveBoard("b1")
	if !s.ReplaceCards("b1", cards) {
		t.Fatalf("replace cards rejected")
	}
	return s
}

func TestStoreNotifiesSubscribers(t *testing.T) {
	s := newStore(t, card("a", domain.StageBacklog, 1000))
	ch, cancel := s.Subscribe()
	defer cancel()
	before := s.Version()
	if !s.MoveCard("a", domain.StageTodo, nil) {
		t.Fatalf("move failed")
	}
	select {
	case <-ch:
	default:
		t.Fatalf("expected change signal")
	}
	if s.Version() != before+1 {
		t.Fatalf("unexpected version %d", s.Version())
	}
	c, _ := s.Card("a")
	if c.Stage != domain.StageTodo || c.Position != 1000 {
		t.Fatalf("unexpected card: %#v", c)
	}
}

func TestStoreIgnoresStaleFetch(t *testing.T) {
	s := newStore(t, card("a", domain.StageBacklog, 1000))
	s.SetActiveBoard("b2")
	if s.ReplaceCards("b1", []domain.Card{card("z", domain.StageDone, 1)}) {
		t.Fatalf("expected stale fetch to be rejected")
	}
	if s.HasCard("z") || s.HasCard("a") {
		t.Fatalf("unexpected cards after board switch: %#v", s.Snapshot().Columns)
	}
}

func TestStoreReplaceAtVersion(t *testing.T) {
	s := newStore(t, card("a", domain.StageBacklog, 1000))
	v := s.Version()
	s.ApplyAuthoritative(card("a", domain.StageDone, 500))
	if s.ReplaceCardsAt("b1", []domain.Card{card("a", domain.StageBacklog, 1000)}, v) {
		t.Fatalf("fetch older than the last event was applied")
	}
	if c, _ := s.Card("a"); c.Stage != domain.StageDone {
		t.Fatalf("event overwritten: %#v", c)
	}
	if !s.ReplaceCardsAt("b1", []domain.Card{card("b", domain.StageTodo, 1)}, s.Version()) {
		t.Fatalf("current fetch rejected")
	}
	if s.HasCard("a") || !s.HasCard("b") {
		t.Fatalf("unexpected cards: %#v", s.Snapshot().Columns)
	}
	if s.ReplaceCardsAt("b2", nil, s.Version()) {
		t.Fatalf("fetch for another board applied")
	}
}

func TestStoreOptimisticMoveAndRevert(t *testing.T) {
	s := newStore(t, card("a", domain.StageBacklog, 1000), card("b", domain.StageBacklog, 2000))
	before := s.Snapshot().Columns
	if !s.OptimisticMove("a", domain.StageBacklog, domain.StageReview, 1000) {
		t.Fatalf("move failed")
	}
	if s.OptimisticMove("a", domain.StageBacklog, domain.StageTodo, 1000) {
		t.Fatalf("move from wrong stage should fail")
	}
	if !s.RevertMove("a", domain.Placement{Stage: domain.StageBacklog, Position: 1000}, domain.StageReview) {
		t.Fatalf("revert failed")
	}
	after := s.Snapshot().Columns
	if got, want := ids(after[domain.StageBacklog]), ids(before[domain.StageBacklog]); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected backlog after revert: %v", got)
	}
	if len(after[domain.StageReview]) != 0 {
		t.Fatalf("card left in review: %v", ids(after[domain.StageReview]))
	}
}

func TestStoreSetAIStatusKeepsPlacement(t *testing.T) {
	s := newStore(t, card("a", domain.StageTodo, 1000))
	progress := json.RawMessage(`{"step":2}`)
	if !s.SetAIStatus("a", domain.AIStatusWorking, progress) {
		t.Fatalf("set status failed")
	}
	if s.SetAIStatus("missing", domain.AIStatusWorking, nil) {
		t.Fatalf("status applied to unknown card")
	}
	c, _ := s.Card("a")
	if c.AIStatus != domain.AIStatusWorking || string(c.AIProgress) != `{"step":2}` || c.Stage != domain.StageTodo || c.Position != 1000 {
		t.Fatalf("unexpected card: %#v", c)
	}
}

func TestStoreRemoveDropsDetail(t *testing.T) {
	s := newStore(t, card("a", domain.StageTodo, 1000))
	if !s.UpsertSubtask("a", domain.Subtask{ID: "s1", Title: "write tests"}) {
		t.Fatalf("upsert subtask failed")
	}
	removed, ok := s.Remove("a")
	if !ok || removed.ID != "a" {
		t.Fatalf("unexpected remove result %#v %v", removed, ok)
	}
	if d := s.Detail("a"); len(d.Subtasks) != 0 {
		t.Fatalf("detail kept after remove: %#v", d)
	}
}

func TestStoreDetails(t *testing.T) {
	s := newStore(t, card("a", domain.StageTodo, 1000))
	s.UpsertSubtask("a", domain.Subtask{ID: "s2", Title: "second", Position: 2})
	s.UpsertSubtask("a", domain.Subtask{ID: "s1", Title: "first", Position: 1})
	if !s.ToggleSubtask("a", "s1", true) {
		t.Fatalf("toggle failed")
	}
	if s.ToggleSubtask("a", "nope", true) {
		t.Fatalf("toggle of unknown subtask succeeded")
	}
	s.UpsertComment("a", domain.Comment{ID: "m1", Body: "hi"})
	s.UpsertComment("a", domain.Comment{ID: "m1", Body: "edited"})
	s.AddQuestion("a", domain.Question{ID: "q1", Text: "which db?"})
	if !s.AnswerQuestion("a", "q1", "postgres") {
		t.Fatalf("answer failed")
	}
	if s.UpsertComment("ghost", domain.Comment{ID: "m2"}) {
		t.Fatalf("detail stored for a card not in view")
	}

	d := s.Detail("a")
	if len(d.Subtasks) != 2 || d.Subtasks[0].ID != "s1" || !d.Subtasks[0].Completed || d.Subtasks[0].CardID != "a" {
		t.Fatalf("unexpected subtasks: %#v", d.Subtasks)
	}
	if len(d.Comments) != 1 || d.Comments[0].Body != "edited" {
		t.Fatalf("unexpected comments: %#v", d.Comments)
	}
	if len(d.PendingQuestions()) != 0 || d.Questions[0].Answer != "postgres" {
		t.Fatalf("unexpected questions: %#v", d.Questions)
	}

	s.RemoveSubtask("a", "s2")
	s.RemoveComment("a", "m1")
	d = s.Detail("a")
	if len(d.Subtasks) != 1 || len(d.Comments) != 0 {
		t.Fatalf("unexpected detail after removals: %#v", d)
	}
}

func TestStoreRemoveActiveBoardClearsView(t *testing.T) {
	s := newStore(t, card("a", domain.StageTodo, 1000))
	s.SetBoards([]domain.Board{{ID: "b1", Position: 1}, {ID: "b2", Position: 2}})
	s.RemoveBoard("b1")
	if s.ActiveBoard() != "" || s.HasCard("a") {
		t.Fatalf("active board not cleared: %q", s.ActiveBoard())
	}
	if bs := s.Boards(); len(bs) != 1 || bs[0].ID != "b2" {
		t.Fatalf("unexpected boards: %#v", bs)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := newStore(t, card("a", domain.StageTodo, 1000))
	snap := s.Snapshot()
	snap.Columns[domain.StageTodo][0].Title = "changed"
	c, _ := s.Card("a")
	if c.Title != "a" {
		t.Fatalf("snapshot shares card memory with store")
	}
}

func TestNotifications(t *testing.T) {
	n := NewNotifications(2)
	n.Add(domain.Notification{ID: "n1", Title: "one"})
	n.Add(domain.Notification{ID: "n2", Title: "two"})
	n.Add(domain.Notification{ID: "n2", Title: "two again"})
	n.Add(domain.Notification{ID: "n3", Title: "three"})
	list := n.List()
	if len(list) != 2 || list[0].ID != "n3" || list[1].Title != "two again" {
		t.Fatalf("unexpected notifications: %#v", list)
	}
	if !n.MarkRead("n3") || n.Unread() != 1 {
		t.Fatalf("unexpected unread count %d", n.Unread())
	}

	n.TrackMerge(domain.MergeState{CardID: "c1", Status: domain.MergeConflictDetected, Conflicts: []string{"a.go"}})
	n.TrackMerge(domain.MergeState{CardID: "c2", Status: domain.MergeCompleted})
	open := n.Merges()
	if len(open) != 1 || open[0].CardID != "c1" {
		t.Fatalf("unexpected open merges: %#v", open)
	}
	if st, ok := n.Merge("c2"); !ok || st.Status != domain.MergeCompleted {
		t.Fatalf("unexpected merge state: %#v", st)
	}
}
