package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeCardMoved(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"cardMoved","card_id":"c1","from_stage":"backlog","to_stage":"todo"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	moved, ok := ev.(CardMoved)
	if !ok {
		t.Fatalf("unexpected event type %T", ev)
	}
	if moved.CardID != "c1" || moved.FromStage != StageBacklog || moved.ToStage != StageTodo || moved.Position != nil {
		t.Fatalf("unexpected cardMoved: %#v", moved)
	}
	if moved.TargetCard() != "c1" || moved.TargetBoard() != "" {
		t.Fatalf("unexpected targets %q/%q", moved.TargetCard(), moved.TargetBoard())
	}
}

func TestDecodeCardCreatedTakesBoardFromCard(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"cardCreated","card":{"id":"c2","board_id":"b1","title":"x","stage":"plan","position":1000}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	created := ev.(CardCreated)
	if created.TargetBoard() != "b1" || created.Card.Position != 1000 || created.Card.Stage != StagePlan {
		t.Fatalf("unexpected cardCreated: %#v", created)
	}
}

func TestDecodeMergeKinds(t *testing.T) {
	tests := []struct {
		payload string
		want    MergeStatus
		kind    Kind
	}{
		{`{"type":"mergeConflictDetected","card_id":"c1","files":["a.go"]}`, MergeConflictDetected, KindMergeConflictDetected},
		{`{"type":"mergeConflictResolved","card_id":"c1"}`, MergeConflictResolved, KindMergeConflictResolved},
		{`{"type":"mergeCompleted","card_id":"c1"}`, MergeCompleted, KindMergeCompleted},
		{`{"type":"mergeAborted","card_id":"c1"}`, MergeAborted, KindMergeAborted},
	}
	for _, tt := range tests {
		ev, err := Decode([]byte(tt.payload))
		if err != nil {
			t.Fatalf("decode %s: %v", tt.payload, err)
		}
		m, ok := ev.(MergeLifecycle)
		if !ok {
			t.Fatalf("unexpected event type %T", ev)
		}
		if m.Status != tt.want || m.Kind() != tt.kind {
			t.Fatalf("unexpected merge event %#v (kind %s)", m, m.Kind())
		}
	}
}

func TestDecodeUnknownTypeIsNotAnError(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"somethingNew","x":1}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, ok := ev.(Unknown)
	if !ok || u.Type != "somethingNew" || u.Kind() != Kind("somethingNew") {
		t.Fatalf("unexpected event %#v", ev)
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	payloads := []string{
		`not json`,
		`{"card_id":"c1"}`,
		`{"type":"cardMoved","to_stage":"todo"}`,
		`{"type":"cardMoved","card_id":"c1","to_stage":"sideways"}`,
		`{"type":"cardCreated","card":{"title":"no id","stage":"todo"}}`,
		`{"type":"aiStatusChanged","card_id":"c1","status":"dreaming"}`,
		`{"type":"boardDeleted"}`,
	}
	for _, p := range payloads {
		_, err := Decode([]byte(p))
		var decErr *DecodeError
		if !errors.As(err, &decErr) {
			t.Fatalf("expected DecodeError for %s, got %v", p, err)
		}
	}
	_, err := Decode([]byte(`{"x":1}`))
	if !errors.Is(err, ErrMissingType) {
		t.Fatalf("expected ErrMissingType, got %v", err)
	}
}

func TestEncodeAddsTypeDiscriminator(t *testing.T) {
	pos := 2000.0
	payload, err := Encode(CardMoved{CardRef: CardRef{CardID: "c1", BoardID: "b1"}, FromStage: StageBacklog, ToStage: StageDone, Position: &pos})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.HasPrefix(string(payload), `{"type":"cardMoved",`) {
		t.Fatalf("unexpected payload %s", payload)
	}
	ev, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	moved := ev.(CardMoved)
	if moved.Position == nil || *moved.Position != 2000 || moved.ToStage != StageDone || moved.BoardID != "b1" {
		t.Fatalf("unexpected decoded event %#v", moved)
	}

	empty, err := Encode(Connected{})
	if err != nil {
		t.Fatalf("encode connected: %v", err)
	}
	if string(empty) != `{"type":"connected"}` {
		t.Fatalf("unexpected connected payload %s", empty)
	}
}

func TestAIStatusTransitions(t *testing.T) {
	allowed := [][2]AIStatus{
		{AIStatusIdle, AIStatusPlanning},
		{AIStatusPlanning, AIStatusDispatched},
		{AIStatusDispatched, AIStatusWorking},
		{AIStatusWorking, AIStatusWaitingInput},
		{AIStatusWaitingInput, AIStatusWorking},
		{AIStatusWorking, AIStatusCompleted},
		{AIStatusWorking, AIStatusFailed},
		{AIStatusPlanning, AIStatusCancelled},
		{AIStatusFailed, AIStatusPlanning},
		{"", AIStatusPlanning},
	}
	for _, tr := range allowed {
		if !tr[0].CanTransition(tr[1]) {
			t.Fatalf("expected %s -> %s to be allowed", tr[0], tr[1])
		}
	}
	denied := [][2]AIStatus{
		{AIStatusIdle, AIStatusWorking},
		{AIStatusWaitingInput, AIStatusCompleted},
		{AIStatusCompleted, AIStatusWorking},
		{AIStatusIdle, AIStatusFailed},
	}
	for _, tr := range denied {
		if tr[0].CanTransition(tr[1]) {
			t.Fatalf("expected %s -> %s to be rejected", tr[0], tr[1])
		}
	}
}
