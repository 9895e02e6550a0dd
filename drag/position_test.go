package drag

import (
	"testing"

	"prism-sync/domain"
)

func TestPositionHelpers(t *testing.T) {
	if got := EndPosition(nil); got != 1000 {
		t.Fatalf("empty column: %v", got)
	}
	last := 2500.0
	if got := EndPosition(&last); got != 3500 {
		t.Fatalf("column end: %v", got)
	}
	if got := StartPosition(2); got < 1 || got >= 2 {
		t.Fatalf("head of [2] out of range: %v", got)
	}
	for _, first := range []float64{0.5, 1, 2, 3, 1000} {
		if got := StartPosition(first); got <= 0 {
			t.Fatalf("non-positive start position %v for first %v", got, first)
		}
	}
	if got := BetweenPosition(1000, 3000); got != 2000 {
		t.Fatalf("between: %v", got)
	}
	if got := BetweenPosition(1000, 1001); got != 1000 {
		t.Fatalf("tight between: %v", got)
	}
}

func TestPlacement(t *testing.T) {
	todo := []domain.Card{
		card("a", domain.StageTodo, 1000),
		card("b", domain.StageTodo, 2000),
		card("c", domain.StageTodo, 3000),
	}
	tests := []struct {
		name   string
		column []domain.Card
		active string
		target Target
		want   float64
	}{
		{"empty column", nil, "x", column(domain.StageTodo), 1000},
		{"column end", todo, "x", column(domain.StageTodo), 4000},
		{"before first", todo, "x", over("a", domain.StageTodo), 500},
		{"between", todo, "x", over("c", domain.StageTodo), 2500},
		{"immediate predecessor", todo, "a", over("b", domain.StageTodo), 2500},
		{"moving up", todo, "c", over("a", domain.StageTodo), 500},
		{"moving up between", todo, "c", over("b", domain.StageTodo), 1500},
		{"already last", todo, "c", column(domain.StageTodo), 3000},
		{"unknown card falls back to end", todo, "x", over("zzz", domain.StageTodo), 4000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Placement(tt.column, tt.active, tt.target)
			if got.Stage != domain.StageTodo || got.Position != tt.want {
				t.Fatalf("expected todo@%v, got %#v", tt.want, got)
			}
		})
	}
}

func TestDetectorCardMode(t *testing.T) {
	targets := []Target{
		{Kind: TargetColumn, ID: "todo", Stage: domain.StageTodo, Rect: Rect{X: 0, Y: 0, W: 100, H: 500}},
		{Kind: TargetColumn, ID: "done", Stage: domain.StageDone, Rect: Rect{X: 200, Y: 0, W: 100, H: 500}},
		{Kind: TargetCard, ID: "a", Stage: domain.StageTodo, Rect: Rect{X: 10, Y: 10, W: 80, H: 40}},
		{Kind: TargetCard, ID: "b", Stage: domain.StageTodo, Rect: Rect{X: 10, Y: 100, W: 80, H: 40}},
	}
	var d Detector

	got, ok := d.Detect(ModeCard, "x", Point{X: 50, Y: 20}, targets)
	if !ok || got.ID != "a" {
		t.Fatalf("expected direct hit on a, got %#v", got)
	}
	// in the todo column between cards: nearest card wins
	got, _ = d.Detect(ModeCard, "x", Point{X: 50, Y: 90}, targets)
	if got.ID != "b" {
		t.Fatalf("expected narrowing to b, got %#v", got)
	}
	// the dragged card itself is never a target
	got, _ = d.Detect(ModeCard, "b", Point{X: 50, Y: 110}, targets)
	if got.ID != "a" {
		t.Fatalf("expected a when b is dragged, got %#v", got)
	}
	got, _ = d.Detect(ModeCard, "x", Point{X: 250, Y: 250}, targets)
	if got.ID != "done" || got.Kind != TargetColumn {
		t.Fatalf("expected empty done column, got %#v", got)
	}
	// gap between columns keeps the last target
	got, ok = d.Detect(ModeCard, "x", Point{X: 150, Y: 250}, targets)
	if !ok || got.ID != "done" {
		t.Fatalf("expected fallback to done, got %#v", got)
	}

	d.Reset()
	if _, ok := d.Detect(ModeCard, "x", Point{X: 150, Y: 250}, targets); ok {
		t.Fatalf("expected no target after reset")
	}
}

func TestDetectorColumnMode(t *testing.T) {
	targets := []Target{
		{Kind: TargetColumn, ID: "todo", Stage: domain.StageTodo, Rect: Rect{X: 0, Y: 0, W: 100, H: 500}},
		{Kind: TargetColumn, ID: "done", Stage: domain.StageDone, Rect: Rect{X: 200, Y: 0, W: 100, H: 500}},
		{Kind: TargetCard, ID: "a", Stage: domain.StageTodo, Rect: Rect{X: 10, Y: 10, W: 80, H: 40}},
	}
	var d Detector
	if _, ok := d.Detect(ModeColumn, "todo", Point{X: 50, Y: 20}, targets); ok {
		t.Fatalf("own column or cards must not be targets")
	}
	got, ok := d.Detect(ModeColumn, "todo", Point{X: 250, Y: 20}, targets)
	if !ok || got.ID != "done" {
		t.Fatalf("expected done column, got %#v", got)
	}
}
