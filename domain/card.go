package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stage is one of the fixed board columns.
type Stage string

const (
	StageBacklog    Stage = "backlog"
	StagePlan       Stage = "plan"
	StageTodo       Stage = "todo"
	StageInProgress Stage = "in_progress"
	StageReview     Stage = "review"
	StageDone       Stage = "done"
)

// Stages lists every stage in board order.
var Stages = []Stage{StageBacklog, StagePlan, StageTodo, StageInProgress, StageReview, StageDone}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	switch s {
	case StageBacklog, StagePlan, StageTodo, StageInProgress, StageReview, StageDone:
		return true
	}
	return false
}

// ParseStage converts a wire value into a Stage.
func ParseStage(v string) (Stage, error) {
	s := Stage(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown stage %q", v)
	}
	return s, nil
}

// Card represents a single task on a board.
type Card struct {
	ID          string          `json:"id"`
	BoardID     string          `json:"board_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Stage       Stage           `json:"stage"`
	Position    float64         `json:"position"`
	Priority    int             `json:"priority"`
	AIStatus    AIStatus        `json:"ai_status,omitempty"`
	AIProgress  json.RawMessage `json:"ai_progress,omitempty"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at,omitempty"`
}

// Placement is where a card sits: its stage and its ordinal position.
type Placement struct {
	Stage    Stage   `json:"stage"`
	Position float64 `json:"position"`
}

// Placement returns the card's current stage and position.
func (c Card) Placement() Placement {
	return Placement{Stage: c.Stage, Position: c.Position}
}

// CardDraft carries the fields of a card being created.
type CardDraft struct {
	BoardID     string  `json:"board_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Stage       Stage   `json:"stage"`
	Position    float64 `json:"position"`
	Priority    int     `json:"priority"`
}

// CardPatch carries partial updates for a card. Nil fields are left untouched.
type CardPatch struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Priority    *int     `json:"priority,omitempty"`
	Stage       *Stage   `json:"stage,omitempty"`
	Position    *float64 `json:"position,omitempty"`
}

// Apply returns a copy of c with the patch applied.
func (p CardPatch) Apply(c Card) Card {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Priority != nil {
		c.Priority = *p.Priority
	}
	if p.Stage != nil {
		c.Stage = *p.Stage
	}
	if p.Position != nil {
		c.Position = *p.Position
	}
	return c
}
