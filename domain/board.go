package domain

import "time"

// Board groups cards into the fixed set of stages.
type Board struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Position  float64   `json:"position"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// BoardPatch carries partial updates for a board.
type BoardPatch struct {
	Name     *string  `json:"name,omitempty"`
	Position *float64 `json:"position,omitempty"`
}

// Apply returns a copy of b with the patch applied.
func (p BoardPatch) Apply(b Board) Board {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Position != nil {
		b.Position = *p.Position
	}
	return b
}
