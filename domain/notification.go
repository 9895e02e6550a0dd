package domain

import "time"

// Notification is a user-facing message pushed by the server.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CardID    string    `json:"card_id,omitempty"`
	BoardID   string    `json:"board_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// MergeStatus is the last known step of a card's branch merge.
type MergeStatus string

const (
	MergeConflictDetected MergeStatus = "conflict_detected"
	MergeConflictResolved MergeStatus = "conflict_resolved"
	MergeCompleted        MergeStatus = "completed"
	MergeAborted          MergeStatus = "aborted"
)

// MergeState tracks the merge lifecycle of a single card.
type MergeState struct {
	CardID    string      `json:"card_id"`
	BoardID   string      `json:"board_id,omitempty"`
	Status    MergeStatus `json:"status"`
	Conflicts []string    `json:"conflicts,omitempty"`
	Message   string      `json:"message,omitempty"`
}
