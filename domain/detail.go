package domain

import "time"

// Subtask is a checklist item attached to a card.
type Subtask struct {
	ID        string  `json:"id"`
	CardID    string  `json:"card_id"`
	Title     string  `json:"title"`
	Completed bool    `json:"completed"`
	Position  float64 `json:"position"`
}

// Comment is a discussion entry attached to a card.
type Comment struct {
	ID        string    `json:"id"`
	CardID    string    `json:"card_id"`
	Author    string    `json:"author,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Question is raised by the automation when it needs input on a card.
type Question struct {
	ID         string    `json:"id"`
	CardID     string    `json:"card_id"`
	Text       string    `json:"text"`
	Options    []string  `json:"options,omitempty"`
	Answer     string    `json:"answer,omitempty"`
	Answered   bool      `json:"answered"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	AnsweredAt time.Time `json:"answered_at,omitempty"`
}

// CardDetail holds the per-card collections kept alongside the board projection.
type CardDetail struct {
	Subtasks  []Subtask  `json:"subtasks"`
	Comments  []Comment  `json:"comments"`
	Questions []Question `json:"questions"`
}

// Clone returns a deep copy of the detail's slices.
func (d CardDetail) Clone() CardDetail {
	return CardDetail{
		Subtasks:  append([]Subtask(nil), d.Subtasks...),
		Comments:  append([]Comment(nil), d.Comments...),
		Questions: append([]Question(nil), d.Questions...),
	}
}

// PendingQuestions returns the questions that have not been answered yet.
func (d CardDetail) PendingQuestions() []Question {
	var out []Question
	for _, q := range d.Questions {
		if !q.Answered {
			out = append(out, q)
		}
	}
	return out
}
