package board

import (
	"sort"
	"time"

	"prism-sync/domain"
)

// Detail returns a copy of the subtasks, comments and questions known for a card.
func (s *Store) Detail(cardID string) domain.CardDetail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Details[cardID].Clone()
}

// SetDetail replaces everything known about a card's collections.
func (s *Store) SetDetail(cardID string, d domain.CardDetail) bool {
	return s.editDetail(cardID, func(domain.CardDetail) (domain.CardDetail, bool) {
		next := d.Clone()
		sortSubtasks(next.Subtasks)
		return next, true
	})
}

// UpsertSubtask adds or replaces a subtask, keeping subtasks ordered by position.
func (s *Store) UpsertSubtask(cardID string, st domain.Subtask) bool {
	return s.editDetail(cardID, func(d domain.CardDetail) (domain.CardDetail, bool) {
		st.CardID = cardID
		if i := subtaskIndex(d.Subtasks, st.ID); i >= 0 {
			d.Subtasks[i] = st
		} else {
			d.Subtasks = append(d.Subtasks, st)
		}
		sortSubtasks(d.Subtasks)
		return d, true
	})
}

// ToggleSubtask sets the completion flag of a known subtask.
func (s *Store) ToggleSubtask(cardID, subtaskID string, completed bool) bool {
	return s.editDetail(cardID, func(d domain.CardDetail) (domain.CardDetail, bool) {
		i := subtaskIndex(d.Subtasks, subtaskID)
		if i < 0 {
			return d, false
		}
		d.Subtasks[i].Completed = completed
		return d, true
	})
}

// RemoveSubtask deletes a subtask.
func (s *Store) RemoveSubtask(cardID, subtaskID string) bool {
	return s.editDetail(cardID, func(d domain.CardDetail) (domain.CardDetail, bool) {
		i := subtaskIndex(d.Subtasks, subtaskID)
		if i < 0 {
			return d, false
		}
		d.Subtasks = append(d.Subtasks[:i], d.Subtasks[i+1:]...)
		return d, true
	})
}

// UpsertComment adds or replaces a comment. New comments go last.
func (s *Store) UpsertComment(cardID string, c domain.Comment) bool {
	return s.editDetail(cardID, func(d domain.CardDetail) (domain.CardDetail, bool) {
		c.CardID = cardID
		for i := range d.Comments {
			if d.Comments[i].ID == c.ID {
				d.Comments[i] = c
				return d, true
			}
		}
		d.Comments = append(d.Comments, c)
		return d, true
	})
}

// RemoveComment deletes a comment.
func (s *Store) RemoveComment(cardID, commentID string) bool {
	return s.editDetail(cardID, func(d domain.CardDetail) (domain.CardDetail, bool) {
		for i := range d.Comments {
			if d.Comments[i].ID == commentID {
				d.Comments = append(d.Comments[:i], d.Comments[i+1:]...)
				return d, true
			}
		}
		return d, false
	})
}

// AddQuestion records a question raised for a card. A repeated id replaces
// the earlier copy.
func (s *Store) AddQuestion(cardID string, q domain.Question) bool {
	return s.editDetail(cardID, func(d domain.CardDetail) (domain.CardDetail, bool) {
		q.CardID = cardID
		for i := range d.Questions {
			if d.Questions[i].ID == q.ID {
				d.Questions[i] = q
				return d, true
			}
		}
		d.Questions = append(d.Questions, q)
		return d, true
	})
}

// AnswerQuestion marks a question answered.
func (s *Store) AnswerQuestion(cardID, questionID, answer string) bool {
	return s.editDetail(cardID, func(d domain.CardDetail) (domain.CardDetail, bool) {
		for i := range d.Questions {
			if d.Questions[i].ID == questionID {
				d.Questions[i].Answer = answer
				d.Questions[i].Answered = true
				d.Questions[i].AnsweredAt = time.Now().UTC()
				return d, true
			}
		}
		return d, false
	})
}

// editDetail runs fn on a private copy of the card's detail and installs the
// result when fn reports a change. Details are only kept for cards in view.
func (s *Store) editDetail(cardID string, fn func(domain.CardDetail) (domain.CardDetail, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, ok := s.state.Columns.Find(cardID); !ok {
		return false
	}
	next, changed := fn(s.state.Details[cardID].Clone())
	if !changed {
		return false
	}
	details := s.copyDetails()
	details[cardID] = next
	s.state.Details = details
	s.commit()
	return true
}

func subtaskIndex(list []domain.Subtask, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func sortSubtasks(list []domain.Subtask) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Position < list[j].Position })
}
