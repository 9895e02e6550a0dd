package router

import (
	log "github.com/sirupsen/logrus"

	"prism-sync/board"
	"prism-sync/domain"
)

// Router applies inbound events to the board and notification stores, one at
// a time and in the order they arrive.
type Router struct {
	store  *board.Store
	notes  *board.Notifications
	logger log.FieldLogger
}

func New(store *board.Store, notes *board.Notifications, logger log.FieldLogger) *Router {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Router{store: store, notes: notes, logger: logger}
}

// HandleEvent dispatches ev. It never fails: irrelevant, stale or unknown
// events are logged and dropped.
func (r *Router) HandleEvent(ev domain.Event) {
	if scoped, ok := ev.(domain.CardScoped); ok && !r.relevant(scoped) {
		r.logger.WithFields(log.Fields{
			"type":    string(ev.Kind()),
			"card_id": scoped.TargetCard(),
			"board":   scoped.TargetBoard(),
		}).Debug("router.event.other_board")
		return
	}

	switch e := ev.(type) {
	case domain.CardCreated:
		r.store.ApplyAuthoritative(e.Card)
	case domain.CardUpdated:
		r.store.ApplyAuthoritative(e.Card)
	case domain.CardMoved:
		r.cardMoved(e)
	case domain.CardDeleted:
		r.store.Remove(e.CardID)
	case domain.AIStatusChanged:
		r.aiStatus(e.Kind(), e.CardID, e.Status, e.Progress)
	case domain.AutoDetectStatus:
		r.aiStatus(e.Kind(), e.CardID, e.Status, e.Progress)
	case domain.QuestionCreated:
		r.store.AddQuestion(e.TargetCard(), e.Question)
	case domain.QuestionAnswered:
		r.store.AnswerQuestion(e.CardID, e.QuestionID, e.Answer)
	case domain.SubtaskCreated:
		r.store.UpsertSubtask(e.TargetCard(), e.Subtask)
	case domain.SubtaskUpdated:
		r.store.UpsertSubtask(e.TargetCard(), e.Subtask)
	case domain.SubtaskToggled:
		r.store.ToggleSubtask(e.CardID, e.SubtaskID, e.Completed)
	case domain.SubtaskDeleted:
		r.store.RemoveSubtask(e.CardID, e.SubtaskID)
	case domain.CommentCreated:
		r.store.UpsertComment(e.TargetCard(), e.Comment)
	case domain.CommentUpdated:
		r.store.UpsertComment(e.TargetCard(), e.Comment)
	case domain.CommentDeleted:
		r.store.RemoveComment(e.CardID, e.CommentID)
	case domain.BoardCreated:
		r.store.UpsertBoard(e.Board)
	case domain.BoardUpdated:
		r.store.UpsertBoard(e.Board)
	case domain.BoardDeleted:
		r.store.RemoveBoard(e.BoardID)
	case domain.LabelAdded, domain.LabelRemoved:
		// labels are not part of the board projection
	case domain.NotificationCreated:
		r.notes.Add(e.Notification)
	case domain.Connected:
		r.logger.WithField("client_id", e.ClientID).Info("router.connected")
	case domain.MergeLifecycle:
		r.notes.TrackMerge(domain.MergeState{
			CardID:    e.CardID,
			BoardID:   e.BoardID,
			Status:    e.Status,
			Conflicts: e.Files,
			Message:   e.Message,
		})
	case domain.Unknown:
		r.logger.WithField("type", e.Type).Debug("router.event.unknown")
	default:
		r.logger.WithField("type", string(ev.Kind())).Debug("router.event.unhandled")
	}
}

// relevant drops events addressed to a board other than the active one.
// Events that do not name a board are assumed to concern the active board.
func (r *Router) relevant(ev domain.CardScoped) bool {
	target := ev.TargetBoard()
	return target == "" || target == r.store.ActiveBoard()
}

func (r *Router) cardMoved(e domain.CardMoved) {
	if e.Card != nil {
		r.store.ApplyAuthoritative(*e.Card)
		return
	}
	if !r.store.MoveCard(e.CardID, e.ToStage, e.Position) {
		r.logger.WithField("card_id", e.CardID).Debug("router.card.untracked")
	}
}

func (r *Router) aiStatus(kind domain.Kind, cardID string, status domain.AIStatus, progress []byte) {
	current, ok := r.store.Card(cardID)
	if !ok {
		r.logger.WithFields(log.Fields{"type": string(kind), "card_id": cardID}).Debug("router.card.untracked")
		return
	}
	if !current.AIStatus.CanTransition(status) {
		r.logger.WithFields(log.Fields{
			"card_id": cardID,
			"from":    string(current.AIStatus),
			"to":      string(status),
		}).Warn("router.ai_status.unexpected_transition")
	}
	r.store.SetAIStatus(cardID, status, progress)
}
