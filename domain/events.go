package domain

import "encoding/json"

// Kind is the wire discriminator carried in the "type" field of every envelope.
type Kind string

const (
	KindCardCreated           Kind = "cardCreated"
	KindCardUpdated           Kind = "cardUpdated"
	KindCardMoved             Kind = "cardMoved"
	KindCardDeleted           Kind = "cardDeleted"
	KindAIStatusChanged       Kind = "aiStatusChanged"
	KindQuestionCreated       Kind = "questionCreated"
	KindQuestionAnswered      Kind = "questionAnswered"
	KindSubtaskCreated        Kind = "subtaskCreated"
	KindSubtaskUpdated        Kind = "subtaskUpdated"
	KindSubtaskToggled        Kind = "subtaskToggled"
	KindSubtaskDeleted        Kind = "subtaskDeleted"
	KindCommentCreated        Kind = "commentCreated"
	KindCommentUpdated        Kind = "commentUpdated"
	KindCommentDeleted        Kind = "commentDeleted"
	KindBoardCreated          Kind = "boardCreated"
	KindBoardUpdated          Kind = "boardUpdated"
	KindBoardDeleted          Kind = "boardDeleted"
	KindLabelAdded            Kind = "labelAdded"
	KindLabelRemoved          Kind = "labelRemoved"
	KindAutoDetectStatus      Kind = "autoDetectStatus"
	KindNotificationCreated   Kind = "notificationCreated"
	KindConnected             Kind = "connected"
	KindMergeConflictDetected Kind = "mergeConflictDetected"
	KindMergeConflictResolved Kind = "mergeConflictResolved"
	KindMergeCompleted        Kind = "mergeCompleted"
	KindMergeAborted          Kind = "mergeAborted"
)

// Event is a decoded inbound envelope. The set of implementations is closed:
// every recognized kind has its own type and anything else decodes to Unknown.
type Event interface {
	Kind() Kind
	isEvent()
}

// CardScoped is implemented by events that affect a single card. BoardID may
// be empty when the server did not say which board the card lives on.
type CardScoped interface {
	Event
	TargetCard() string
	TargetBoard() string
}

// CardRef identifies the card and board an event refers to.
type CardRef struct {
	CardID  string `json:"card_id"`
	BoardID string `json:"board_id,omitempty"`
}

func (r CardRef) TargetCard() string  { return r.CardID }
func (r CardRef) TargetBoard() string { return r.BoardID }

type CardCreated struct {
	BoardID string `json:"board_id,omitempty"`
	Card    Card   `json:"card"`
}

type CardUpdated struct {
	BoardID string `json:"board_id,omitempty"`
	Card    Card   `json:"card"`
}

// CardMoved reports a stage change. Card is set when the server sends the full
// record; Position is set when only the new ordinal is known.
type CardMoved struct {
	CardRef
	FromStage Stage    `json:"from_stage"`
	ToStage   Stage    `json:"to_stage"`
	Position  *float64 `json:"position,omitempty"`
	Card      *Card    `json:"card,omitempty"`
}

type CardDeleted struct {
	CardRef
}

type AIStatusChanged struct {
	CardRef
	Status   AIStatus        `json:"status"`
	Progress json.RawMessage `json:"progress,omitempty"`
}

// AutoDetectStatus carries a status the server inferred from agent output.
type AutoDetectStatus struct {
	CardRef
	Status   AIStatus        `json:"status"`
	Progress json.RawMessage `json:"progress,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}

type QuestionCreated struct {
	CardRef
	Question Question `json:"question"`
}

type QuestionAnswered struct {
	CardRef
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type SubtaskCreated struct {
	CardRef
	Subtask Subtask `json:"subtask"`
}

type SubtaskUpdated struct {
	CardRef
	Subtask Subtask `json:"subtask"`
}

type SubtaskToggled struct {
	CardRef
	SubtaskID string `json:"subtask_id"`
	Completed bool   `json:"completed"`
}

type SubtaskDeleted struct {
	CardRef
	SubtaskID string `json:"subtask_id"`
}

type CommentCreated struct {
	CardRef
	Comment Comment `json:"comment"`
}

type CommentUpdated struct {
	CardRef
	Comment Comment `json:"comment"`
}

type CommentDeleted struct {
	CardRef
	CommentID string `json:"comment_id"`
}

type BoardCreated struct {
	Board Board `json:"board"`
}

type BoardUpdated struct {
	Board Board `json:"board"`
}

type BoardDeleted struct {
	BoardID string `json:"board_id"`
}

type LabelAdded struct {
	CardRef
	Label string `json:"label"`
}

type LabelRemoved struct {
	CardRef
	Label string `json:"label"`
}

type NotificationCreated struct {
	Notification Notification `json:"notification"`
}

// Connected is the server's acknowledgement of a freshly opened channel.
type Connected struct {
	ClientID string `json:"client_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// MergeLifecycle covers the four merge kinds; Status tells them apart.
type MergeLifecycle struct {
	CardRef
	Status  MergeStatus `json:"-"`
	Files   []string    `json:"files,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Unknown is an envelope whose type this client does not recognize.
type Unknown struct {
	Type string
	Raw  []byte
}

func (CardCreated) Kind() Kind         { return KindCardCreated }
func (CardUpdated) Kind() Kind         { return KindCardUpdated }
func (CardMoved) Kind() Kind           { return KindCardMoved }
func (CardDeleted) Kind() Kind         { return KindCardDeleted }
func (AIStatusChanged) Kind() Kind     { return KindAIStatusChanged }
func (AutoDetectStatus) Kind() Kind    { return KindAutoDetectStatus }
func (QuestionCreated) Kind() Kind     { return KindQuestionCreated }
func (QuestionAnswered) Kind() Kind    { return KindQuestionAnswered }
func (SubtaskCreated) Kind() Kind      { return KindSubtaskCreated }
func (SubtaskUpdated) Kind() Kind      { return KindSubtaskUpdated }
func (SubtaskToggled) Kind() Kind      { return KindSubtaskToggled }
func (SubtaskDeleted) Kind() Kind      { return KindSubtaskDeleted }
func (CommentCreated) Kind() Kind      { return KindCommentCreated }
func (CommentUpdated) Kind() Kind      { return KindCommentUpdated }
func (CommentDeleted) Kind() Kind      { return KindCommentDeleted }
func (BoardCreated) Kind() Kind        { return KindBoardCreated }
func (BoardUpdated) Kind() Kind        { return KindBoardUpdated }
func (BoardDeleted) Kind() Kind        { return KindBoardDeleted }
func (LabelAdded) Kind() Kind          { return KindLabelAdded }
func (LabelRemoved) Kind() Kind        { return KindLabelRemoved }
func (NotificationCreated) Kind() Kind { return KindNotificationCreated }
func (Connected) Kind() Kind           { return KindConnected }
func (u Unknown) Kind() Kind           { return Kind(u.Type) }

func (m MergeLifecycle) Kind() Kind {
	for k, s := range mergeKinds {
		if s == m.Status {
			return k
		}
	}
	return KindMergeConflictDetected
}

func (CardCreated) isEvent()         {}
func (CardUpdated) isEvent()         {}
func (CardMoved) isEvent()           {}
func (CardDeleted) isEvent()         {}
func (AIStatusChanged) isEvent()     {}
func (AutoDetectStatus) isEvent()    {}
func (QuestionCreated) isEvent()     {}
func (QuestionAnswered) isEvent()    {}
func (SubtaskCreated) isEvent()      {}
func (SubtaskUpdated) isEvent()      {}
func (SubtaskToggled) isEvent()      {}
func (SubtaskDeleted) isEvent()      {}
func (CommentCreated) isEvent()      {}
func (CommentUpdated) isEvent()      {}
func (CommentDeleted) isEvent()      {}
func (BoardCreated) isEvent()        {}
func (BoardUpdated) isEvent()        {}
func (BoardDeleted) isEvent()        {}
func (LabelAdded) isEvent()          {}
func (LabelRemoved) isEvent()        {}
func (NotificationCreated) isEvent() {}
func (Connected) isEvent()           {}
func (MergeLifecycle) isEvent()      {}
func (Unknown) isEvent()             {}

func (e CardCreated) TargetCard() string  { return e.Card.ID }
func (e CardCreated) TargetBoard() string { return firstNonEmpty(e.BoardID, e.Card.BoardID) }
func (e CardUpdated) TargetCard() string  { return e.Card.ID }
func (e CardUpdated) TargetBoard() string { return firstNonEmpty(e.BoardID, e.Card.BoardID) }

func (e CardMoved) TargetCard() string {
	if e.Card != nil {
		return firstNonEmpty(e.CardID, e.Card.ID)
	}
	return e.CardID
}

func (e CardMoved) TargetBoard() string {
	if e.Card != nil {
		return firstNonEmpty(e.BoardID, e.Card.BoardID)
	}
	return e.BoardID
}

func (e QuestionCreated) TargetCard() string { return firstNonEmpty(e.CardID, e.Question.CardID) }
func (e SubtaskCreated) TargetCard() string  { return firstNonEmpty(e.CardID, e.Subtask.CardID) }
func (e SubtaskUpdated) TargetCard() string  { return firstNonEmpty(e.CardID, e.Subtask.CardID) }
func (e CommentCreated) TargetCard() string  { return firstNonEmpty(e.CardID, e.Comment.CardID) }
func (e CommentUpdated) TargetCard() string  { return firstNonEmpty(e.CardID, e.Comment.CardID) }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
