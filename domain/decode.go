package domain

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrMissingType is returned for envelopes without a "type" discriminator.
var ErrMissingType = errors.New("envelope has no type")

// DecodeError describes an inbound payload that could not be turned into an Event.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("decode envelope: %v", e.Err)
	}
	return fmt.Sprintf("decode %s envelope: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var mergeKinds = map[Kind]MergeStatus{
	KindMergeConflictDetected: MergeConflictDetected,
	KindMergeConflictResolved: MergeConflictResolved,
	KindMergeCompleted:        MergeCompleted,
	KindMergeAborted:          MergeAborted,
}

type decodeFunc func(data []byte) (Event, error)

var decoders = map[Kind]decodeFunc{
	KindCardCreated:         decodeAs[CardCreated],
	KindCardUpdated:         decodeAs[CardUpdated],
	KindCardMoved:           decodeAs[CardMoved],
	KindCardDeleted:         decodeAs[CardDeleted],
	KindAIStatusChanged:     decodeAs[AIStatusChanged],
	KindAutoDetectStatus:    decodeAs[AutoDetectStatus],
	KindQuestionCreated:     decodeAs[QuestionCreated],
	KindQuestionAnswered:    decodeAs[QuestionAnswered],
	KindSubtaskCreated:      decodeAs[SubtaskCreated],
	KindSubtaskUpdated:      decodeAs[SubtaskUpdated],
	KindSubtaskToggled:      decodeAs[SubtaskToggled],
	KindSubtaskDeleted:      decodeAs[SubtaskDeleted],
	KindCommentCreated:      decodeAs[CommentCreated],
	KindCommentUpdated:      decodeAs[CommentUpdated],
	KindCommentDeleted:      decodeAs[CommentDeleted],
	KindBoardCreated:        decodeAs[BoardCreated],
	KindBoardUpdated:        decodeAs[BoardUpdated],
	KindBoardDeleted:        decodeAs[BoardDeleted],
	KindLabelAdded:          decodeAs[LabelAdded],
	KindLabelRemoved:        decodeAs[LabelRemoved],
	KindNotificationCreated: decodeAs[NotificationCreated],
	KindConnected:           decodeAs[Connected],
}

func init() {
	for kind, status := range mergeKinds {
		status := status
		decoders[kind] = func(data []byte) (Event, error) {
			var m MergeLifecycle
			if err := sonic.Unmarshal(data, &m); err != nil {
				return nil, err
			}
			m.Status = status
			return m, nil
		}
	}
}

type validator interface {
	validate() error
}

func decodeAs[T Event](data []byte) (Event, error) {
	var ev T
	if err := sonic.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if v, ok := any(ev).(validator); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

// Decode turns one inbound payload into an Event. Unrecognized kinds decode
// to Unknown without error so newer servers don't break older clients.
func Decode(data []byte) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := sonic.Unmarshal(data, &head); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if head.Type == "" {
		return nil, &DecodeError{Err: ErrMissingType}
	}
	decode, ok := decoders[Kind(head.Type)]
	if !ok {
		return Unknown{Type: head.Type, Raw: append([]byte(nil), data...)}, nil
	}
	ev, err := decode(data)
	if err != nil {
		return nil, &DecodeError{Type: head.Type, Err: err}
	}
	return ev, nil
}

// Encode marshals ev with its "type" discriminator. Unknown events are
// returned as received.
func Encode(ev Event) ([]byte, error) {
	if u, ok := ev.(Unknown); ok {
		return u.Raw, nil
	}
	body, err := sonic.Marshal(ev)
	if err != nil {
		return nil, err
	}
	head, err := sonic.Marshal(string(ev.Kind()))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(head)+9)
	out = append(out, `{"type":`...)
	out = append(out, head...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

var errMissingCardID = errors.New("missing card_id")

func (e CardCreated) validate() error { return requireCard(e.Card) }
func (e CardUpdated) validate() error { return requireCard(e.Card) }

func (e CardMoved) validate() error {
	if e.Card != nil {
		return requireCard(*e.Card)
	}
	if e.CardID == "" {
		return errMissingCardID
	}
	if !e.ToStage.Valid() {
		return fmt.Errorf("unknown to_stage %q", e.ToStage)
	}
	return nil
}

func (e CardDeleted) validate() error {
	if e.CardID == "" {
		return errMissingCardID
	}
	return nil
}

func (e AIStatusChanged) validate() error {
	if e.CardID == "" {
		return errMissingCardID
	}
	if !e.Status.Valid() {
		return fmt.Errorf("unknown ai status %q", e.Status)
	}
	return nil
}

func (e AutoDetectStatus) validate() error {
	if e.CardID == "" {
		return errMissingCardID
	}
	if !e.Status.Valid() {
		return fmt.Errorf("unknown ai status %q", e.Status)
	}
	return nil
}

func (e BoardCreated) validate() error { return requireBoard(e.Board) }
func (e BoardUpdated) validate() error { return requireBoard(e.Board) }

func (e BoardDeleted) validate() error {
	if e.BoardID == "" {
		return errors.New("missing board_id")
	}
	return nil
}

func requireCard(c Card) error {
	if c.ID == "" {
		return errors.New("card without id")
	}
	if !c.Stage.Valid() {
		return fmt.Errorf("card %s has unknown stage %q", c.ID, c.Stage)
	}
	return nil
}

func requireBoard(b Board) error {
	if b.ID == "" {
		return errors.New("board without id")
	}
	return nil
}
