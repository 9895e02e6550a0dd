package domain

// AIStatus tracks the automation lifecycle of a card.
type AIStatus string

const (
	AIStatusIdle         AIStatus = "idle"
	AIStatusPlanning     AIStatus = "planning"
	AIStatusDispatched   AIStatus = "dispatched"
	AIStatusWorking      AIStatus = "working"
	AIStatusWaitingInput AIStatus = "waiting_input"
	AIStatusCompleted    AIStatus = "completed"
	AIStatusFailed       AIStatus = "failed"
	AIStatusCancelled    AIStatus = "cancelled"
)

var aiTransitions = map[AIStatus][]AIStatus{
	AIStatusIdle:         {AIStatusPlanning},
	AIStatusPlanning:     {AIStatusDispatched},
	AIStatusDispatched:   {AIStatusWorking},
	AIStatusWorking:      {AIStatusWaitingInput, AIStatusCompleted},
	AIStatusWaitingInput: {AIStatusWorking},
	AIStatusCompleted:    {AIStatusIdle, AIStatusPlanning},
	AIStatusFailed:       {AIStatusIdle, AIStatusPlanning},
	AIStatusCancelled:    {AIStatusIdle, AIStatusPlanning},
}

// Terminal reports whether s ends an automation run.
func (s AIStatus) Terminal() bool {
	return s == AIStatusCompleted || s == AIStatusFailed || s == AIStatusCancelled
}

// Valid reports whether s is a known status. The empty status is treated as idle.
func (s AIStatus) Valid() bool {
	if s == "" {
		return true
	}
	_, ok := aiTransitions[s]
	return ok
}

// CanTransition reports whether moving from s to next is an expected step of
// the automation state machine. Any running state may fail or be cancelled.
func (s AIStatus) CanTransition(next AIStatus) bool {
	if s == "" {
		s = AIStatusIdle
	}
	if s == next {
		return true
	}
	if !s.Terminal() && (next == AIStatusFailed || next == AIStatusCancelled) {
		return s != AIStatusIdle
	}
	for _, allowed := range aiTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
