package board

import (
	"sort"
	"sync"

	"prism-sync/domain"
)

const defaultNotificationLimit = 100

// Notifications keeps the most recent server notifications, newest first,
// together with the last merge state reported for each card.
type Notifications struct {
	mu     sync.RWMutex
	limit  int
	items  []domain.Notification
	merges map[string]domain.MergeState
}

// NewNotifications creates a store that keeps at most limit notifications.
// A non-positive limit selects the default.
func NewNotifications(limit int) *Notifications {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	return &Notifications{limit: limit, merges: make(map[string]domain.MergeState)}
}

// Add records n. A notification already present by id is replaced in place.
func (n *Notifications) Add(item domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.items {
		if item.ID != "" && n.items[i].ID == item.ID {
			n.items[i] = item
			return
		}
	}
	next := make([]domain.Notification, 0, min(len(n.items)+1, n.limit))
	next = append(next, item)
	next = append(next, n.items...)
	if len(next) > n.limit {
		next = next[:n.limit]
	}
	n.items = next
}

// List returns all retained notifications, newest first.
func (n *Notifications) List() []domain.Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]domain.Notification(nil), n.items...)
}

// Unread counts notifications not yet marked read.
func (n *Notifications) Unread() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	count := 0
	for _, item := range n.items {
		if !item.Read {
			count++
		}
	}
	return count
}

// MarkRead flags a notification as read and reports whether it was found.
func (n *Notifications) MarkRead(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.items {
		if n.items[i].ID == id {
			n.items[i].Read = true
			return true
		}
	}
	return false
}

// TrackMerge records the latest merge step for a card.
func (n *Notifications) TrackMerge(state domain.MergeState) {
	if state.CardID == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	state.Conflicts = append([]string(nil), state.Conflicts...)
	n.merges[state.CardID] = state
}

// Merge returns the last merge state reported for a card.
func (n *Notifications) Merge(cardID string) (domain.MergeState, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	st, ok := n.merges[cardID]
	return st, ok
}

// Merges returns the cards whose last merge step was a detected or resolved
// conflict, ordered by card id.
func (n *Notifications) Merges() []domain.MergeState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var out []domain.MergeState
	for _, st := range n.merges {
		if st.Status == domain.MergeConflictDetected || st.Status == domain.MergeConflictResolved {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CardID < out[j].CardID })
	return out
}
