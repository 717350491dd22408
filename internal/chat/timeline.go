// ABOUTME: Session-wide append-only message timeline with per-peer filtered views
// ABOUTME: Display order is arrival order; timestamps are label data only

package chat

import (
	"sync"
)

// Timeline holds every message seen during the session, in arrival
// order. It is a single shared slice, not a per-peer index: events for
// conversations other than the active one are retained and filtered out
// of views rather than dropped.
//
// The timeline never re-sorts by timestamp. A message delivered late but
// timestamped earlier still renders after messages that arrived first.
type Timeline struct {
	localID string

	mu   sync.RWMutex
	msgs []Message
}

// NewTimeline creates an empty timeline scoped to the given local user.
func NewTimeline(localID string) *Timeline {
	return &Timeline{localID: localID}
}

// Append adds one message to the end of the timeline.
func (t *Timeline) Append(m Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = append(t.msgs, m)
}

// ReplaceHistory discards the current timeline and appends the fetched
// sequence in the order received. History results and live events share
// this append sink, so events arriving after the replacement land behind
// the history in arrival order.
//
// Replacement is wholesale: messages retained for other conversations
// are discarded too. Switching back to a peer re-fetches rather than
// merging, so anything missed during a reload stays missed.
func (t *Timeline) ReplaceHistory(peerID string, msgs []Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = t.msgs[:0]
	t.msgs = append(t.msgs, msgs...)
}

// ViewFor returns the messages belonging to the conversation with the
// given peer, in arrival order. The view is recomputed on every call;
// no per-peer index is kept.
func (t *Timeline) ViewFor(peerID string) []Message {
	key := ConversationKey{A: t.localID, B: peerID}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var view []Message
	for _, m := range t.msgs {
		if key.Matches(m) {
			view = append(view, m)
		}
	}
	return view
}

// Len returns the total number of stored messages across all
// conversations.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}
