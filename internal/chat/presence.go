// ABOUTME: Tracks which peers are currently online from server-pushed snapshots
// ABOUTME: Each snapshot replaces the previous set wholesale; no transition history

package chat

import (
	"sync"
)

// PresenceTracker holds the most recent set of online user IDs. The
// server pushes full replacement snapshots, never incremental deltas,
// and the tracker mirrors that: Update swaps the whole set atomically.
type PresenceTracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

// NewPresenceTracker creates a tracker with an empty snapshot.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{online: make(map[string]struct{})}
}

// Update replaces the tracked set with the given snapshot.
func (p *PresenceTracker) Update(snapshot []string) {
	next := make(map[string]struct{}, len(snapshot))
	for _, id := range snapshot {
		next[id] = struct{}{}
	}

	p.mu.Lock()
	p.online = next
	p.mu.Unlock()
}

// IsOnline reports whether the user appears in the latest snapshot.
func (p *PresenceTracker) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.online[userID]
	return ok
}

// Count returns the size of the latest snapshot.
func (p *PresenceTracker) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.online)
}
