// ABOUTME: One-shot asynchronous fetch of persisted conversation history
// ABOUTME: Results feed the same append sink as live events; failures are terminal

package chat

import (
	"context"
	"fmt"
	"log/slog"
)

// HistoryFetcher is what the loader needs from the remote store: a
// single round trip returning the persisted messages for one
// conversation, oldest first.
type HistoryFetcher interface {
	History(ctx context.Context, peerID string) ([]Message, error)
}

// HistoryLoader performs the one-shot history fetch for a selected
// peer. It has no retry behavior: a failed fetch is surfaced to the
// caller and the conversation view stays empty until the operator
// selects the peer again.
type HistoryLoader struct {
	fetcher HistoryFetcher
	logger  *slog.Logger
}

// NewHistoryLoader creates a loader. Pass nil logger for default.
func NewHistoryLoader(fetcher HistoryFetcher, logger *slog.Logger) *HistoryLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryLoader{
		fetcher: fetcher,
		logger:  logger.With("component", "history"),
	}
}

// Fetch retrieves the persisted messages for the given peer.
func (l *HistoryLoader) Fetch(ctx context.Context, peerID string) ([]Message, error) {
	msgs, err := l.fetcher.History(ctx, peerID)
	if err != nil {
		l.logger.Warn("history fetch failed", "peer_id", peerID, "error", err)
		return nil, fmt.Errorf("fetching history for %s: %w", peerID, err)
	}

	l.logger.Debug("history fetched", "peer_id", peerID, "count", len(msgs))
	return msgs, nil
}
