// ABOUTME: Session owns the connection, timeline, presence and send pipeline for one login
// ABOUTME: Constructed at login, torn down at logout; peer selection drives history loads

package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrNoPeerSelected is returned when a draft is submitted before any
// peer has been selected.
var ErrNoPeerSelected = errors.New("no peer selected")

// ConnState describes the live transport connection.
type ConnState int

const (
	Disconnected ConnState = iota
	Connected
)

func (s ConnState) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// LiveTransport is what the session needs from the connection manager.
// Events are delivered in transport arrival order; outbound sends are
// fire-and-forget.
type LiveTransport interface {
	OnPresenceSnapshot(fn func(snapshot []string))
	OnInboundMessage(fn func(m Message))
	SendLive(m Message) error
	Connected() bool
	Disconnect()
}

// Backend is what the session needs from the remote store: the history
// fetch and the attachment upload.
type Backend interface {
	HistoryFetcher
	Uploader
}

// Session is the explicitly owned root of all per-login mutable state:
// the single live connection, the single session-wide timeline, the
// presence snapshot and the send pipeline. Everything is torn down
// together by Close.
type Session struct {
	local    User
	conn     LiveTransport // nil when transport establishment failed
	timeline *Timeline
	presence *PresenceTracker
	pipeline *SendPipeline
	loader   *HistoryLoader
	notify   NotifyFunc
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	selected  string
	loading   bool
	gen       uint64
	onInbound func(m Message)
	closed    bool
}

// NewSession wires up a session for the given local user. conn may be
// nil when transport establishment failed: the session then proceeds
// Disconnected with presence and live-message features inert, while
// history and sends keep working. Pass nil notify or logger for
// no-op/default.
func NewSession(local User, conn LiveTransport, backend Backend, notify NotifyFunc, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if notify == nil {
		notify = func(string) {}
	}

	ctx, cancel := context.WithCancel(context.Background())

	timeline := NewTimeline(local.ID)
	s := &Session{
		local:    local,
		conn:     conn,
		timeline: timeline,
		presence: NewPresenceTracker(),
		pipeline: NewSendPipeline(local.ID, conn, backend, timeline, notify, logger),
		loader:   NewHistoryLoader(backend, logger),
		notify:   notify,
		logger:   logger.With("component", "session"),
		ctx:      ctx,
		cancel:   cancel,
	}

	if conn != nil {
		conn.OnPresenceSnapshot(s.presence.Update)
		conn.OnInboundMessage(s.handleInbound)
	}

	return s
}

// LocalUser returns the authenticated identity that owns this session.
func (s *Session) LocalUser() User { return s.local }

// handleInbound appends a transport-delivered message to the shared
// timeline and forwards it to the UI hook. Events for conversations
// other than the active one are appended too; the view filter hides
// them instead of dropping them.
func (s *Session) handleInbound(m Message) {
	s.timeline.Append(m)

	s.mu.Lock()
	hook := s.onInbound
	s.mu.Unlock()
	if hook != nil {
		hook(m)
	}
}

// OnInboundMessage registers a UI hook invoked after each live message
// has been appended to the timeline.
func (s *Session) OnInboundMessage(fn func(m Message)) {
	s.mu.Lock()
	s.onInbound = fn
	s.mu.Unlock()
}

// SelectPeer makes the given peer the active conversation and starts a
// fresh history fetch. Selection never caches: choosing A, then B, then
// A again fetches A's history twice. An in-flight fetch for a previous
// selection is not interrupted, but its result is discarded when it
// resolves under a newer selection.
func (s *Session) SelectPeer(peerID string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.selected = peerID
	s.gen++
	gen := s.gen
	s.loading = true
	s.mu.Unlock()

	s.logger.Debug("peer selected", "peer_id", peerID)
	go s.loadHistory(peerID, gen)
}

// loadHistory runs the one-shot fetch and commits the result if this
// fetch still owns the current selection.
func (s *Session) loadHistory(peerID string, gen uint64) {
	msgs, err := s.loader.Fetch(s.ctx, peerID)

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		s.logger.Debug("stale history fetch discarded", "peer_id", peerID)
		return
	}
	s.loading = false
	if err == nil {
		// Commit under the selection lock so a newer selection cannot
		// be stomped between the generation check and the replacement.
		s.timeline.ReplaceHistory(peerID, msgs)
	}
	s.mu.Unlock()

	if err != nil {
		// Non-fatal: the view stays empty, no retry.
		s.notify("Failed to load messages")
	}
}

// SelectedPeer returns the active peer ID, or "" when none is selected.
func (s *Session) SelectedPeer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Loading reports whether a history fetch for the active peer is in
// flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// SetInput replaces the pending input text.
func (s *Session) SetInput(text string) { s.pipeline.SetText(text) }

// Attach stages a file path as the pending attachment.
func (s *Session) Attach(path string) { s.pipeline.Attach(path) }

// Draft returns the pending input text and attachment path.
func (s *Session) Draft() (text, file string) { return s.pipeline.Draft() }

// Submit sends the pending draft to the active peer.
func (s *Session) Submit(ctx context.Context) error {
	peer := s.SelectedPeer()
	if peer == "" {
		return ErrNoPeerSelected
	}
	return s.pipeline.Submit(ctx, peer)
}

// ViewFor returns the filtered conversation view for the given peer.
func (s *Session) ViewFor(peerID string) []Message {
	return s.timeline.ViewFor(peerID)
}

// ActiveView returns the view for the currently selected peer, or nil
// when none is selected.
func (s *Session) ActiveView() []Message {
	peer := s.SelectedPeer()
	if peer == "" {
		return nil
	}
	return s.timeline.ViewFor(peer)
}

// IsOnline reports whether the peer appears in the latest presence
// snapshot. Always false while Disconnected, since no snapshots arrive.
func (s *Session) IsOnline(userID string) bool {
	return s.presence.IsOnline(userID)
}

// ConnectionState reports the live transport state.
func (s *Session) ConnectionState() ConnState {
	if s.conn != nil && s.conn.Connected() {
		return Connected
	}
	return Disconnected
}

// Close tears the session down: the connection and the timeline go
// together. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	if s.conn != nil {
		s.conn.Disconnect()
	}
	s.logger.Debug("session closed", "user_id", s.local.ID)
}
