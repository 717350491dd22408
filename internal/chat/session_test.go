// ABOUTME: Tests for session lifecycle, peer selection and event wiring
// ABOUTME: Covers fetch-per-selection, stale fetch discard, disconnected sends, teardown

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu          sync.Mutex
	presenceFns []func([]string)
	messageFns  []func(Message)
	sent        []Message
	connected   bool
	disconnects int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{connected: true}
}

func (f *fakeTransport) OnPresenceSnapshot(fn func([]string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presenceFns = append(f.presenceFns, fn)
}

func (f *fakeTransport) OnInboundMessage(fn func(Message)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messageFns = append(f.messageFns, fn)
}

func (f *fakeTransport) SendLive(m Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return errors.New("transport disconnected")
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.disconnects++
}

func (f *fakeTransport) pushPresence(snapshot []string) {
	f.mu.Lock()
	fns := append([]func([]string){}, f.presenceFns...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}

func (f *fakeTransport) pushMessage(m Message) {
	f.mu.Lock()
	fns := append([]func(Message){}, f.messageFns...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

type fakeBackend struct {
	mu           sync.Mutex
	historyCalls map[string]int
	histories    map[string][]Message
	historyErr   error
	gates        map[string]chan struct{}
	uploadResp   Message
	uploadErr    error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		historyCalls: make(map[string]int),
		histories:    make(map[string][]Message),
		gates:        make(map[string]chan struct{}),
	}
}

func (b *fakeBackend) History(_ context.Context, peerID string) ([]Message, error) {
	b.mu.Lock()
	b.historyCalls[peerID]++
	gate := b.gates[peerID]
	err := b.historyErr
	msgs := b.histories[peerID]
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (b *fakeBackend) SendAttachment(_ context.Context, receiver, content, _ string) (Message, error) {
	if b.uploadErr != nil {
		return Message{}, b.uploadErr
	}
	return b.uploadResp, nil
}

func (b *fakeBackend) calls(peerID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.historyCalls[peerID]
}

func localUser() User {
	return User{ID: "u1", Username: "alice", Email: "alice@example.com"}
}

func waitLoaded(t *testing.T, s *Session) {
	t.Helper()
	require.Eventually(t, func() bool { return !s.Loading() }, time.Second, 5*time.Millisecond)
}

func TestSession_SelectPeerFetchesEveryTime(t *testing.T) {
	backend := newFakeBackend()
	backend.histories["u2"] = []Message{msg("u2", "u1", "hi", time.Now())}
	backend.histories["u3"] = []Message{msg("u3", "u1", "yo", time.Now())}

	s := NewSession(localUser(), nil, backend, nil, nil)
	defer s.Close()

	s.SelectPeer("u2")
	waitLoaded(t, s)
	s.SelectPeer("u3")
	waitLoaded(t, s)
	s.SelectPeer("u2")
	waitLoaded(t, s)

	assert.Equal(t, 2, backend.calls("u2"), "no caching across peer switches")
	assert.Equal(t, 1, backend.calls("u3"))
	assert.Equal(t, []string{"hi"}, contents(s.ViewFor("u2")), "each fetch replaces, never merges")
}

func TestSession_HistoryThenLiveEventOrdering(t *testing.T) {
	backend := newFakeBackend()
	t1 := time.Now()
	backend.histories["u2"] = []Message{msg("u2", "u1", "hi", t1)}

	conn := newFakeTransport()
	s := NewSession(localUser(), conn, backend, nil, nil)
	defer s.Close()

	s.SelectPeer("u2")
	waitLoaded(t, s)

	// Inbound event timestamped before the history message still
	// renders after it: arrival order wins.
	conn.pushMessage(msg("u2", "u1", "there", t1.Add(-time.Minute)))

	assert.Equal(t, []string{"hi", "there"}, contents(s.ViewFor("u2")))
}

func TestSession_StaleHistoryFetchIsDiscarded(t *testing.T) {
	backend := newFakeBackend()
	backend.histories["u2"] = []Message{msg("u2", "u1", "old-a", time.Now())}
	backend.histories["u3"] = []Message{msg("u3", "u1", "b", time.Now())}

	gate := make(chan struct{})
	backend.gates["u2"] = gate

	s := NewSession(localUser(), nil, backend, nil, nil)
	defer s.Close()

	s.SelectPeer("u2") // fetch blocks on the gate
	s.SelectPeer("u3") // supersedes the u2 selection
	waitLoaded(t, s)
	require.Equal(t, []string{"b"}, contents(s.ViewFor("u3")))

	close(gate) // let the stale u2 fetch resolve

	// The stale result must not stomp the current view.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"b"}, contents(s.ViewFor("u3")))
	assert.Empty(t, s.ViewFor("u2"))
}

func TestSession_HistoryFailureLeavesViewEmptyAndNotifies(t *testing.T) {
	backend := newFakeBackend()
	backend.historyErr = errors.New("boom")

	var mu sync.Mutex
	var notified []string
	notify := func(msg string) {
		mu.Lock()
		notified = append(notified, msg)
		mu.Unlock()
	}

	s := NewSession(localUser(), nil, backend, notify, nil)
	defer s.Close()

	s.SelectPeer("u2")
	waitLoaded(t, s)

	assert.Empty(t, s.ViewFor("u2"))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, notified, 1, "history failure is a non-fatal notification, no retry")
	assert.Equal(t, 1, backend.calls("u2"))
}

func TestSession_LoadingFlagDuringFetch(t *testing.T) {
	backend := newFakeBackend()
	gate := make(chan struct{})
	backend.gates["u2"] = gate

	s := NewSession(localUser(), nil, backend, nil, nil)
	defer s.Close()

	assert.False(t, s.Loading())
	s.SelectPeer("u2")
	assert.True(t, s.Loading())

	close(gate)
	waitLoaded(t, s)
}

func TestSession_SendTextWhileDisconnected(t *testing.T) {
	backend := newFakeBackend()

	// nil transport: establishment failed, session proceeds inert.
	s := NewSession(localUser(), nil, backend, nil, nil)
	defer s.Close()

	s.SelectPeer("u2")
	waitLoaded(t, s)

	s.SetInput("ok")
	require.NoError(t, s.Submit(context.Background()))

	assert.Equal(t, []string{"ok"}, contents(s.ViewFor("u2")), "local echo is independent of transport state")
	assert.Equal(t, Disconnected, s.ConnectionState())
}

func TestSession_SubmitWithoutPeer(t *testing.T) {
	s := NewSession(localUser(), nil, newFakeBackend(), nil, nil)
	defer s.Close()

	s.SetInput("hello")
	require.ErrorIs(t, s.Submit(context.Background()), ErrNoPeerSelected)
}

func TestSession_EmptySubmitIsNoOp(t *testing.T) {
	backend := newFakeBackend()
	conn := newFakeTransport()
	s := NewSession(localUser(), conn, backend, nil, nil)
	defer s.Close()

	s.SelectPeer("u2")
	waitLoaded(t, s)

	require.ErrorIs(t, s.Submit(context.Background()), ErrEmptyDraft)
	assert.Empty(t, s.ViewFor("u2"))
	assert.Empty(t, conn.sent)
}

func TestSession_PresenceFlowsFromTransport(t *testing.T) {
	conn := newFakeTransport()
	s := NewSession(localUser(), conn, newFakeBackend(), nil, nil)
	defer s.Close()

	assert.False(t, s.IsOnline("u2"))

	conn.pushPresence([]string{"u2", "u3"})
	assert.True(t, s.IsOnline("u2"))

	conn.pushPresence([]string{"u3"})
	assert.False(t, s.IsOnline("u2"), "snapshots replace, never accumulate")
}

func TestSession_InboundHookRunsAfterAppend(t *testing.T) {
	conn := newFakeTransport()
	s := NewSession(localUser(), conn, newFakeBackend(), nil, nil)
	defer s.Close()

	var got []Message
	s.OnInboundMessage(func(m Message) {
		got = append(got, m)
		// The message is already visible in the view when the hook runs.
		assert.NotEmpty(t, s.ViewFor("u2"))
	})

	conn.pushMessage(msg("u2", "u1", "ping", time.Now()))
	require.Len(t, got, 1)
	assert.Equal(t, "ping", got[0].Content)
}

func TestSession_OtherConversationEventsRetainedButFiltered(t *testing.T) {
	conn := newFakeTransport()
	s := NewSession(localUser(), conn, newFakeBackend(), nil, nil)
	defer s.Close()

	s.SelectPeer("u2")
	waitLoaded(t, s)

	conn.pushMessage(msg("u3", "u1", "from elsewhere", time.Now()))

	assert.Empty(t, s.ViewFor("u2"))
	assert.Equal(t, []string{"from elsewhere"}, contents(s.ViewFor("u3")))
}

func TestSession_ConnectionState(t *testing.T) {
	conn := newFakeTransport()
	s := NewSession(localUser(), conn, newFakeBackend(), nil, nil)

	assert.Equal(t, Connected, s.ConnectionState())

	s.Close()
	assert.Equal(t, Disconnected, s.ConnectionState())
	assert.Equal(t, 1, conn.disconnects)

	// Close is idempotent.
	s.Close()
	assert.Equal(t, 1, conn.disconnects)
}

func TestSession_SelectPeerAfterCloseIsIgnored(t *testing.T) {
	backend := newFakeBackend()
	s := NewSession(localUser(), nil, backend, nil, nil)
	s.Close()

	s.SelectPeer("u2")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, backend.calls("u2"))
}
