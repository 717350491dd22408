// ABOUTME: Dials the backend's socket endpoint and runs the single read loop
// ABOUTME: JSON event envelopes: user-online, online-users, send-message, receive-message

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/hariharan-cs21/chat-ui/internal/chat"
)

// ErrDisconnected is returned by SendLive once the connection is down.
var ErrDisconnected = errors.New("transport disconnected")

// Wire event names, matching the backend's socket contract.
const (
	eventUserOnline     = "user-online"
	eventOnlineUsers    = "online-users"
	eventSendMessage    = "send-message"
	eventReceiveMessage = "receive-message"
)

// envelope is the JSON frame exchanged over the socket.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Conn is the live transport connection for one session. At most one
// exists per session; it is created by Dial and torn down by Disconnect
// or by a transport-level read failure.
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	connected atomic.Bool
	writeMu   sync.Mutex // websocket allows one concurrent writer

	subMu        sync.Mutex
	presenceSubs []func([]string)
	messageSubs  []func(chat.Message)

	closeOnce sync.Once
	done      chan struct{}
}

// Dial establishes the websocket connection, announces the local user
// as online, and starts the read loop. http/https schemes in socketURL
// are rewritten to ws/wss.
func Dial(ctx context.Context, socketURL, localUserID string, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	wsURL, err := toWebsocketURL(socketURL)
	if err != nil {
		return nil, err
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", wsURL, err)
	}

	c := &Conn{
		ws:     ws,
		logger: logger.With("component", "transport"),
		done:   make(chan struct{}),
	}
	c.connected.Store(true)

	if err := c.writeEvent(eventUserOnline, localUserID); err != nil {
		c.Disconnect()
		return nil, fmt.Errorf("announcing presence: %w", err)
	}

	go c.readLoop()

	c.logger.Info("connected", "url", wsURL, "user_id", localUserID)
	return c, nil
}

// toWebsocketURL rewrites http(s) schemes to ws(s) and leaves ws(s)
// URLs alone.
func toWebsocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing socket url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported socket url scheme %q", u.Scheme)
	}
	return u.String(), nil
}

// OnPresenceSnapshot registers a subscriber for full-replacement
// presence snapshots.
func (c *Conn) OnPresenceSnapshot(fn func(snapshot []string)) {
	c.subMu.Lock()
	c.presenceSubs = append(c.presenceSubs, fn)
	c.subMu.Unlock()
}

// OnInboundMessage registers a subscriber invoked once per inbound live
// message, in arrival order.
func (c *Conn) OnInboundMessage(fn func(m chat.Message)) {
	c.subMu.Lock()
	c.messageSubs = append(c.messageSubs, fn)
	c.subMu.Unlock()
}

// SendLive pushes a message over the socket. Fire-and-forget: a nil
// error means the write was accepted, not that the peer received it.
func (c *Conn) SendLive(m chat.Message) error {
	if !c.connected.Load() {
		return ErrDisconnected
	}
	return c.writeEvent(eventSendMessage, m)
}

// Connected reports whether the connection is live.
func (c *Conn) Connected() bool {
	return c.connected.Load()
}

// Disconnect tears the connection down. Idempotent.
func (c *Conn) Disconnect() {
	c.closeOnce.Do(func() {
		c.connected.Store(false)
		close(c.done)
		if err := c.ws.Close(); err != nil {
			c.logger.Debug("close error", "error", err)
		}
		c.logger.Info("disconnected")
	})
}

// Done is closed when the connection has shut down, whether by
// Disconnect or by a transport-level failure.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) writeEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteJSON(envelope{Event: event, Data: payload}); err != nil {
		return fmt.Errorf("writing %s event: %w", event, err)
	}
	return nil
}

// readLoop dispatches inbound envelopes to subscribers until the
// connection dies. Subscriber callbacks run on this goroutine, so
// delivery order is exactly socket arrival order.
func (c *Conn) readLoop() {
	defer c.Disconnect()

	for {
		var env envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if c.connected.Load() {
				c.logger.Warn("read loop ended", "error", err)
			}
			return
		}

		switch env.Event {
		case eventOnlineUsers:
			var snapshot []string
			if err := json.Unmarshal(env.Data, &snapshot); err != nil {
				c.logger.Warn("bad presence snapshot", "error", err)
				continue
			}
			c.dispatchPresence(snapshot)

		case eventReceiveMessage:
			var msg chat.Message
			if err := json.Unmarshal(env.Data, &msg); err != nil {
				c.logger.Warn("bad inbound message", "error", err)
				continue
			}
			c.dispatchMessage(msg)

		default:
			c.logger.Debug("ignoring unknown event", "event", env.Event)
		}
	}
}

func (c *Conn) dispatchPresence(snapshot []string) {
	c.subMu.Lock()
	subs := make([]func([]string), len(c.presenceSubs))
	copy(subs, c.presenceSubs)
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func (c *Conn) dispatchMessage(m chat.Message) {
	c.subMu.Lock()
	subs := make([]func(chat.Message), len(c.messageSubs))
	copy(subs, c.messageSubs)
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(m)
	}
}
