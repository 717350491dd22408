// ABOUTME: Websocket connection manager for the live event channel
// ABOUTME: One connection per session; routes inbound events to subscribers in order

// Package transport owns the single live websocket connection for a
// session. It announces the local user on connect, dispatches inbound
// events (presence snapshots and live messages) to subscribers in
// arrival order, and pushes outbound messages fire-and-forget.
//
// Reconnection after transient failure is not this package's concern:
// a transport-level failure flips the connection to Disconnected and
// stays there. There is no replay or gap recovery.
package transport
