// ABOUTME: Core synchronization engine for two-party conversations
// ABOUTME: Timeline, presence, history loading, send pipeline and session lifecycle

// Package chat holds the client's conversation state and the rules for
// merging its three sources of truth: persisted history fetched on peer
// selection, live events delivered by the transport, and locally
// originated sends echoed before any acknowledgment.
//
// All state is owned by a Session, constructed at login and torn down at
// logout. There are no package-level singletons; the single live
// connection and the single session-wide timeline live and die with the
// Session that owns them.
package chat
