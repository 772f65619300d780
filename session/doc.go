// Package session provides the Redis-backed registry of active sessions.
//
// Sessions are keyed by the SHA-256 hash of their refresh token (hex
// encoded), so possession of the token is required to address its
// session. A per-user sorted set scored by last activity backs the
// concurrent-session cap: when a user exceeds the cap, the session with
// the oldest activity is evicted and its tokens revoked through the
// injected [Revoker].
//
// # Architecture boundaries
//
// This package owns session persistence and eviction ordering. It does
// NOT interpret JWT tokens, evaluate permissions, or enforce
// authentication policy — those responsibilities belong to the Engine.
package session
