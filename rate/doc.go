// Package rate provides Redis-backed request rate limiting for the
// authentication engine.
//
// # Window semantics
//
// The primary limiter is a per-key token bucket refilled continuously
// (tokens = min(capacity, tokens + elapsed*refillRate)), evaluated
// atomically in a Lua script. A secondary fixed-window burst bucket
// (INCR + conditional EXPIRE on first hit) runs independently to catch
// short spikes the steady-state bucket would tolerate. Key prefixes:
//   - rb:  — token bucket per key
//   - rbb: — burst window per key
//   - al:  — login attempts per user
//   - ali: — login attempts per IP
//
// # What this package must NOT do
//
//   - Resolve identities or interpret tokens (the caller supplies the key).
//   - Decide which paths bypass limiting beyond the configured list.
package rate
