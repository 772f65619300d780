// Package authgate provides the authentication and session security engine
// that protected requests pass through: JWT access tokens bound to a device
// fingerprint, rotating opaque-hash refresh tokens with reuse detection, a
// Redis-backed revocation registry and capped session registry, CSRF
// double-submit verification, token-bucket rate limiting, a role/ownership
// permission model, and an input sanitization boundary.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Identity, TokenPair, SessionInfo, etc.). The component
// packages — jwt, session, revocation, rate, csrf, permission, password,
// sanitize — carry the mechanics and are composed here, never the other way
// around.
//
// # What this package must NOT do
//
//   - Expose Redis clients or store key layouts in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports authgate (no import cycles).
//
// # Failure semantics
//
// Expected authentication failures (bad signature, expiry, blacklist,
// fingerprint mismatch) are deliberately collapsed into [ErrUnauthorized] at
// the public surface so callers cannot build an oracle over failure causes;
// audit events and metrics retain the distinction internally. Only
// infrastructure faults (store unreachable) surface as distinct errors.
package authgate
