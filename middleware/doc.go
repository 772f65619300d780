// Package middleware exposes HTTP adapters for authentication, CSRF, and
// rate-limit enforcement built on top of authgate.Engine.
//
// # Guards
//
//   - [RequireAuth] — rejects requests without a valid access token.
//   - [Authenticate] — resolves the identity but lets anonymous requests through.
//   - [CSRF] — double-submit CSRF verification on state-changing methods.
//   - [RateLimit] — per-credential token-bucket enforcement with Retry-After.
//
// Each guard copies the request's client IP, User-Agent, API key, and
// correlation id into the context before delegating to the engine, so
// fingerprint binding and rate-limit keying see the same values the
// engine operations do.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// the engine.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
