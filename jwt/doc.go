// Package jwt manages access- and refresh-token issuance and verification
// using configured signing keys and strict validation semantics.
//
// Both token kinds carry a device fingerprint claim binding them to the
// user agent and network that obtained them. Verification here covers
// signature, expiry, and kind only; revocation and fingerprint comparison
// happen one layer up, in the engine, because they need request context and
// store access.
package jwt
