// Package csrf implements double-submit cross-site-request-forgery
// protection with HMAC-signed, time-boxed tokens.
//
// Tokens are never persisted server-side: validity is reconstructed from the
// signature and the embedded issue timestamp. The encoded wire form is
//
//	base64url(token):unixSeconds:hex(hmac-sha256(token || ":" || unixSeconds))
//
// Safe methods (GET, HEAD, OPTIONS) are exempt; every other method must
// present the same encoded token in a cookie and a header, both of which
// must verify. Origin/Referer checking is a secondary signal only — it never
// admits a request on its own.
package csrf
