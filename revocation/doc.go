// Package revocation maintains the Redis-backed token blacklist.
//
// Revoked token hashes are stored with a TTL matching the token's
// natural expiry, so the blacklist never outgrows the set of tokens
// that could still verify. Blacklist uses SETNX so that exactly one
// caller wins when the same token is revoked concurrently; refresh
// rotation uses that property as its commit point.
package revocation
