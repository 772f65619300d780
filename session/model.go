package session

import "time"

// Session defines a public type used by authgate APIs.
//
// Session instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Session struct {
	// TokenHash is the hex-encoded SHA-256 hash of the session's refresh
	// token. It is the registry key and is populated on read, never stored
	// inside the record itself.
	TokenHash string `json:"-"`

	UserID      string `json:"uid"`
	Role        string `json:"role"`
	Email       string `json:"email,omitempty"`
	Fingerprint string `json:"fph"`
	IPAddress   string `json:"ip,omitempty"`
	UserAgent   string `json:"ua,omitempty"`

	// AccessHash is the hex-encoded hash of the session's current access
	// token, kept so teardown can revoke both halves of the pair.
	// AccessExpiresAt is that token's own expiry, which bounds how long a
	// revocation entry for it needs to live.
	AccessHash      string `json:"ath,omitempty"`
	AccessExpiresAt int64  `json:"axp,omitempty"` // unix seconds

	CreatedAt    int64 `json:"cat"` // unix milliseconds
	LastActivity int64 `json:"lat"` // unix milliseconds
	ExpiresAt    int64 `json:"eat"` // unix seconds

	// CreatedSeq is a per-process creation sequence assigned by the
	// store. It is folded into the eviction-index score so sessions with
	// identical last activity evict oldest-created first.
	CreatedSeq uint64 `json:"seq,omitempty"`
}

// Expired reports whether the session's absolute expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}
