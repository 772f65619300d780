package authgate

import (
	"context"
	"time"

	"github.com/movaro/authgate/session"
)

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// CountActiveSessions describes the countactivesessions operation and its observable behavior.
//
// CountActiveSessions may return an error when input validation, dependency calls, or security checks fail.
// CountActiveSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CountActiveSessions(ctx context.Context, userID string) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, ErrUserNotFound
	}
	return e.sessionStore.Count(ctx, userID)
}

// ActiveSessions describes the activesessions operation and its observable behavior.
//
// ActiveSessions may return an error when input validation, dependency calls, or security checks fail.
// ActiveSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ActiveSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrUserNotFound
	}

	sessions, err := e.sessionStore.ActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionInfo(sess))
	}
	return out, nil
}

// toSessionInfo excludes the fingerprint and access hash; the refresh hash
// doubles as the session handle and is the only token-derived value shown.
func toSessionInfo(sess *session.Session) SessionInfo {
	return SessionInfo{
		TokenHash:    sess.TokenHash,
		IPAddress:    sess.IPAddress,
		UserAgent:    sess.UserAgent,
		CreatedAt:    time.UnixMilli(sess.CreatedAt),
		LastActivity: time.UnixMilli(sess.LastActivity),
		ExpiresAt:    time.Unix(sess.ExpiresAt, 0),
	}
}

// Health describes the health operation and its observable behavior.
//
// Health may return an error when input validation, dependency calls, or security checks fail.
// Health does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.sessionStore == nil {
		return HealthStatus{}
	}

	latency, err := e.sessionStore.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}
