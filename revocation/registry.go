package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Reason records why a token was revoked. It is stored as the blacklist
// entry value and surfaced in audit events.
type Reason string

const (
	// ReasonLogout marks tokens invalidated by an explicit logout.
	ReasonLogout Reason = "logout"
	// ReasonRevoked marks tokens invalidated by an administrative revoke.
	ReasonRevoked Reason = "revoked"
	// ReasonSecurity marks tokens invalidated after a security event
	// such as refresh-token reuse or a fingerprint mismatch.
	ReasonSecurity Reason = "security"
	// ReasonRotated marks refresh tokens consumed by rotation.
	ReasonRotated Reason = "rotated"
	// ReasonEvicted marks tokens invalidated by the concurrent-session cap.
	ReasonEvicted Reason = "evicted"
	// ReasonPasswordChange marks tokens invalidated by a password change.
	ReasonPasswordChange Reason = "password_change"
)

const minBlacklistTTL = time.Second

// Registry is the Redis-backed blacklist of revoked token hashes.
// Entries expire when the underlying token would have expired anyway.
type Registry struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRegistry creates a [Registry] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewRegistry(rdb redis.UniversalClient, prefix string) *Registry {
	if prefix == "" {
		prefix = "bl"
	}
	return &Registry{redis: rdb, prefix: prefix}
}

func (r *Registry) key(tokenHash string) string {
	return r.prefix + ":" + tokenHash
}

func (r *Registry) userKey(userID string) string {
	return r.prefix + "u:" + userID
}

// Blacklist marks a token hash as revoked until ttl elapses. The first
// caller to blacklist a given hash observes true; concurrent or repeated
// calls observe false. Rotation relies on this to detect refresh reuse.
//
//	Performance: 1 Redis SETNX.
func (r *Registry) Blacklist(ctx context.Context, tokenHash string, reason Reason, ttl time.Duration) (bool, error) {
	if ttl < minBlacklistTTL {
		ttl = minBlacklistTTL
	}

	won, err := r.redis.SetNX(ctx, r.key(tokenHash), string(reason), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return won, nil
}

// RevokeToken is a string-reason convenience wrapper around [Registry.Blacklist]
// for callers that hold only the session package's Revoker interface.
func (r *Registry) RevokeToken(ctx context.Context, tokenHash, reason string, ttl time.Duration) error {
	_, err := r.Blacklist(ctx, tokenHash, Reason(reason), ttl)
	return err
}

// BlacklistMany marks a batch of token hashes as revoked and returns how
// many entries were newly set.
//
//	Performance: 1 pipelined round trip (one SETNX per hash).
func (r *Registry) BlacklistMany(ctx context.Context, tokenHashes []string, reason Reason, ttl time.Duration) (int, error) {
	if len(tokenHashes) == 0 {
		return 0, nil
	}
	if ttl < minBlacklistTTL {
		ttl = minBlacklistTTL
	}

	pipe := r.redis.Pipeline()
	cmds := make([]*redis.BoolCmd, len(tokenHashes))
	for i, hash := range tokenHashes {
		cmds[i] = pipe.SetNX(ctx, r.key(hash), string(reason), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var set int
	for _, cmd := range cmds {
		won, cmdErr := cmd.Result()
		if cmdErr != nil {
			return set, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		if won {
			set++
		}
	}
	return set, nil
}

// IsBlacklisted reports whether a token hash has been revoked.
//
//	Performance: 1 Redis EXISTS.
func (r *Registry) IsBlacklisted(ctx context.Context, tokenHash string) (bool, error) {
	n, err := r.redis.Exists(ctx, r.key(tokenHash)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Track records an issued token hash in the user's active-token index so
// that RevokeAllUserTokens can find it later. Expired members are pruned
// lazily on the next RevokeAllUserTokens call.
//
//	Performance: 2 pipelined Redis commands (ZADD + EXPIRE).
func (r *Registry) Track(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	userKey := r.userKey(userID)
	ttl := time.Until(expiresAt)
	if ttl < minBlacklistTTL {
		ttl = minBlacklistTTL
	}

	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, userKey, redis.Z{Score: float64(expiresAt.Unix()), Member: tokenHash})
		// The index must outlive its longest-lived member.
		pipe.ExpireGT(ctx, userKey, ttl)
		pipe.ExpireNX(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RevokeAllUserTokens blacklists every tracked, not-yet-expired token
// hash for a user and returns how many entries were newly revoked. Used
// for "log out everywhere" and security incident response.
func (r *Registry) RevokeAllUserTokens(ctx context.Context, userID string, reason Reason) (int, error) {
	userKey := r.userKey(userID)
	now := time.Now()

	if err := r.redis.ZRemRangeByScore(ctx, userKey, "-inf", fmt.Sprintf("%d", now.Unix())).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	members, err := r.redis.ZRangeWithScores(ctx, userKey, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	var revoked int
	for _, m := range members {
		hash, ok := m.Member.(string)
		if !ok {
			continue
		}
		ttl := time.Unix(int64(m.Score), 0).Sub(now)
		won, err := r.Blacklist(ctx, hash, reason, ttl)
		if err != nil {
			return revoked, err
		}
		if won {
			revoked++
		}
	}

	if err := r.redis.Del(ctx, userKey).Err(); err != nil {
		return revoked, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return revoked, nil
}

// RevocationReason returns the stored reason for a revoked token hash.
// The second return value is false when the hash is not blacklisted.
func (r *Registry) RevocationReason(ctx context.Context, tokenHash string) (Reason, bool, error) {
	val, err := r.redis.Get(ctx, r.key(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return Reason(val), true, nil
}
